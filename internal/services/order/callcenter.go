package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"pizza-lovers/internal/apperr"
	"pizza-lovers/internal/events"
	"pizza-lovers/internal/logger"
	"pizza-lovers/internal/models"
	"pizza-lovers/internal/store"
)

type CallCenterResult struct {
	OrderID     int64           `json:"pedido_id"`
	CallerName  string          `json:"caller_name"`
	CallerPhone string          `json:"caller_phone"`
	Total       decimal.Decimal `json:"total_price"`
}

// CreateForCaller places an order taken by an order manager. It starts in
// En_Espera and earns no loyalty.
func (s *Service) CreateForCaller(ctx context.Context, req CallCenterRequest) (*CallCenterResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	items := mergeItems(req.FoodItems)
	now := s.now().UTC()
	var placed *models.Order

	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetStaff(ctx, models.RoleOrderManager, req.OrderManagerID); err != nil {
			var nf apperr.NotFoundError
			if errors.As(err, &nf) {
				return apperr.ValidationErrors{{Field: "order_manager_id", Message: "unknown order manager"}}
			}
			return err
		}

		lines, subtotal, err := reserve(ctx, tx, items)
		if err != nil {
			var nf apperr.NotFoundError
			if errors.As(err, &nf) {
				return apperr.ValidationErrors{{Field: "food_items", Message: nf.Error()}}
			}
			return err
		}

		managerID := req.OrderManagerID
		description := strings.TrimSpace(req.Description)
		if description == "" {
			description = "Pedido de " + strings.TrimSpace(req.CallerName)
		}
		o := &models.Order{
			CreatedAt:      now,
			Description:    description,
			Address:        strings.TrimSpace(req.CallerAddress),
			Status:         models.StatusWaiting,
			OrderManagerID: &managerID,
			CustomerName:   strings.TrimSpace(req.CallerName),
			CustomerEmail:  req.CallerEmail,
			CustomerPhone:  req.CallerPhone,
			Total:          subtotal,
			Lines:          lines,
		}
		if err := place(ctx, tx, o, fmt.Sprintf("order_manager:%d", managerID)); err != nil {
			return err
		}
		placed = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order_created", "Order placed by call center", logger.RequestID(ctx), map[string]interface{}{
		"order_id":         placed.ID,
		"order_manager_id": req.OrderManagerID,
		"total":            placed.Total.StringFixed(2),
		"line_count":       len(placed.Lines),
	})
	s.publish(ctx, events.Created(placed, fmt.Sprintf("order_manager:%d", req.OrderManagerID)))

	return &CallCenterResult{
		OrderID:     placed.ID,
		CallerName:  placed.CustomerName,
		CallerPhone: placed.CustomerPhone,
		Total:       placed.Total,
	}, nil
}
