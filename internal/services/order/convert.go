package order

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"pizza-lovers/internal/apperr"
	"pizza-lovers/internal/events"
	"pizza-lovers/internal/logger"
	"pizza-lovers/internal/models"
	"pizza-lovers/internal/services/loyalty"
	"pizza-lovers/internal/store"
)

// ConvertRequest turns the customer's cart into an order
type ConvertRequest struct {
	Address     string `json:"address,omitempty"`
	PointsToUse int    `json:"points_to_use,omitempty"`
	CouponID    *int64 `json:"coupon_id,omitempty"`
}

type ConvertResult struct {
	OrderID int64           `json:"order_id"`
	Total   decimal.Decimal `json:"total_price"`
}

// ConvertCart places an order from the customer's cart. Checks run in a fixed
// order and the first failure wins; nothing is written unless all pass.
func (s *Service) ConvertCart(ctx context.Context, customerID int64, req ConvertRequest) (*ConvertResult, error) {
	now := s.now().UTC()
	var placed *models.Order

	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		customer, err := tx.LockCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		if strings.TrimSpace(customer.Phone) == "" {
			return apperr.Invalid("phone", "a phone number is required on the customer profile")
		}

		cartLines, err := tx.CartLines(ctx, customerID)
		if err != nil {
			return fmt.Errorf("failed to read cart: %w", err)
		}
		if len(cartLines) == 0 {
			return apperr.Conflict(apperr.RuleEmptyCart, "cart is empty")
		}

		address := strings.TrimSpace(req.Address)
		if address == "" {
			address = strings.TrimSpace(customer.Address)
		}
		if address == "" {
			return apperr.Invalid("address", "an address is required on the request or the customer profile")
		}

		wanted := make([]ItemQuantity, len(cartLines))
		for i, l := range cartLines {
			wanted[i] = ItemQuantity{ID: l.FoodItemID, Quantity: l.Quantity}
		}
		lines, subtotal, err := reserve(ctx, tx, wanted)
		if err != nil {
			return err
		}

		if req.PointsToUse < 0 {
			return apperr.Invalid("points_to_use", "must not be negative")
		}
		var grants []models.LoyaltyGrant
		if req.PointsToUse > 0 {
			var balance int
			grants, balance, err = loyalty.LockBalance(ctx, tx, customerID, now)
			if err != nil {
				return err
			}
			if req.PointsToUse > balance {
				return apperr.Conflict(apperr.RuleInsufficientPoints,
					"insufficient loyalty points: %d requested, %d available", req.PointsToUse, balance)
			}
		}

		var coupon *models.Coupon
		if req.CouponID != nil {
			if coupon, err = loyalty.LockCouponFor(ctx, tx, customerID, *req.CouponID, now); err != nil {
				return err
			}
		}

		total := subtotal.Sub(loyalty.PointsDiscount(req.PointsToUse))
		if coupon != nil {
			total = total.Sub(coupon.DiscountAmount)
		}
		if total.LessThan(MinimumTotal) {
			return apperr.Conflict(apperr.RuleMinimumOrder,
				"order total %s is below the minimum of %s", total.StringFixed(2), MinimumTotal.StringFixed(2))
		}

		if req.PointsToUse > 0 {
			if err := loyalty.Consume(ctx, tx, grants, req.PointsToUse, now); err != nil {
				return err
			}
		}
		if coupon != nil {
			if err := tx.DeleteCoupon(ctx, coupon.ID); err != nil {
				return fmt.Errorf("failed to redeem coupon: %w", err)
			}
		}

		cid := customer.ID
		o := &models.Order{
			CreatedAt:     now,
			Description:   "Pedido de " + customer.Username,
			Address:       address,
			Status:        models.StatusPending,
			CustomerID:    &cid,
			CustomerName:  customer.Username,
			CustomerEmail: customer.Email,
			CustomerPhone: customer.Phone,
			Total:         total,
			Lines:         lines,
		}
		if err := place(ctx, tx, o, fmt.Sprintf("customer:%d", customerID)); err != nil {
			return err
		}
		if err := tx.ClearCart(ctx, customerID); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		placed = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order_created", "Order placed from cart", logger.RequestID(ctx), map[string]interface{}{
		"order_id":    placed.ID,
		"customer_id": customerID,
		"total":       placed.Total.StringFixed(2),
		"points_used": req.PointsToUse,
		"coupon_used": req.CouponID != nil,
		"line_count":  len(placed.Lines),
	})
	s.publish(ctx, events.Created(placed, fmt.Sprintf("customer:%d", customerID)))

	return &ConvertResult{OrderID: placed.ID, Total: placed.Total}, nil
}
