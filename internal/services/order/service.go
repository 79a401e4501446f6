// Package order places orders, either from a customer's cart or on behalf of
// a caller through an order manager, and serves order reads.
package order

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"pizza-lovers/internal/apperr"
	"pizza-lovers/internal/events"
	"pizza-lovers/internal/logger"
	"pizza-lovers/internal/models"
	"pizza-lovers/internal/store"
)

// MinimumTotal is the smallest total an order may be placed with
var MinimumTotal = decimal.NewFromInt(5)

type Service struct {
	store     store.Store
	publisher events.Publisher
	logger    *logger.Logger
	now       func() time.Time
}

func NewService(st store.Store, pub events.Publisher, log *logger.Logger) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{store: st, publisher: pub, logger: log, now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ItemQuantity is one requested (food item, quantity) pair
type ItemQuantity struct {
	ID       int64 `json:"id"`
	Quantity int   `json:"quantity"`
}

// reserve locks the items in id order, then checks stock and builds the
// line snapshots in the order they were requested, so the first short item
// of the request is the one reported. Stock is not touched yet.
func reserve(ctx context.Context, tx store.Tx, wanted []ItemQuantity) ([]models.OrderLine, decimal.Decimal, error) {
	ids := make([]int64, len(wanted))
	for i, w := range wanted {
		ids[i] = w.ID
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	items, err := tx.LockFoodItems(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("failed to lock food items: %w", err)
	}

	lines := make([]models.OrderLine, 0, len(wanted))
	subtotal := decimal.Zero
	for _, w := range wanted {
		item, ok := items[w.ID]
		if !ok {
			return nil, decimal.Zero, apperr.NotFound(store.EntityFoodItem, w.ID)
		}
		if !item.HasStock(w.Quantity) {
			return nil, decimal.Zero, apperr.Conflict(apperr.RuleInsufficientStock,
				"insufficient stock for %s: %d available, %d requested", item.Name, item.Stock, w.Quantity)
		}
		id := item.ID
		lines = append(lines, models.OrderLine{
			FoodItemID:  &id,
			Name:        item.Name,
			UnitPrice:   item.UnitPrice,
			Description: item.Description,
			Image:       item.Image,
			Quantity:    w.Quantity,
		})
		subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(w.Quantity))))
	}
	return lines, subtotal, nil
}

// place inserts the order with its lines, takes the stock and logs the
// initial status
func place(ctx context.Context, tx store.Tx, o *models.Order, changedBy string) error {
	if err := tx.InsertOrder(ctx, o); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	for _, l := range o.Lines {
		if err := tx.DecrementStock(ctx, *l.FoodItemID, l.Quantity); err != nil {
			return fmt.Errorf("failed to take stock: %w", err)
		}
	}
	entry := &models.StatusLogEntry{
		OrderID:   o.ID,
		ToStatus:  o.Status,
		ChangedBy: changedBy,
		ChangedAt: o.CreatedAt,
		Notes:     "order placed",
	}
	if err := tx.AppendStatusLog(ctx, entry); err != nil {
		return fmt.Errorf("failed to log initial status: %w", err)
	}
	return nil
}

// publish sends the event after commit; a failure is logged and swallowed
func (s *Service) publish(ctx context.Context, ev models.OrderEvent) {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Error("event_publish_failed", "Failed to publish order event", logger.RequestID(ctx), err,
			map[string]interface{}{"order_id": ev.OrderID, "type": ev.Type})
	}
}
