package cart

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"pizza-lovers/internal/apperr"
	"pizza-lovers/internal/logger"
	"pizza-lovers/internal/models"
	"pizza-lovers/internal/services/loyalty"
	"pizza-lovers/internal/store"
)

// Service edits customer carts
type Service struct {
	store  store.Store
	logger *logger.Logger
	now    func() time.Time
}

func NewService(st store.Store, log *logger.Logger) *Service {
	return &Service{store: st, logger: log, now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Add puts quantity units of the item in the cart, adding to an existing line
func (s *Service) Add(ctx context.Context, customerID, foodItemID int64, quantity int) error {
	if quantity <= 0 {
		return apperr.Invalid("quantity", "must be greater than zero")
	}
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		item, err := tx.GetFoodItem(ctx, foodItemID)
		if err != nil {
			return err
		}
		if !item.Active {
			return apperr.NotFound(store.EntityFoodItem, foodItemID)
		}
		return tx.AddCartLine(ctx, customerID, foodItemID, quantity)
	})
	if err != nil {
		return err
	}

	s.logger.Debug("cart_item_added", "Added item to cart", logger.RequestID(ctx), map[string]interface{}{
		"customer_id":  customerID,
		"food_item_id": foodItemID,
		"quantity":     quantity,
	})
	return nil
}

func (s *Service) Remove(ctx context.Context, customerID, foodItemID int64) error {
	return s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.RemoveCartLine(ctx, customerID, foodItemID)
	})
}

// View returns the cart with live catalog data, the point balance and the
// coupons the customer can still use
func (s *Service) View(ctx context.Context, customerID int64) (*models.CartView, error) {
	now := s.now()
	view := &models.CartView{Lines: []models.CartLineView{}, Subtotal: decimal.Zero}

	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		lines, err := tx.CartLines(ctx, customerID)
		if err != nil {
			return err
		}
		for _, l := range lines {
			item, err := tx.GetFoodItem(ctx, l.FoodItemID)
			if err != nil {
				return err
			}
			lineTotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
			view.Lines = append(view.Lines, models.CartLineView{
				FoodItemID:  item.ID,
				Name:        item.Name,
				Description: item.Description,
				Category:    item.Category,
				UnitPrice:   item.UnitPrice,
				Stock:       item.Stock,
				Image:       item.Image,
				Quantity:    l.Quantity,
				LineTotal:   lineTotal,
			})
			view.Subtotal = view.Subtotal.Add(lineTotal)
		}

		grants, err := tx.Grants(ctx, customerID)
		if err != nil {
			return err
		}
		view.TotalPoints = models.PointsBalance(grants, now)

		coupons, err := tx.Coupons(ctx, customerID)
		if err != nil {
			return err
		}
		view.AvailableCoupons = loyalty.ValidCoupons(coupons, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}
