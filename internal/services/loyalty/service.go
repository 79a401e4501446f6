// Package loyalty keeps the customer point grants and coupons. The package
// level functions run inside a caller's transaction; Service wraps them for
// direct use.
package loyalty

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"pizza-lovers/internal/logger"
	"pizza-lovers/internal/models"
	"pizza-lovers/internal/store"
)

type Service struct {
	store  store.Store
	logger *logger.Logger
	now    func() time.Time
}

func NewService(st store.Store, log *logger.Logger) *Service {
	return &Service{store: st, logger: log, now: time.Now}
}

// WithClock replaces the time source, used by tests
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Summary is a customer's loyalty state
type Summary struct {
	Balance int                   `json:"total_points"`
	Grants  []models.LoyaltyGrant `json:"grants"`
	Coupons []models.Coupon       `json:"coupons"`
}

func (s *Service) Grant(ctx context.Context, customerID int64, points int) (*models.LoyaltyGrant, error) {
	var g *models.LoyaltyGrant
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetCustomer(ctx, customerID); err != nil {
			return err
		}
		var err error
		g, err = Grant(ctx, tx, customerID, points, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("points_granted", "Granted loyalty points", logger.RequestID(ctx), map[string]interface{}{
		"customer_id": customerID,
		"points":      points,
	})
	return g, nil
}

// Balance is the spendable points balance at the current time
func (s *Service) Balance(ctx context.Context, customerID int64) (int, error) {
	sum, err := s.Summary(ctx, customerID)
	if err != nil {
		return 0, err
	}
	return sum.Balance, nil
}

// Summary returns the balance, every grant including expired ones, and the
// coupons that can still be redeemed
func (s *Service) Summary(ctx context.Context, customerID int64) (*Summary, error) {
	now := s.now()
	out := &Summary{}
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetCustomer(ctx, customerID); err != nil {
			return err
		}
		grants, err := tx.Grants(ctx, customerID)
		if err != nil {
			return err
		}
		coupons, err := tx.Coupons(ctx, customerID)
		if err != nil {
			return err
		}
		out.Grants = grants
		out.Balance = models.PointsBalance(grants, now)
		out.Coupons = ValidCoupons(coupons, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteGrants removes every grant of the customer
func (s *Service) DeleteGrants(ctx context.Context, customerID int64) error {
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetCustomer(ctx, customerID); err != nil {
			return err
		}
		return tx.DeleteGrants(ctx, customerID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("points_deleted", "Deleted loyalty points", logger.RequestID(ctx), map[string]interface{}{
		"customer_id": customerID,
	})
	return nil
}

// CouponRequest creates a coupon; zero values take the defaults
type CouponRequest struct {
	CustomerID     int64           `json:"customer_id"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	ExpiresAt      time.Time       `json:"expires_at"`
}

func (s *Service) CreateCoupon(ctx context.Context, req CouponRequest) (*models.Coupon, error) {
	var c *models.Coupon
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetCustomer(ctx, req.CustomerID); err != nil {
			return err
		}
		var err error
		c, err = IssueCoupon(ctx, tx, req.CustomerID, req.DiscountAmount, req.ExpiresAt, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("coupon_created", "Created coupon", logger.RequestID(ctx), map[string]interface{}{
		"customer_id": req.CustomerID,
		"coupon_id":   c.ID,
		"discount":    c.DiscountAmount.String(),
	})
	return c, nil
}

func (s *Service) DeleteCoupon(ctx context.Context, couponID int64) error {
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.DeleteCoupon(ctx, couponID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("coupon_deleted", "Deleted coupon", logger.RequestID(ctx), map[string]interface{}{
		"coupon_id": couponID,
	})
	return nil
}

// ValidCoupons filters out the coupons expired at now
func ValidCoupons(coupons []models.Coupon, now time.Time) []models.Coupon {
	out := make([]models.Coupon, 0, len(coupons))
	for _, c := range coupons {
		if !c.IsExpired(now) {
			out = append(out, c)
		}
	}
	return out
}
