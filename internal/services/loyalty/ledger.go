package loyalty

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"pizza-lovers/internal/apperr"
	"pizza-lovers/internal/models"
	"pizza-lovers/internal/store"
)

const (
	// PointsPerBlock points buy one BlockValue of discount
	PointsPerBlock = 10
	// CompletionPoints are granted on every delivered order
	CompletionPoints = 5
	// CouponEvery is the purchase cadence that earns a coupon
	CouponEvery = 3
)

var (
	BlockValue            = decimal.NewFromInt(5)
	DefaultCouponDiscount = decimal.NewFromInt(10)
)

// PointsDiscount is floor(points/10) * 5
func PointsDiscount(points int) decimal.Decimal {
	return BlockValue.Mul(decimal.NewFromInt(int64(points / PointsPerBlock)))
}

// LockBalance locks the customer's grants and returns them with the balance
// spendable at now
func LockBalance(ctx context.Context, tx store.Loyalty, customerID int64, now time.Time) ([]models.LoyaltyGrant, int, error) {
	grants, err := tx.LockGrants(ctx, customerID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to lock loyalty grants: %w", err)
	}
	return grants, models.PointsBalance(grants, now), nil
}

// Consume spends points from the non-expired grants, oldest first. grants
// must come from LockBalance in the same transaction.
func Consume(ctx context.Context, tx store.Loyalty, grants []models.LoyaltyGrant, points int, now time.Time) error {
	left := points
	for i := range grants {
		if left == 0 {
			break
		}
		g := &grants[i]
		if g.IsExpired(now) || g.Remaining == 0 {
			continue
		}
		take := min(g.Remaining, left)
		if err := tx.UpdateGrantRemaining(ctx, g.ID, g.Remaining-take); err != nil {
			return fmt.Errorf("failed to consume loyalty grant %d: %w", g.ID, err)
		}
		g.Remaining -= take
		left -= take
	}
	if left > 0 {
		return apperr.Conflict(apperr.RuleInsufficientPoints,
			"insufficient loyalty points: %d requested, %d short", points, left)
	}
	return nil
}

// Grant appends a grant of points created at now
func Grant(ctx context.Context, tx store.Loyalty, customerID int64, points int, now time.Time) (*models.LoyaltyGrant, error) {
	if points <= 0 {
		return nil, apperr.Invalid("points", "must be greater than zero")
	}
	g := &models.LoyaltyGrant{CustomerID: customerID, Points: points, Remaining: points, CreatedAt: now}
	if err := tx.InsertGrant(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to insert loyalty grant: %w", err)
	}
	return g, nil
}

// IssueCoupon creates a coupon. A zero discount means the default amount and
// a zero expiry means now plus the default validity.
func IssueCoupon(ctx context.Context, tx store.Loyalty, customerID int64, discount decimal.Decimal, expiresAt, now time.Time) (*models.Coupon, error) {
	if discount.IsZero() {
		discount = DefaultCouponDiscount
	}
	if discount.IsNegative() {
		return nil, apperr.Invalid("discount_amount", "must not be negative")
	}
	if expiresAt.IsZero() {
		expiresAt = now.Add(models.CouponValidity)
	}
	c := &models.Coupon{CustomerID: customerID, DiscountAmount: discount, CreatedAt: now, ExpiresAt: expiresAt}
	if err := tx.InsertCoupon(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to insert coupon: %w", err)
	}
	return c, nil
}

// LockCouponFor locks a coupon the customer is about to redeem. A coupon of
// another customer is reported as missing.
func LockCouponFor(ctx context.Context, tx store.Loyalty, customerID, couponID int64, now time.Time) (*models.Coupon, error) {
	c, err := tx.LockCoupon(ctx, couponID)
	if err != nil {
		return nil, err
	}
	if c.CustomerID != customerID {
		return nil, apperr.NotFound(store.EntityCoupon, couponID)
	}
	if c.IsExpired(now) {
		return nil, apperr.Conflict(apperr.RuleCouponExpired, "coupon %d expired at %s",
			couponID, c.ExpiresAt.Format(time.RFC3339))
	}
	return c, nil
}

// Reward is what a delivered order earned its customer
type Reward struct {
	Purchases int
	Grant     *models.LoyaltyGrant
	Coupon    *models.Coupon
}

// RewardCompletion runs the completion accrual for a delivered order's
// customer: one more purchase, a coupon every third purchase and the
// completion points.
func RewardCompletion(ctx context.Context, tx store.Tx, customerID int64, now time.Time) (*Reward, error) {
	purchases, err := tx.IncrementPurchases(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to count purchase: %w", err)
	}

	r := &Reward{Purchases: purchases}
	if purchases%CouponEvery == 0 {
		if r.Coupon, err = IssueCoupon(ctx, tx, customerID, DefaultCouponDiscount, time.Time{}, now); err != nil {
			return nil, err
		}
	}
	if r.Grant, err = Grant(ctx, tx, customerID, CompletionPoints, now); err != nil {
		return nil, err
	}
	return r, nil
}
