package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// PointsValidity is how long a point grant counts toward the balance
	PointsValidity = 60 * 24 * time.Hour
	// CouponValidity is the default coupon lifetime
	CouponValidity = 5 * 24 * time.Hour
)

// LoyaltyGrant is one grant of points. Remaining drops as points are redeemed;
// the row itself is never removed by redemption or expiry.
type LoyaltyGrant struct {
	ID         int64     `json:"id" db:"id"`
	CustomerID int64     `json:"customer_id" db:"customer_id"`
	Points     int       `json:"points" db:"points"`
	Remaining  int       `json:"remaining" db:"remaining"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// ExpiresAt returns the instant from which the grant no longer counts
func (g *LoyaltyGrant) ExpiresAt() time.Time {
	return g.CreatedAt.Add(PointsValidity)
}

// IsExpired reports whether the grant is out of the balance at now.
// A grant exactly at its boundary is expired.
func (g *LoyaltyGrant) IsExpired(now time.Time) bool {
	return !g.ExpiresAt().After(now)
}

// PointsBalance sums the remaining points of the grants still valid at now
func PointsBalance(grants []LoyaltyGrant, now time.Time) int {
	total := 0
	for i := range grants {
		if !grants[i].IsExpired(now) {
			total += grants[i].Remaining
		}
	}
	return total
}

// Coupon is a single-use discount owned by a customer
type Coupon struct {
	ID             int64           `json:"id" db:"id"`
	CustomerID     int64           `json:"customer_id" db:"customer_id"`
	DiscountAmount decimal.Decimal `json:"discount_amount" db:"discount_amount"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	ExpiresAt      time.Time       `json:"expires_at" db:"expires_at"`
}

// IsExpired reports whether the coupon can no longer be redeemed at now
func (c *Coupon) IsExpired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}
