package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"pizza-lovers/internal/database"
	"pizza-lovers/internal/models"
	"pizza-lovers/internal/store"
)

func (t *tx) InsertGrant(ctx context.Context, g *models.LoyaltyGrant) error {
	err := t.tx.QueryRow(ctx, database.InsertGrantSQL, g.CustomerID, g.Points, g.Remaining, g.CreatedAt).Scan(&g.ID)
	return mapError(err, store.EntityCustomer, g.CustomerID)
}

func (t *tx) queryGrants(ctx context.Context, sql string, customerID int64) ([]models.LoyaltyGrant, error) {
	rows, err := t.tx.Query(ctx, sql, customerID)
	if err != nil {
		return nil, mapError(err, store.EntityGrant, customerID)
	}
	defer rows.Close()

	var out []models.LoyaltyGrant
	for rows.Next() {
		var g models.LoyaltyGrant
		if err := rows.Scan(&g.ID, &g.CustomerID, &g.Points, &g.Remaining, &g.CreatedAt); err != nil {
			return nil, mapError(err, store.EntityGrant, customerID)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (t *tx) Grants(ctx context.Context, customerID int64) ([]models.LoyaltyGrant, error) {
	return t.queryGrants(ctx, database.GetGrantsSQL, customerID)
}

func (t *tx) LockGrants(ctx context.Context, customerID int64) ([]models.LoyaltyGrant, error) {
	return t.queryGrants(ctx, database.LockGrantsSQL, customerID)
}

func (t *tx) UpdateGrantRemaining(ctx context.Context, id int64, remaining int) error {
	tag, err := t.tx.Exec(ctx, database.UpdateGrantRemainingSQL, id, remaining)
	return expectRow(tag, err, store.EntityGrant, id)
}

func (t *tx) DeleteGrants(ctx context.Context, customerID int64) error {
	_, err := t.tx.Exec(ctx, database.DeleteGrantsSQL, customerID)
	return mapError(err, store.EntityGrant, customerID)
}

func scanCoupon(row pgx.Row) (*models.Coupon, error) {
	var c models.Coupon
	if err := row.Scan(&c.ID, &c.CustomerID, &c.DiscountAmount, &c.CreatedAt, &c.ExpiresAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (t *tx) InsertCoupon(ctx context.Context, c *models.Coupon) error {
	err := t.tx.QueryRow(ctx, database.InsertCouponSQL, c.CustomerID, c.DiscountAmount, c.CreatedAt, c.ExpiresAt).Scan(&c.ID)
	return mapError(err, store.EntityCustomer, c.CustomerID)
}

func (t *tx) LockCoupon(ctx context.Context, id int64) (*models.Coupon, error) {
	c, err := scanCoupon(t.tx.QueryRow(ctx, database.LockCouponSQL, id))
	if err != nil {
		return nil, mapError(err, store.EntityCoupon, id)
	}
	return c, nil
}

func (t *tx) Coupons(ctx context.Context, customerID int64) ([]models.Coupon, error) {
	rows, err := t.tx.Query(ctx, database.GetCouponsSQL, customerID)
	if err != nil {
		return nil, mapError(err, store.EntityCoupon, customerID)
	}
	defer rows.Close()

	var out []models.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, mapError(err, store.EntityCoupon, customerID)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (t *tx) DeleteCoupon(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, database.DeleteCouponSQL, id)
	return expectRow(tag, err, store.EntityCoupon, id)
}
