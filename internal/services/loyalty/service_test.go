package loyalty

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pizza-lovers/internal/apperr"
	"pizza-lovers/internal/logger"
	"pizza-lovers/internal/models"
	"pizza-lovers/internal/store"
	"pizza-lovers/internal/store/memory"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*memory.Store, int64) {
	t.Helper()
	st := memory.New()
	var id int64
	require.NoError(t, st.InTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		c := &models.Customer{Username: "maria", Phone: "50312345678"}
		err := tx.CreateCustomer(ctx, c)
		id = c.ID
		return err
	}))
	return st, id
}

func TestPointsDiscount(t *testing.T) {
	tests := []struct {
		points int
		want   string
	}{
		{0, "0"},
		{9, "0"},
		{10, "5"},
		{19, "5"},
		{25, "10"},
		{100, "50"},
	}
	for _, tt := range tests {
		assert.True(t, decimal.RequireFromString(tt.want).Equal(PointsDiscount(tt.points)), "points=%d", tt.points)
	}
}

func TestBalance_ExpiryBoundary(t *testing.T) {
	st, customerID := setup(t)
	svc := NewService(st, logger.Discard()).WithClock(func() time.Time { return base })

	_, err := svc.Grant(context.Background(), customerID, 10)
	require.NoError(t, err)

	tests := []struct {
		name string
		at   time.Time
		want int
	}{
		{"fresh", base, 10},
		{"one second before boundary", base.Add(models.PointsValidity - time.Second), 10},
		{"exactly at boundary", base.Add(models.PointsValidity), 0},
		{"after boundary", base.Add(models.PointsValidity + time.Hour), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at := tt.at
			svc.WithClock(func() time.Time { return at })
			got, err := svc.Balance(context.Background(), customerID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	svc.WithClock(func() time.Time { return base.Add(models.PointsValidity * 2) })
	sum, err := svc.Summary(context.Background(), customerID)
	require.NoError(t, err)
	assert.Len(t, sum.Grants, 1, "expired grants are kept")
}

func TestConsume_OldestFirstSkippingExpired(t *testing.T) {
	st, customerID := setup(t)
	ctx := context.Background()
	now := base.Add(70 * 24 * time.Hour)

	require.NoError(t, st.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		_, err := Grant(ctx, tx, customerID, 50, base)
		require.NoError(t, err)
		_, err = Grant(ctx, tx, customerID, 10, now.Add(-48*time.Hour))
		require.NoError(t, err)
		_, err = Grant(ctx, tx, customerID, 10, now.Add(-24*time.Hour))
		return err
	}))

	require.NoError(t, st.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		grants, balance, err := LockBalance(ctx, tx, customerID, now)
		require.NoError(t, err)
		assert.Equal(t, 20, balance)
		return Consume(ctx, tx, grants, 15, now)
	}))

	_ = st.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		grants, err := tx.Grants(ctx, customerID)
		require.NoError(t, err)
		require.Len(t, grants, 3)
		assert.Equal(t, 50, grants[0].Remaining, "expired grant untouched")
		assert.Equal(t, 0, grants[1].Remaining)
		assert.Equal(t, 5, grants[2].Remaining)
		return nil
	})
}

func TestConsume_Insufficient(t *testing.T) {
	st, customerID := setup(t)
	err := st.InTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		if _, err := Grant(ctx, tx, customerID, 5, base); err != nil {
			return err
		}
		grants, _, err := LockBalance(ctx, tx, customerID, base)
		if err != nil {
			return err
		}
		return Consume(ctx, tx, grants, 10, base)
	})
	var conflict apperr.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, apperr.RuleInsufficientPoints, conflict.Rule)
}

func TestGrant_RejectsNonPositive(t *testing.T) {
	st, customerID := setup(t)
	svc := NewService(st, logger.Discard())

	_, err := svc.Grant(context.Background(), customerID, 0)
	var invalid apperr.ValidationError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "points", invalid.Field)
}

func TestCreateCoupon_Defaults(t *testing.T) {
	st, customerID := setup(t)
	svc := NewService(st, logger.Discard()).WithClock(func() time.Time { return base })

	c, err := svc.CreateCoupon(context.Background(), CouponRequest{CustomerID: customerID})
	require.NoError(t, err)
	assert.True(t, DefaultCouponDiscount.Equal(c.DiscountAmount))
	assert.Equal(t, base.Add(5*24*time.Hour), c.ExpiresAt)

	svc.WithClock(func() time.Time { return base.Add(5 * 24 * time.Hour) })
	sum, err := svc.Summary(context.Background(), customerID)
	require.NoError(t, err)
	assert.Empty(t, sum.Coupons, "coupon is invalid exactly at expiry")
}

func TestDeleteCoupon_Logs(t *testing.T) {
	st, customerID := setup(t)
	var out bytes.Buffer
	svc := NewService(st, logger.NewWithWriter("test", &out)).WithClock(func() time.Time { return base })
	ctx := context.Background()

	c, err := svc.CreateCoupon(ctx, CouponRequest{CustomerID: customerID})
	require.NoError(t, err)
	out.Reset()

	require.NoError(t, svc.DeleteCoupon(ctx, c.ID))
	assert.Contains(t, out.String(), `"action":"coupon_deleted"`)

	out.Reset()
	err = svc.DeleteCoupon(ctx, c.ID)
	var nf apperr.NotFoundError
	assert.True(t, errors.As(err, &nf))
	assert.NotContains(t, out.String(), "coupon_deleted")
}

func TestLockCouponFor(t *testing.T) {
	st, customerID := setup(t)
	ctx := context.Background()
	var otherID, couponID int64

	require.NoError(t, st.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		other := &models.Customer{Username: "pedro"}
		if err := tx.CreateCustomer(ctx, other); err != nil {
			return err
		}
		otherID = other.ID
		c, err := IssueCoupon(ctx, tx, customerID, decimal.Zero, time.Time{}, base)
		couponID = c.ID
		return err
	}))

	tests := []struct {
		name     string
		customer int64
		at       time.Time
		check    func(t *testing.T, err error)
	}{
		{"owner before expiry", customerID, base.Add(time.Hour), func(t *testing.T, err error) {
			require.NoError(t, err)
		}},
		{"other customer", otherID, base, func(t *testing.T, err error) {
			var nf apperr.NotFoundError
			require.ErrorAs(t, err, &nf)
		}},
		{"expired", customerID, base.Add(6 * 24 * time.Hour), func(t *testing.T, err error) {
			var conflict apperr.ConflictError
			require.ErrorAs(t, err, &conflict)
			assert.Equal(t, apperr.RuleCouponExpired, conflict.Rule)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := st.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
				_, err := LockCouponFor(ctx, tx, tt.customer, couponID, tt.at)
				return err
			})
			tt.check(t, err)
		})
	}
}

func TestRewardCompletion_CouponEveryThirdPurchase(t *testing.T) {
	st, customerID := setup(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		var r *Reward
		require.NoError(t, st.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
			var err error
			r, err = RewardCompletion(ctx, tx, customerID, base)
			return err
		}))
		assert.Equal(t, i, r.Purchases)
		assert.Equal(t, CompletionPoints, r.Grant.Points)
		if i == 3 {
			require.NotNil(t, r.Coupon)
			assert.True(t, decimal.NewFromInt(10).Equal(r.Coupon.DiscountAmount))
		} else {
			assert.Nil(t, r.Coupon)
		}
	}
}
