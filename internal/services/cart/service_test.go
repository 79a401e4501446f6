package cart

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pizza-lovers/internal/apperr"
	"pizza-lovers/internal/logger"
	"pizza-lovers/internal/models"
	"pizza-lovers/internal/services/loyalty"
	"pizza-lovers/internal/store"
	"pizza-lovers/internal/store/memory"
)

func TestAddMergesLinesAndView(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	var customerID, pizzaID int64
	require.NoError(t, st.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		c := &models.Customer{Username: "ana"}
		if err := tx.CreateCustomer(ctx, c); err != nil {
			return err
		}
		customerID = c.ID
		item := &models.FoodItem{Name: "Pizza", UnitPrice: decimal.RequireFromString("6.00"), Stock: 10, Active: true}
		if err := tx.CreateFoodItem(ctx, item); err != nil {
			return err
		}
		pizzaID = item.ID
		if _, err := loyalty.Grant(ctx, tx, customerID, 12, now.Add(-time.Hour)); err != nil {
			return err
		}
		_, err := loyalty.IssueCoupon(ctx, tx, customerID, decimal.Zero, now.Add(-time.Minute), now.Add(-6*24*time.Hour))
		return err
	}))

	svc := NewService(st, logger.Discard()).WithClock(func() time.Time { return now })
	require.NoError(t, svc.Add(ctx, customerID, pizzaID, 1))
	require.NoError(t, svc.Add(ctx, customerID, pizzaID, 2))

	view, err := svc.View(ctx, customerID)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 3, view.Lines[0].Quantity)
	assert.True(t, decimal.RequireFromString("18").Equal(view.Subtotal))
	assert.Equal(t, 12, view.TotalPoints)
	assert.Empty(t, view.AvailableCoupons)

	require.NoError(t, svc.Remove(ctx, customerID, pizzaID))
	view, err = svc.View(ctx, customerID)
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
}

func TestAdd_Errors(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	var customerID int64
	require.NoError(t, st.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		c := &models.Customer{Username: "ana"}
		err := tx.CreateCustomer(ctx, c)
		customerID = c.ID
		return err
	}))
	svc := NewService(st, logger.Discard())

	err := svc.Add(ctx, customerID, 1, 0)
	var invalid apperr.ValidationError
	require.ErrorAs(t, err, &invalid)

	err = svc.Add(ctx, customerID, 99, 1)
	var nf apperr.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, store.EntityFoodItem, nf.Entity)
}
