package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pizza-lovers/internal/apperr"
	"pizza-lovers/internal/models"
	"pizza-lovers/internal/store"
)

func seedItem(t *testing.T, s *Store, stock int) int64 {
	t.Helper()
	var id int64
	err := s.InTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		item := &models.FoodItem{Name: "Pepperoni", UnitPrice: decimal.NewFromInt(6), Stock: stock, Active: true}
		if err := tx.CreateFoodItem(ctx, item); err != nil {
			return err
		}
		id = item.ID
		return nil
	})
	require.NoError(t, err)
	return id
}

func TestInTx_RollbackDiscardsWrites(t *testing.T) {
	s := New()
	id := seedItem(t, s, 10)
	boom := errors.New("boom")

	err := s.InTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		require.NoError(t, tx.DecrementStock(ctx, id, 4))
		item, err := tx.GetFoodItem(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 6, item.Stock)
		return boom
	})
	require.ErrorIs(t, err, boom)

	_ = s.InTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		item, err := tx.GetFoodItem(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 10, item.Stock)
		return nil
	})
}

func TestDecrementStock_NeverNegative(t *testing.T) {
	s := New()
	id := seedItem(t, s, 2)

	err := s.InTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.DecrementStock(ctx, id, 3)
	})
	var conflict apperr.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, apperr.RuleInsufficientStock, conflict.Rule)
}

func TestCouriers_OrderedByLoadThenID(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		for _, name := range []string{"ana", "beto", "carla"} {
			d := &models.DeliveryPerson{Username: name, IsOnline: true}
			if err := tx.CreateCourier(ctx, d); err != nil {
				return err
			}
		}
		busy := int64(1)
		return tx.InsertOrder(ctx, &models.Order{Status: models.StatusInDelivery, DeliveryPersonID: &busy})
	})
	require.NoError(t, err)

	_ = s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		couriers, err := tx.LockOnlineCouriersByLoad(ctx)
		require.NoError(t, err)
		require.Len(t, couriers, 3)
		assert.Equal(t, []int64{2, 3, 1}, []int64{couriers[0].ID, couriers[1].ID, couriers[2].ID})
		assert.Equal(t, 1, couriers[2].Load)
		return nil
	})
}

func TestDeleteStaff_NullsOrderLink(t *testing.T) {
	s := New()
	ctx := context.Background()
	var orderID, managerID int64

	require.NoError(t, s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		m := &models.Staff{Role: models.RoleOrderManager, Username: "mgr"}
		if err := tx.CreateStaff(ctx, m); err != nil {
			return err
		}
		managerID = m.ID
		o := &models.Order{Status: models.StatusWaiting, OrderManagerID: &managerID, CreatedAt: time.Now()}
		if err := tx.InsertOrder(ctx, o); err != nil {
			return err
		}
		orderID = o.ID
		return nil
	}))

	require.NoError(t, s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.DeleteStaff(ctx, models.RoleOrderManager, managerID)
	}))

	_ = s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		o, err := tx.GetOrder(ctx, orderID)
		require.NoError(t, err)
		assert.Nil(t, o.OrderManagerID)
		return nil
	})
}

func TestGetOrder_ReturnsCopy(t *testing.T) {
	s := New()
	ctx := context.Background()
	var id int64
	require.NoError(t, s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		o := &models.Order{Status: models.StatusPending, Lines: []models.OrderLine{{Name: "a", Quantity: 1}}}
		err := tx.InsertOrder(ctx, o)
		id = o.ID
		return err
	}))

	_ = s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		o, _ := tx.GetOrder(ctx, id)
		o.Lines[0].Name = "changed"
		again, _ := tx.GetOrder(ctx, id)
		assert.Equal(t, "a", again.Lines[0].Name)
		return nil
	})
}
