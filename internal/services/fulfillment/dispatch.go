package fulfillment

import (
	"context"
	"fmt"

	"pizza-lovers/internal/apperr"
	"pizza-lovers/internal/models"
	"pizza-lovers/internal/store"
)

// Dispatch moves an order as an order dispatcher. Moving a Cocina order
// straight to InDelivery hands it to the least busy online courier.
func (s *Service) Dispatch(ctx context.Context, dispatcherID, orderID int64, target models.OrderStatus) (*Result, error) {
	if !isDispatcherTarget(target) {
		return nil, apperr.Invalid("status", "must be one of "+joinStatuses(DispatcherTargets))
	}

	actor := Actor{Role: models.RoleDispatcher, ID: dispatcherID}
	return s.transition(ctx, actor, models.RoleDispatcher, orderID, target,
		func(ctx context.Context, tx store.Tx, c *change, eff effect) error {
			if err := linkDispatcher(ctx, tx, c.order, dispatcherID); err != nil {
				return err
			}
			if eff != effectAutoAssign {
				return nil
			}
			courier, err := leastBusyCourier(ctx, tx)
			if err != nil {
				return err
			}
			c.order.DeliveryPersonID = &courier.ID
			c.notes = fmt.Sprintf("assigned to delivery person %s (%d active orders)", courier.Username, courier.Load)
			return nil
		})
}

// Assign hands a Listo order without courier to the chosen courier
func (s *Service) Assign(ctx context.Context, dispatcherID, orderID, courierID int64) (*Result, error) {
	actor := Actor{Role: models.RoleDispatcher, ID: dispatcherID}
	return s.transition(ctx, actor, roleAssign, orderID, models.StatusInDelivery,
		func(ctx context.Context, tx store.Tx, c *change, _ effect) error {
			if c.order.DeliveryPersonID != nil {
				return apperr.Conflict(apperr.RuleCourierAssigned,
					"order %d already has delivery person %d", c.order.ID, *c.order.DeliveryPersonID)
			}
			courier, err := tx.LockCourier(ctx, courierID)
			if err != nil {
				return err
			}
			if err := linkDispatcher(ctx, tx, c.order, dispatcherID); err != nil {
				return err
			}
			c.order.DeliveryPersonID = &courier.ID
			c.notes = fmt.Sprintf("assigned to delivery person %s", courier.Username)
			return nil
		})
}

func isDispatcherTarget(s models.OrderStatus) bool {
	for _, t := range DispatcherTargets {
		if t == s {
			return true
		}
	}
	return false
}

func linkDispatcher(ctx context.Context, tx store.Tx, o *models.Order, dispatcherID int64) error {
	if _, err := tx.GetStaff(ctx, models.RoleDispatcher, dispatcherID); err != nil {
		return err
	}
	o.OrderDispatcherID = &dispatcherID
	return nil
}

// leastBusyCourier picks the online courier with the fewest active orders,
// lowest id first on ties. The candidates stay locked until commit.
func leastBusyCourier(ctx context.Context, tx store.Tx) (*models.DeliveryPerson, error) {
	online, err := tx.LockOnlineCouriersByLoad(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load online couriers: %w", err)
	}
	if len(online) == 0 {
		return nil, apperr.Conflict(apperr.RuleNoCourierOnline, "no delivery person is online")
	}
	return &online[0], nil
}
