package fulfillment

import (
	"context"

	"pizza-lovers/internal/models"
)

// Deliver reports the outcome of a delivery as the assigned courier. Entregado
// also credits the customer with the completion reward.
func (s *Service) Deliver(ctx context.Context, courierID, orderID int64, target models.OrderStatus) (*Result, error) {
	actor := Actor{Role: models.RoleDeliveryPerson, ID: courierID}
	return s.transition(ctx, actor, models.RoleDeliveryPerson, orderID, target, nil)
}

// Cancel cancels a non-terminal order as its customer or an order manager
func (s *Service) Cancel(ctx context.Context, actor Actor, orderID int64) (*Result, error) {
	return s.transition(ctx, actor, actor.Role, orderID, models.StatusCancelled, nil)
}
