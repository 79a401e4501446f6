package fulfillment

import (
	"context"
	"fmt"

	"pizza-lovers/internal/apperr"
	"pizza-lovers/internal/logger"
	"pizza-lovers/internal/store"
)

// Delete removes a finished order. Couriers and customers may delete their
// own Cancelado or Entregado orders, order managers any Cancelado order.
func (s *Service) Delete(ctx context.Context, actor Actor, orderID int64) error {
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if err := s.authorize(&change{actor: actor, order: o}); err != nil {
			return err
		}
		if !canDelete(actor.Role, o.Status) {
			return apperr.Conflict(apperr.RuleNotDeletable,
				"order %d is %s and cannot be deleted by %s", o.ID, o.Status, actor.Role)
		}
		if err := tx.DeleteOrder(ctx, o.ID); err != nil {
			return fmt.Errorf("failed to delete order: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("order_deleted", fmt.Sprintf("Order %d deleted", orderID), logger.RequestID(ctx), map[string]interface{}{
		"order_id":   orderID,
		"deleted_by": actor.String(),
	})
	return nil
}
