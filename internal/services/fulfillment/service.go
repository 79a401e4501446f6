// Package fulfillment moves orders through their lifecycle. Every status
// change is decided by one transition table keyed by (role, from, to) and is
// applied, logged and rewarded in a single transaction.
package fulfillment

import (
	"context"
	"fmt"
	"time"

	"pizza-lovers/internal/apperr"
	"pizza-lovers/internal/events"
	"pizza-lovers/internal/logger"
	"pizza-lovers/internal/models"
	"pizza-lovers/internal/services/loyalty"
	"pizza-lovers/internal/store"
)

// Actor is the authenticated profile acting on an order
type Actor struct {
	Role models.Role
	ID   int64
}

func (a Actor) String() string {
	return fmt.Sprintf("%s:%d", a.Role, a.ID)
}

// Result is the order after an applied transition
type Result struct {
	Order  *models.Order      `json:"order"`
	From   models.OrderStatus `json:"from_status"`
	Reward *loyalty.Reward    `json:"-"`
}

type Service struct {
	store     store.Store
	publisher events.Publisher
	logger    *logger.Logger
	now       func() time.Time
	onApplied func(from, to models.OrderStatus)
}

func NewService(st store.Store, pub events.Publisher, log *logger.Logger) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{
		store:     st,
		publisher: pub,
		logger:    log,
		now:       time.Now,
		onApplied: func(models.OrderStatus, models.OrderStatus) {},
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// OnApplied registers a hook run after every committed transition
func (s *Service) OnApplied(fn func(from, to models.OrderStatus)) *Service {
	s.onApplied = fn
	return s
}

// change is one transition being applied inside a transaction
type change struct {
	actor  Actor
	order  *models.Order
	from   models.OrderStatus
	notes  string
	reward *loyalty.Reward
}

// apply persists the new status with its log entry and runs the completion
// accrual when the effect asks for it
func (s *Service) apply(ctx context.Context, tx store.Tx, c *change, eff effect, now time.Time) error {
	if eff == effectComplete && c.order.CustomerID != nil {
		reward, err := loyalty.RewardCompletion(ctx, tx, *c.order.CustomerID, now)
		if err != nil {
			return err
		}
		c.reward = reward
	}
	if err := tx.UpdateOrder(ctx, c.order); err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	entry := &models.StatusLogEntry{
		OrderID:    c.order.ID,
		FromStatus: c.from,
		ToStatus:   c.order.Status,
		ChangedBy:  c.actor.String(),
		ChangedAt:  now,
		Notes:      c.notes,
	}
	if err := tx.AppendStatusLog(ctx, entry); err != nil {
		return fmt.Errorf("failed to log status change: %w", err)
	}
	return nil
}

// transition locks the order, asks the table for the move and applies it.
// prepare may reject the move or fill the staff links before it is saved.
func (s *Service) transition(ctx context.Context, actor Actor, tableRole models.Role, orderID int64, to models.OrderStatus,
	prepare func(ctx context.Context, tx store.Tx, c *change, eff effect) error) (*Result, error) {
	now := s.now().UTC()
	var c *change

	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		c = &change{actor: actor, order: o, from: o.Status}
		if err := s.authorize(c); err != nil {
			return err
		}

		eff, ok := lookup(tableRole, o.Status, to)
		if !ok {
			return apperr.Conflict(apperr.RuleIllegalTransition,
				"order %d cannot move from %s to %s; legal targets: %s",
				o.ID, o.Status, to, joinStatuses(legalTargets(tableRole, o.Status)))
		}
		if prepare != nil {
			if err := prepare(ctx, tx, c, eff); err != nil {
				return err
			}
		}
		o.Status = to
		if c.notes == "" {
			c.notes = fmt.Sprintf("status changed to %s by %s", to, actor)
		}
		return s.apply(ctx, tx, c, eff, now)
	})
	if err != nil {
		return nil, err
	}

	s.committed(ctx, c)
	return &Result{Order: c.order, From: c.from, Reward: c.reward}, nil
}

// authorize checks the actor may touch the order at all
func (s *Service) authorize(c *change) error {
	o := c.order
	switch c.actor.Role {
	case models.RoleDeliveryPerson:
		if o.DeliveryPersonID == nil || *o.DeliveryPersonID != c.actor.ID {
			return apperr.Forbidden("order %d is not assigned to delivery person %d", o.ID, c.actor.ID)
		}
	case models.RoleCustomer:
		if o.CustomerID == nil || *o.CustomerID != c.actor.ID {
			return apperr.NotFound(store.EntityOrder, o.ID)
		}
	}
	return nil
}

// committed logs and publishes an applied transition
func (s *Service) committed(ctx context.Context, c *change) {
	fields := map[string]interface{}{
		"order_id":   c.order.ID,
		"old_status": c.from,
		"new_status": c.order.Status,
		"changed_by": c.actor.String(),
	}
	if c.order.DeliveryPersonID != nil {
		fields["delivery_person_id"] = *c.order.DeliveryPersonID
	}
	if c.reward != nil {
		fields["purchases"] = c.reward.Purchases
		fields["coupon_issued"] = c.reward.Coupon != nil
	}
	s.logger.Info("order_status_changed", fmt.Sprintf("Order %d moved to %s", c.order.ID, c.order.Status),
		logger.RequestID(ctx), fields)
	s.onApplied(c.from, c.order.Status)

	if err := s.publisher.Publish(ctx, events.StatusChanged(c.order, c.from, c.actor.String())); err != nil {
		s.logger.Error("event_publish_failed", "Failed to publish status change", logger.RequestID(ctx), err,
			map[string]interface{}{"order_id": c.order.ID})
	}
}
