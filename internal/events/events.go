// Package events fans order events out to the configured sinks. Sinks run
// after the order transaction committed; a failing sink never undoes it.
package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"pizza-lovers/internal/models"
)

// Publisher delivers one order event
type Publisher interface {
	Publish(ctx context.Context, ev models.OrderEvent) error
}

// Nop drops every event
type Nop struct{}

func (Nop) Publish(context.Context, models.OrderEvent) error { return nil }

// Multi publishes to every sink and joins their errors
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev models.OrderEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps published events in memory
type Recorder struct {
	mu     sync.Mutex
	events []models.OrderEvent
}

func (r *Recorder) Publish(_ context.Context, ev models.OrderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of what was published so far
func (r *Recorder) Events() []models.OrderEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.OrderEvent(nil), r.events...)
}

// Created builds the event for a newly placed order
func Created(o *models.Order, changedBy string) models.OrderEvent {
	return models.OrderEvent{
		EventID:   uuid.NewString(),
		Type:      models.EventOrderCreated,
		OrderID:   o.ID,
		NewStatus: o.Status,
		ChangedBy: changedBy,
		Total:     o.Total,
		Timestamp: time.Now().UTC(),
	}
}

// StatusChanged builds the event for an applied transition
func StatusChanged(o *models.Order, from models.OrderStatus, changedBy string) models.OrderEvent {
	return models.OrderEvent{
		EventID:          uuid.NewString(),
		Type:             models.EventStatusChanged,
		OrderID:          o.ID,
		OldStatus:        from,
		NewStatus:        o.Status,
		ChangedBy:        changedBy,
		Total:            o.Total,
		DeliveryPersonID: o.DeliveryPersonID,
		Timestamp:        time.Now().UTC(),
	}
}
