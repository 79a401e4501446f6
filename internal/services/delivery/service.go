// Package delivery is the directory of delivery persons: who is online and
// how many active orders each one carries.
package delivery

import (
	"context"
	"fmt"

	"pizza-lovers/internal/logger"
	"pizza-lovers/internal/models"
	"pizza-lovers/internal/store"
)

// Service provides the delivery person directory
type Service struct {
	store  store.Store
	logger *logger.Logger
}

// NewService creates a new directory service
func NewService(st store.Store, log *logger.Logger) *Service {
	return &Service{store: st, logger: log}
}

// Page is one page of couriers with the total number of matches
type Page struct {
	Couriers []models.DeliveryPerson `json:"results"`
	Count    int                     `json:"count"`
	Page     int                     `json:"page"`
	Size     int                     `json:"page_size"`
}

// SetOnline marks the courier online or offline. Setting the current value
// again is not an error.
func (s *Service) SetOnline(ctx context.Context, id int64, online bool) (*models.DeliveryPerson, error) {
	return s.update(ctx, id, func(bool) bool { return online })
}

// Toggle flips the courier's online flag
func (s *Service) Toggle(ctx context.Context, id int64) (*models.DeliveryPerson, error) {
	return s.update(ctx, id, func(current bool) bool { return !current })
}

// update reads the flag under the courier's row lock and writes next(flag)
// in the same transaction
func (s *Service) update(ctx context.Context, id int64, next func(current bool) bool) (*models.DeliveryPerson, error) {
	var d *models.DeliveryPerson
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		locked, err := tx.LockCourier(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.SetCourierOnline(ctx, id, next(locked.IsOnline)); err != nil {
			return fmt.Errorf("failed to update courier: %w", err)
		}
		d, err = tx.GetCourier(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("courier_status_changed", fmt.Sprintf("Delivery person %s is now %s", d.Username, onlineWord(d.IsOnline)),
		logger.RequestID(ctx), map[string]interface{}{
			"delivery_person_id": id,
			"is_online":          d.IsOnline,
			"active_orders":      d.Load,
		})
	return d, nil
}

// Get returns the courier with its active load
func (s *Service) Get(ctx context.Context, id int64) (*models.DeliveryPerson, error) {
	var d *models.DeliveryPerson
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		d, err = tx.GetCourier(ctx, id)
		return err
	})
	return d, err
}

// ActiveLoad counts the courier's assigned orders that are not finished
func (s *Service) ActiveLoad(ctx context.Context, id int64) (int, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return d.Load, nil
}

// List returns a page of couriers, optionally only the online or offline ones
func (s *Service) List(ctx context.Context, online *bool, page models.Page) (*Page, error) {
	page = page.Normalize()
	out := &Page{Page: page.Number, Size: page.Size}
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out.Couriers, out.Count, err = tx.ListCouriers(ctx, online, page)
		return err
	})
	if err != nil {
		return nil, err
	}
	if out.Couriers == nil {
		out.Couriers = []models.DeliveryPerson{}
	}
	return out, nil
}

func onlineWord(online bool) string {
	if online {
		return "online"
	}
	return "offline"
}
