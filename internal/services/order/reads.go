package order

import (
	"context"

	"pizza-lovers/internal/apperr"
	"pizza-lovers/internal/models"
	"pizza-lovers/internal/store"
)

// Page is one page of a listing with the total number of matches
type Page struct {
	Orders []models.Order `json:"results"`
	Count  int            `json:"count"`
	Page   int            `json:"page"`
	Size   int            `json:"page_size"`
}

// Get returns any order, for staff
func (s *Service) Get(ctx context.Context, id int64) (*models.Order, error) {
	var o *models.Order
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		o, err = tx.GetOrder(ctx, id)
		return err
	})
	return o, err
}

// GetForCustomer returns the order only to the customer who placed it.
// Orders of other customers are reported as missing.
func (s *Service) GetForCustomer(ctx context.Context, customerID, id int64) (*models.Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.CustomerID == nil || *o.CustomerID != customerID {
		return nil, apperr.NotFound(store.EntityOrder, id)
	}
	return o, nil
}

// List returns a page of orders matching f, newest first
func (s *Service) List(ctx context.Context, f models.OrderFilter) (*Page, error) {
	f.Page = f.Page.Normalize()
	out := &Page{Page: f.Page.Number, Size: f.Page.Size}
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out.Orders, out.Count, err = tx.ListOrders(ctx, f)
		return err
	})
	if err != nil {
		return nil, err
	}
	if out.Orders == nil {
		out.Orders = []models.Order{}
	}
	return out, nil
}

func (s *Service) ListForCustomer(ctx context.Context, customerID int64, page models.Page) (*Page, error) {
	return s.List(ctx, models.OrderFilter{CustomerID: &customerID, Page: page})
}

func (s *Service) ListForCourier(ctx context.Context, courierID int64, page models.Page) (*Page, error) {
	return s.List(ctx, models.OrderFilter{DeliveryPersonID: &courierID, Page: page})
}

// History returns the status changes of an order, oldest first
func (s *Service) History(ctx context.Context, id int64) ([]models.StatusLogEntry, error) {
	var entries []models.StatusLogEntry
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetOrder(ctx, id); err != nil {
			return err
		}
		var err error
		entries, err = tx.StatusLog(ctx, id)
		return err
	})
	return entries, err
}
