// Package account manages the profiles behind every role: customers (with
// their cart), order managers, order dispatchers and delivery persons.
package account

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"pizza-lovers/internal/apperr"
	"pizza-lovers/internal/logger"
	"pizza-lovers/internal/models"
	"pizza-lovers/internal/store"
)

type Service struct {
	store  store.Store
	logger *logger.Logger
	now    func() time.Time
}

func NewService(st store.Store, log *logger.Logger) *Service {
	return &Service{store: st, logger: log, now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CustomerRequest registers a customer
type CustomerRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

// ProfileRequest creates a staff member or a delivery person
type ProfileRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

func validateProfile(username, email string) apperr.ValidationErrors {
	var errs apperr.ValidationErrors
	switch u := strings.TrimSpace(username); {
	case u == "":
		errs = append(errs, apperr.ValidationError{Field: "username", Message: "is required"})
	case len(u) > 150:
		errs = append(errs, apperr.ValidationError{Field: "username", Message: "must be at most 150 characters"})
	}
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			errs = append(errs, apperr.ValidationError{Field: "email", Message: "is not a valid email address"})
		}
	}
	return errs
}

func (r *CustomerRequest) validate() error {
	errs := validateProfile(r.Username, r.Email)
	if len(r.Phone) > 20 {
		errs = append(errs, apperr.ValidationError{Field: "phone", Message: "must be at most 20 characters"})
	}
	for _, c := range r.Phone {
		if c < '0' || c > '9' {
			errs = append(errs, apperr.ValidationError{Field: "phone", Message: "must contain only digits"})
			break
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// RegisterCustomer creates the customer profile together with its empty cart
func (s *Service) RegisterCustomer(ctx context.Context, req CustomerRequest) (*models.Customer, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	c := &models.Customer{
		Username:  strings.TrimSpace(req.Username),
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Address:   strings.TrimSpace(req.Address),
		CreatedAt: s.now().UTC(),
	}
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.CreateCustomer(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("customer_registered", fmt.Sprintf("Customer %s registered", c.Username), logger.RequestID(ctx),
		map[string]interface{}{"customer_id": c.ID})
	return c, nil
}

func (s *Service) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	var c *models.Customer
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		c, err = tx.GetCustomer(ctx, id)
		return err
	})
	return c, err
}

// DeleteCustomer removes the customer unless an order of theirs is still
// open. Finished orders keep their contact snapshot and lose the link.
func (s *Service) DeleteCustomer(ctx context.Context, id int64) error {
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.LockCustomer(ctx, id); err != nil {
			return err
		}
		open, err := tx.CountOpenOrders(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to count open orders: %w", err)
		}
		if open > 0 {
			return apperr.Conflict(apperr.RuleCustomerHasOrders, "customer %d still has %d open orders", id, open)
		}
		return tx.DeleteCustomer(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("customer_deleted", "Customer deleted", logger.RequestID(ctx), map[string]interface{}{"customer_id": id})
	return nil
}

// CreateStaff creates an order manager or an order dispatcher
func (s *Service) CreateStaff(ctx context.Context, role models.Role, req ProfileRequest) (*models.Staff, error) {
	if role != models.RoleOrderManager && role != models.RoleDispatcher {
		return nil, apperr.Invalid("role", "must be order_manager or order_dispatcher")
	}
	if errs := validateProfile(req.Username, req.Email); len(errs) > 0 {
		return nil, errs
	}
	st := &models.Staff{
		Role:      role,
		Username:  strings.TrimSpace(req.Username),
		Email:     req.Email,
		CreatedAt: s.now().UTC(),
	}
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.CreateStaff(ctx, st)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("staff_created", fmt.Sprintf("Created %s %s", role, st.Username), logger.RequestID(ctx),
		map[string]interface{}{"staff_id": st.ID, "role": role})
	return st, nil
}

// DeleteStaff removes the profile; orders it handled keep no link to it
func (s *Service) DeleteStaff(ctx context.Context, role models.Role, id int64) error {
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.DeleteStaff(ctx, role, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info("staff_deleted", fmt.Sprintf("Deleted %s %d", role, id), logger.RequestID(ctx), nil)
	return nil
}

func (s *Service) CreateCourier(ctx context.Context, req ProfileRequest) (*models.DeliveryPerson, error) {
	if errs := validateProfile(req.Username, req.Email); len(errs) > 0 {
		return nil, errs
	}
	d := &models.DeliveryPerson{
		Username:  strings.TrimSpace(req.Username),
		Email:     req.Email,
		CreatedAt: s.now().UTC(),
	}
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.CreateCourier(ctx, d)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("courier_created", fmt.Sprintf("Created delivery person %s", d.Username), logger.RequestID(ctx),
		map[string]interface{}{"delivery_person_id": d.ID})
	return d, nil
}

// DeleteCourier removes a delivery person that carries no active order
func (s *Service) DeleteCourier(ctx context.Context, id int64) error {
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		d, err := tx.LockCourier(ctx, id)
		if err != nil {
			return err
		}
		if d.Load > 0 {
			return apperr.Conflict(apperr.RuleCourierBusy, "delivery person %d still has %d active orders", id, d.Load)
		}
		return tx.DeleteCourier(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info("courier_deleted", "Delivery person deleted", logger.RequestID(ctx),
		map[string]interface{}{"delivery_person_id": id})
	return nil
}
