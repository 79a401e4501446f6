package catalog

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"pizza-lovers/internal/apperr"
	"pizza-lovers/internal/logger"
	"pizza-lovers/internal/models"
	"pizza-lovers/internal/store"
)

// Service manages the menu
type Service struct {
	store  store.Store
	logger *logger.Logger
}

func NewService(st store.Store, log *logger.Logger) *Service {
	return &Service{store: st, logger: log}
}

// ItemRequest creates a menu item
type ItemRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Stock       int             `json:"stock"`
	Image       *string         `json:"image,omitempty"`
}

func (r *ItemRequest) validate() error {
	var errs apperr.ValidationErrors
	if strings.TrimSpace(r.Name) == "" {
		errs = append(errs, apperr.ValidationError{Field: "name", Message: "is required"})
	} else if len(r.Name) > 100 {
		errs = append(errs, apperr.ValidationError{Field: "name", Message: "must be at most 100 characters"})
	}
	if strings.TrimSpace(r.Category) == "" {
		errs = append(errs, apperr.ValidationError{Field: "category", Message: "is required"})
	}
	if r.UnitPrice.IsNegative() {
		errs = append(errs, apperr.ValidationError{Field: "unit_price", Message: "must not be negative"})
	}
	if r.Stock < 0 {
		errs = append(errs, apperr.ValidationError{Field: "stock", Message: "must not be negative"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (s *Service) Create(ctx context.Context, req ItemRequest) (*models.FoodItem, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	item := &models.FoodItem{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Category:    strings.TrimSpace(req.Category),
		UnitPrice:   req.UnitPrice,
		Stock:       req.Stock,
		Image:       req.Image,
		Active:      true,
	}
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.CreateFoodItem(ctx, item)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("food_item_created", "Created menu item", logger.RequestID(ctx), map[string]interface{}{
		"food_item_id": item.ID,
		"name":         item.Name,
		"stock":        item.Stock,
	})
	return item, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*models.FoodItem, error) {
	var item *models.FoodItem
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		item, err = tx.GetFoodItem(ctx, id)
		return err
	})
	return item, err
}

// List returns the menu; activeOnly hides retired items
func (s *Service) List(ctx context.Context, activeOnly bool) ([]models.FoodItem, error) {
	var items []models.FoodItem
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		items, err = tx.ListFoodItems(ctx, activeOnly)
		return err
	})
	return items, err
}

// ItemUpdate changes the fields that are set
type ItemUpdate struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Category    *string          `json:"category,omitempty"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
	Stock       *int             `json:"stock,omitempty"`
	Image       *string          `json:"image,omitempty"`
	Active      *bool            `json:"active,omitempty"`
}

// Update applies u to the item. Existing order lines keep their snapshot.
func (s *Service) Update(ctx context.Context, id int64, u ItemUpdate) (*models.FoodItem, error) {
	var item *models.FoodItem
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		locked, err := tx.LockFoodItems(ctx, []int64{id})
		if err != nil {
			return err
		}
		current, ok := locked[id]
		if !ok {
			return apperr.NotFound(store.EntityFoodItem, id)
		}

		req := ItemRequest{
			Name:        current.Name,
			Description: current.Description,
			Category:    current.Category,
			UnitPrice:   current.UnitPrice,
			Stock:       current.Stock,
			Image:       current.Image,
		}
		if u.Name != nil {
			req.Name = *u.Name
		}
		if u.Description != nil {
			req.Description = *u.Description
		}
		if u.Category != nil {
			req.Category = *u.Category
		}
		if u.UnitPrice != nil {
			req.UnitPrice = *u.UnitPrice
		}
		if u.Stock != nil {
			req.Stock = *u.Stock
		}
		if u.Image != nil {
			req.Image = u.Image
		}
		if err := req.validate(); err != nil {
			return err
		}

		current.Name = strings.TrimSpace(req.Name)
		current.Description = req.Description
		current.Category = strings.TrimSpace(req.Category)
		current.UnitPrice = req.UnitPrice
		current.Stock = req.Stock
		current.Image = req.Image
		if u.Active != nil {
			current.Active = *u.Active
		}
		item = current
		return tx.UpdateFoodItem(ctx, current)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("food_item_updated", "Updated menu item", logger.RequestID(ctx), map[string]interface{}{
		"food_item_id": id,
		"stock":        item.Stock,
		"active":       item.Active,
	})
	return item, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.DeleteFoodItem(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info("food_item_deleted", "Deleted menu item", logger.RequestID(ctx), map[string]interface{}{
		"food_item_id": id,
	})
	return nil
}
