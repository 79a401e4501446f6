package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FoodItem is a menu entry. Stock only goes down, through order creation.
type FoodItem struct {
	ID          int64           `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	Category    string          `json:"category" db:"category"`
	UnitPrice   decimal.Decimal `json:"unit_price" db:"unit_price"`
	Stock       int             `json:"stock" db:"stock"`
	Image       *string         `json:"image,omitempty" db:"image"`
	Active      bool            `json:"active" db:"active"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// HasStock reports whether quantity units can be taken from the item
func (f *FoodItem) HasStock(quantity int) bool {
	return f.Stock >= quantity
}
