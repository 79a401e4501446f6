package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer is the profile of a self-service user. Every customer owns exactly
// one cart, created together with the profile.
type Customer struct {
	ID        int64     `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Email     string    `json:"email" db:"email"`
	FirstName string    `json:"first_name" db:"first_name"`
	LastName  string    `json:"last_name" db:"last_name"`
	Phone     string    `json:"phone" db:"phone"`
	Address   string    `json:"address" db:"address"`
	Purchases int       `json:"purchases" db:"purchases"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CartLine is one (food item, quantity) pair of a customer's cart
type CartLine struct {
	CustomerID int64 `json:"customer_id" db:"customer_id"`
	FoodItemID int64 `json:"food_item_id" db:"food_item_id"`
	Quantity   int   `json:"quantity" db:"quantity"`
}

// CartLineView is a cart line joined with live catalog data
type CartLineView struct {
	FoodItemID  int64           `json:"food_item_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Stock       int             `json:"stock"`
	Image       *string         `json:"image,omitempty"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// CartView is what a customer sees when opening the cart
type CartView struct {
	Lines            []CartLineView  `json:"cart_items"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	TotalPoints      int             `json:"total_points"`
	AvailableCoupons []Coupon        `json:"available_coupons"`
}
