package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfillment state of an order
type OrderStatus string

const (
	StatusPending    OrderStatus = "Pendiente"
	StatusWaiting    OrderStatus = "En_Espera"
	StatusKitchen    OrderStatus = "Cocina"
	StatusReady      OrderStatus = "Listo"
	StatusInDelivery OrderStatus = "InDelivery"
	StatusDelivered  OrderStatus = "Entregado"
	StatusCancelled  OrderStatus = "Cancelado"
)

// AllStatuses lists every status in lifecycle order
var AllStatuses = []OrderStatus{
	StatusPending, StatusWaiting, StatusKitchen, StatusReady,
	StatusInDelivery, StatusDelivered, StatusCancelled,
}

// ParseStatus validates a status name
func ParseStatus(s string) (OrderStatus, bool) {
	for _, st := range AllStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// IsTerminal reports whether no further transition can leave the status
func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Order is a placed order. Lines are a frozen snapshot of the catalog at
// creation time; contact fields are copied so the order stays readable after
// the customer profile is gone.
type Order struct {
	ID                int64           `json:"id" db:"id"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	Description       string          `json:"description" db:"description"`
	Address           string          `json:"address" db:"address"`
	Status            OrderStatus     `json:"status" db:"status"`
	CustomerID        *int64          `json:"customer_id,omitempty" db:"customer_id"`
	OrderManagerID    *int64          `json:"order_manager_id,omitempty" db:"order_manager_id"`
	OrderDispatcherID *int64          `json:"order_dispatcher_id,omitempty" db:"order_dispatcher_id"`
	DeliveryPersonID  *int64          `json:"delivery_person_id,omitempty" db:"delivery_person_id"`
	CustomerName      string          `json:"customer_name" db:"customer_name"`
	CustomerEmail     string          `json:"customer_email" db:"customer_email"`
	CustomerPhone     string          `json:"customer_phone" db:"customer_phone"`
	Total             decimal.Decimal `json:"total_price" db:"total_price"`
	Lines             []OrderLine     `json:"items"`
}

// OrderLine is one line of an order, copied from the catalog
type OrderLine struct {
	ID          int64           `json:"id" db:"id"`
	OrderID     int64           `json:"order_id" db:"order_id"`
	FoodItemID  *int64          `json:"food_item_id,omitempty" db:"food_item_id"`
	Name        string          `json:"name" db:"name"`
	UnitPrice   decimal.Decimal `json:"unit_price" db:"unit_price"`
	Description string          `json:"description" db:"description"`
	Image       *string         `json:"image,omitempty" db:"image"`
	Quantity    int             `json:"quantity" db:"quantity"`
}

// Subtotal is the sum of unit price times quantity over the lines
func (o *Order) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}

// StatusLogEntry records one applied transition
type StatusLogEntry struct {
	ID         int64       `json:"id" db:"id"`
	OrderID    int64       `json:"order_id" db:"order_id"`
	FromStatus OrderStatus `json:"from_status,omitempty" db:"from_status"`
	ToStatus   OrderStatus `json:"to_status" db:"to_status"`
	ChangedBy  string      `json:"changed_by" db:"changed_by"`
	ChangedAt  time.Time   `json:"changed_at" db:"changed_at"`
	Notes      string      `json:"notes,omitempty" db:"notes"`
}

// OrderFilter narrows order listings. Zero fields do not filter.
type OrderFilter struct {
	Status           OrderStatus
	CustomerID       *int64
	DeliveryPersonID *int64
	Page             Page
}
