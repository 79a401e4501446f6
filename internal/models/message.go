package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types carried in OrderEvent.Type
const (
	EventOrderCreated  = "order_created"
	EventStatusChanged = "status_changed"
)

// OrderEvent is published after an order is created or changes status
type OrderEvent struct {
	EventID          string          `json:"event_id"`
	Type             string          `json:"type"`
	OrderID          int64           `json:"order_id"`
	OldStatus        OrderStatus     `json:"old_status,omitempty"`
	NewStatus        OrderStatus     `json:"new_status"`
	ChangedBy        string          `json:"changed_by"`
	Total            decimal.Decimal `json:"total_price"`
	DeliveryPersonID *int64          `json:"delivery_person_id,omitempty"`
	Timestamp        time.Time       `json:"timestamp"`
}

// RoutingKey is the orders_topic routing key of the event
func (e *OrderEvent) RoutingKey() string {
	return "orders." + e.Type + "." + string(e.NewStatus)
}
