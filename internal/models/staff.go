package models

import "time"

// Role is the role claim carried by an authenticated principal
type Role string

const (
	RoleAdministrator  Role = "administrator"
	RoleCustomer       Role = "customer"
	RoleMenuManager    Role = "menu_manager"
	RoleDeliveryPerson Role = "delivery_person"
	RoleOrderManager   Role = "order_manager"
	RoleDispatcher     Role = "order_dispatcher"
)

// ParseRole validates a role claim
func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleAdministrator, RoleCustomer, RoleMenuManager, RoleDeliveryPerson, RoleOrderManager, RoleDispatcher:
		return r, true
	}
	return "", false
}

// Staff is the profile of an order manager or an order dispatcher
type Staff struct {
	ID        int64     `json:"id" db:"id"`
	Role      Role      `json:"role" db:"role"`
	Username  string    `json:"username" db:"username"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// DeliveryPerson is a courier. Load is the number of assigned orders that are
// not in a terminal status; it is only filled by queries that compute it.
type DeliveryPerson struct {
	ID        int64     `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Email     string    `json:"email" db:"email"`
	IsOnline  bool      `json:"is_online" db:"is_online"`
	Load      int       `json:"active_orders" db:"active_orders"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Page is a 1-based page request
type Page struct {
	Number int
	Size   int
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Normalize clamps the page to sane bounds
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// Offset returns the number of rows to skip
func (p Page) Offset() int {
	p = p.Normalize()
	return (p.Number - 1) * p.Size
}
