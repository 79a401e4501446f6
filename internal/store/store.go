// Package store declares the persistence boundary of the platform. Every
// service operation runs inside Store.InTx; nothing a transaction wrote is
// visible to others unless fn returns nil.
package store

import (
	"context"

	"pizza-lovers/internal/models"
)

// Store runs units of work atomically
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the set of repositories reachable inside one transaction
type Tx interface {
	Catalog
	Customers
	Carts
	Loyalty
	Orders
	Staff
	Couriers
}

type Catalog interface {
	CreateFoodItem(ctx context.Context, item *models.FoodItem) error
	GetFoodItem(ctx context.Context, id int64) (*models.FoodItem, error)
	// LockFoodItems locks the rows in id order. Unknown ids are absent from
	// the result.
	LockFoodItems(ctx context.Context, ids []int64) (map[int64]*models.FoodItem, error)
	ListFoodItems(ctx context.Context, activeOnly bool) ([]models.FoodItem, error)
	UpdateFoodItem(ctx context.Context, item *models.FoodItem) error
	DecrementStock(ctx context.Context, id int64, quantity int) error
	DeleteFoodItem(ctx context.Context, id int64) error
}

type Customers interface {
	// CreateCustomer inserts the profile and its empty cart
	CreateCustomer(ctx context.Context, c *models.Customer) error
	GetCustomer(ctx context.Context, id int64) (*models.Customer, error)
	LockCustomer(ctx context.Context, id int64) (*models.Customer, error)
	IncrementPurchases(ctx context.Context, id int64) (int, error)
	DeleteCustomer(ctx context.Context, id int64) error
}

type Carts interface {
	CartLines(ctx context.Context, customerID int64) ([]models.CartLine, error)
	// AddCartLine adds quantity to the line, creating it when missing
	AddCartLine(ctx context.Context, customerID, foodItemID int64, quantity int) error
	RemoveCartLine(ctx context.Context, customerID, foodItemID int64) error
	ClearCart(ctx context.Context, customerID int64) error
}

type Loyalty interface {
	InsertGrant(ctx context.Context, g *models.LoyaltyGrant) error
	Grants(ctx context.Context, customerID int64) ([]models.LoyaltyGrant, error)
	// LockGrants locks the customer's grants, oldest first
	LockGrants(ctx context.Context, customerID int64) ([]models.LoyaltyGrant, error)
	UpdateGrantRemaining(ctx context.Context, id int64, remaining int) error
	DeleteGrants(ctx context.Context, customerID int64) error

	InsertCoupon(ctx context.Context, c *models.Coupon) error
	LockCoupon(ctx context.Context, id int64) (*models.Coupon, error)
	Coupons(ctx context.Context, customerID int64) ([]models.Coupon, error)
	DeleteCoupon(ctx context.Context, id int64) error
}

type Orders interface {
	// InsertOrder inserts the order with its lines, filling the ids
	InsertOrder(ctx context.Context, o *models.Order) error
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	LockOrder(ctx context.Context, id int64) (*models.Order, error)
	ListOrders(ctx context.Context, f models.OrderFilter) ([]models.Order, int, error)
	// UpdateOrder persists status and the staff links
	UpdateOrder(ctx context.Context, o *models.Order) error
	DeleteOrder(ctx context.Context, id int64) error
	CountOpenOrders(ctx context.Context, customerID int64) (int, error)

	AppendStatusLog(ctx context.Context, e *models.StatusLogEntry) error
	StatusLog(ctx context.Context, orderID int64) ([]models.StatusLogEntry, error)
}

type Staff interface {
	CreateStaff(ctx context.Context, s *models.Staff) error
	GetStaff(ctx context.Context, role models.Role, id int64) (*models.Staff, error)
	DeleteStaff(ctx context.Context, role models.Role, id int64) error
}

type Couriers interface {
	CreateCourier(ctx context.Context, d *models.DeliveryPerson) error
	// GetCourier returns the courier with its active load
	GetCourier(ctx context.Context, id int64) (*models.DeliveryPerson, error)
	LockCourier(ctx context.Context, id int64) (*models.DeliveryPerson, error)
	SetCourierOnline(ctx context.Context, id int64, online bool) error
	ListCouriers(ctx context.Context, online *bool, page models.Page) ([]models.DeliveryPerson, int, error)
	// LockOnlineCouriersByLoad locks the online couriers ordered by
	// (active load, id)
	LockOnlineCouriersByLoad(ctx context.Context) ([]models.DeliveryPerson, error)
	DeleteCourier(ctx context.Context, id int64) error
}

// Entity names used in NotFound errors
const (
	EntityFoodItem     = "food item"
	EntityCustomer     = "customer"
	EntityCartLine     = "cart item"
	EntityCoupon       = "coupon"
	EntityGrant        = "loyalty grant"
	EntityOrder        = "order"
	EntityCourier      = "delivery person"
	EntityOrderManager = "order manager"
	EntityDispatcher   = "order dispatcher"
)

// StaffEntity names the staff table behind role
func StaffEntity(role models.Role) string {
	if role == models.RoleDispatcher {
		return EntityDispatcher
	}
	return EntityOrderManager
}
