// Package api exposes the platform over HTTP. Identity comes from the
// headers of the upstream identity provider; every route checks the caller's
// role against the auth policy before reaching a service.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"pizza-lovers/internal/auth"
	"pizza-lovers/internal/logger"
	"pizza-lovers/internal/metrics"
	"pizza-lovers/internal/services/account"
	"pizza-lovers/internal/services/cart"
	"pizza-lovers/internal/services/catalog"
	"pizza-lovers/internal/services/delivery"
	"pizza-lovers/internal/services/fulfillment"
	"pizza-lovers/internal/services/loyalty"
	"pizza-lovers/internal/services/order"
)

// Deps are the services behind the routes
type Deps struct {
	Orders      *order.Service
	Fulfillment *fulfillment.Service
	Loyalty     *loyalty.Service
	Catalog     *catalog.Service
	Cart        *cart.Service
	Delivery    *delivery.Service
	Accounts    *account.Service
	Metrics     *metrics.Metrics
	Logger      *logger.Logger
	// Health reports whether the backing store is reachable; nil means
	// always healthy
	Health func(ctx context.Context) error
}

// Server handles HTTP requests for the order service
type Server struct {
	Deps
}

func NewServer(d Deps) *Server {
	if d.Metrics == nil {
		d.Metrics = metrics.New("order-service")
	}
	return &Server{Deps: d}
}

// SetupRoutes sets up the HTTP routes
func (s *Server) SetupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	s.handle(mux, "GET /health", s.HealthCheck)
	mux.Handle("GET /metrics", s.Metrics.Handler())

	// customer
	s.handle(mux, "POST /customers", s.registerCustomer)
	s.handle(mux, "GET /menu", s.listMenu)
	s.handle(mux, "GET /menu/{id}", s.getMenuItem)
	s.handle(mux, "GET /cart", s.require(auth.ActionManageCart, s.viewCart))
	s.handle(mux, "POST /cart/items", s.require(auth.ActionManageCart, s.addCartItem))
	s.handle(mux, "DELETE /cart/items/{food_item_id}", s.require(auth.ActionManageCart, s.removeCartItem))
	s.handle(mux, "POST /cart/convert", s.require(auth.ActionConvertCart, s.convertCart))
	s.handle(mux, "GET /customer/orders", s.require(auth.ActionViewOwnOrders, s.listCustomerOrders))
	s.handle(mux, "GET /customer/orders/{id}", s.require(auth.ActionViewOwnOrders, s.getCustomerOrder))
	s.handle(mux, "POST /customer/orders/{id}/cancel", s.require(auth.ActionCancelOwnOrder, s.cancelCustomerOrder))
	s.handle(mux, "DELETE /customer/orders/{id}", s.require(auth.ActionDeleteOwnOrder, s.deleteCustomerOrder))
	s.handle(mux, "GET /loyalty", s.require(auth.ActionViewLoyalty, s.loyaltySummary))

	// order manager and dispatcher
	s.handle(mux, "POST /orders/callcenter", s.require(auth.ActionCallCenterOrder, s.createCallCenterOrder))
	s.handle(mux, "GET /orders", s.require(auth.ActionViewAllOrders, s.listOrders))
	s.handle(mux, "GET /orders/{id}", s.require(auth.ActionViewAllOrders, s.getOrder))
	s.handle(mux, "GET /orders/{id}/history", s.require(auth.ActionViewAllOrders, s.orderHistory))
	s.handle(mux, "POST /orders/{id}/cancel", s.require(auth.ActionManagerCancel, s.managerCancelOrder))
	s.handle(mux, "DELETE /orders/{id}", s.require(auth.ActionManagerDelete, s.managerDeleteOrder))
	s.handle(mux, "POST /orders/{id}/dispatch-status", s.require(auth.ActionDispatch, s.dispatchStatus))
	s.handle(mux, "POST /orders/{id}/assign-delivery", s.require(auth.ActionAssign, s.assignDelivery))
	s.handle(mux, "GET /delivery-persons", s.require(auth.ActionListCouriers, s.listCouriers))

	// delivery person
	s.handle(mux, "POST /orders/{id}/delivery-status", s.require(auth.ActionDeliveryStatus, s.deliveryStatus))
	s.handle(mux, "GET /delivery/orders", s.require(auth.ActionCourierOrders, s.listCourierOrders))
	s.handle(mux, "DELETE /delivery/orders/{id}", s.require(auth.ActionCourierOrders, s.deleteCourierOrder))
	s.handle(mux, "POST /delivery/online", s.require(auth.ActionCourierOnline, s.setCourierOnline))

	// menu manager and administrator
	s.handle(mux, "POST /menu", s.require(auth.ActionManageMenu, s.createMenuItem))
	s.handle(mux, "PATCH /menu/{id}", s.require(auth.ActionManageMenu, s.updateMenuItem))
	s.handle(mux, "DELETE /menu/{id}", s.require(auth.ActionManageMenu, s.deleteMenuItem))
	s.handle(mux, "GET /loyalty/{customer_id}", s.require(auth.ActionManageLoyalty, s.customerLoyalty))
	s.handle(mux, "POST /loyalty/{customer_id}/grant", s.require(auth.ActionManageLoyalty, s.grantPoints))
	s.handle(mux, "DELETE /loyalty/{customer_id}", s.require(auth.ActionManageLoyalty, s.deleteGrants))
	s.handle(mux, "POST /coupons/{customer_id}", s.require(auth.ActionManageLoyalty, s.createCoupon))
	s.handle(mux, "DELETE /coupons/{id}", s.require(auth.ActionManageLoyalty, s.deleteCoupon))
	s.handle(mux, "DELETE /customers/{id}", s.require(auth.ActionManageAccounts, s.deleteCustomer))
	s.handle(mux, "POST /staff/{role}", s.require(auth.ActionManageAccounts, s.createStaff))
	s.handle(mux, "DELETE /staff/{role}/{id}", s.require(auth.ActionManageAccounts, s.deleteStaff))
	s.handle(mux, "POST /delivery-persons", s.require(auth.ActionManageAccounts, s.createCourier))
	s.handle(mux, "DELETE /delivery-persons/{id}", s.require(auth.ActionManageAccounts, s.deleteCourier))

	return mux
}

// handle registers pattern behind the logging and metrics middleware
func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, s.withLogging(pattern, h))
}

// HealthCheck handles GET /health requests
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	healthy := true
	if s.Health != nil {
		if err := s.Health(ctx); err != nil {
			s.Logger.Error("health_check_failed", "Database ping failed", logger.RequestID(ctx), err, nil)
			healthy = false
		}
	}

	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "order-service",
		"healthy":   healthy,
	}

	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		response["status"] = "unhealthy"
	}

	json.NewEncoder(w).Encode(response)
}
