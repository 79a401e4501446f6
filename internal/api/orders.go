package api

import (
	"context"
	"net/http"
	"time"

	"pizza-lovers/internal/apperr"
	"pizza-lovers/internal/auth"
	"pizza-lovers/internal/logger"
	"pizza-lovers/internal/models"
	"pizza-lovers/internal/services/fulfillment"
	"pizza-lovers/internal/services/order"
)

const orderTimeout = 30 * time.Second

// convertCart handles POST /cart/convert
func (s *Server) convertCart(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	var req order.ConvertRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), orderTimeout)
	defer cancel()

	res, err := s.Orders.ConvertCart(ctx, p.ID, req)
	if err != nil {
		s.Logger.Debug("cart_conversion_rejected", err.Error(), logger.RequestID(ctx), map[string]interface{}{
			"customer_id": p.ID,
		})
		s.writeError(w, r, err)
		return
	}
	s.Metrics.OrdersCreated.WithLabelValues("cart").Inc()
	s.writeJSON(w, r, http.StatusCreated, res)
}

// createCallCenterOrder handles POST /orders/callcenter. The acting order
// manager is the one recorded on the order.
func (s *Server) createCallCenterOrder(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	var req order.CallCenterRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	req.OrderManagerID = p.ID

	ctx, cancel := context.WithTimeout(r.Context(), orderTimeout)
	defer cancel()

	res, err := s.Orders.CreateForCaller(ctx, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.Metrics.OrdersCreated.WithLabelValues("callcenter").Inc()
	s.writeJSON(w, r, http.StatusCreated, res)
}

func (s *Server) listCustomerOrders(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	page, err := pageFromQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.Orders.ListForCustomer(r.Context(), p.ID, page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) getCustomerOrder(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	o, err := s.Orders.GetForCustomer(r.Context(), p.ID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, o)
}

// listOrders handles GET /orders?status=&page=&page_size=
func (s *Server) listOrders(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	page, err := pageFromQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	f := models.OrderFilter{Page: page}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, ok := models.ParseStatus(raw)
		if !ok {
			s.writeError(w, r, apperr.Invalid("status", "unknown order status "+raw))
			return
		}
		f.Status = status
	}
	res, err := s.Orders.List(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	o, err := s.Orders.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, o)
}

func (s *Server) orderHistory(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	history, err := s.Orders.History(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if history == nil {
		history = []models.StatusLogEntry{}
	}
	s.writeJSON(w, r, http.StatusOK, history)
}

func (s *Server) listCourierOrders(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	page, err := pageFromQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.Orders.ListForCourier(r.Context(), p.ID, page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, res)
}

// transitionResponse is the body returned for every applied status change
type transitionResponse struct {
	Message          string             `json:"message"`
	OrderID          int64              `json:"order_id"`
	OldStatus        models.OrderStatus `json:"old_status"`
	Status           models.OrderStatus `json:"status"`
	DeliveryPersonID *int64             `json:"delivery_person_id,omitempty"`
}

func (s *Server) writeTransition(w http.ResponseWriter, r *http.Request, res *fulfillment.Result) {
	s.writeJSON(w, r, http.StatusOK, transitionResponse{
		Message:          "order status updated to " + string(res.Order.Status),
		OrderID:          res.Order.ID,
		OldStatus:        res.From,
		Status:           res.Order.Status,
		DeliveryPersonID: res.Order.DeliveryPersonID,
	})
}

// dispatchStatus handles POST /orders/{id}/dispatch-status
func (s *Server) dispatchStatus(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	target, err := statusFromBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.Fulfillment.Dispatch(r.Context(), p.ID, id, target)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeTransition(w, r, res)
}

// assignDelivery handles POST /orders/{id}/assign-delivery
func (s *Server) assignDelivery(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var body struct {
		DeliveryPersonID int64 `json:"delivery_person_id"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if body.DeliveryPersonID <= 0 {
		s.writeError(w, r, apperr.Invalid("delivery_person_id", "is required"))
		return
	}
	res, err := s.Fulfillment.Assign(r.Context(), p.ID, id, body.DeliveryPersonID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeTransition(w, r, res)
}

// deliveryStatus handles POST /orders/{id}/delivery-status
func (s *Server) deliveryStatus(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	target, err := statusFromBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, ok := models.ParseStatus(string(target)); !ok {
		s.writeError(w, r, apperr.Invalid("status", "unknown order status "+string(target)))
		return
	}
	res, err := s.Fulfillment.Deliver(r.Context(), p.ID, id, target)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeTransition(w, r, res)
}

func (s *Server) cancelCustomerOrder(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	s.cancel(w, r, fulfillment.Actor{Role: models.RoleCustomer, ID: p.ID})
}

func (s *Server) managerCancelOrder(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	s.cancel(w, r, fulfillment.Actor{Role: models.RoleOrderManager, ID: p.ID})
}

func (s *Server) cancel(w http.ResponseWriter, r *http.Request, actor fulfillment.Actor) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.Fulfillment.Cancel(r.Context(), actor, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeTransition(w, r, res)
}

func (s *Server) deleteCustomerOrder(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	s.deleteOrder(w, r, fulfillment.Actor{Role: models.RoleCustomer, ID: p.ID})
}

func (s *Server) managerDeleteOrder(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	s.deleteOrder(w, r, fulfillment.Actor{Role: models.RoleOrderManager, ID: p.ID})
}

func (s *Server) deleteCourierOrder(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	s.deleteOrder(w, r, fulfillment.Actor{Role: models.RoleDeliveryPerson, ID: p.ID})
}

func (s *Server) deleteOrder(w http.ResponseWriter, r *http.Request, actor fulfillment.Actor) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.Fulfillment.Delete(r.Context(), actor, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
