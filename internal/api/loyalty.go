package api

import (
	"net/http"

	"pizza-lovers/internal/apperr"
	"pizza-lovers/internal/auth"
	"pizza-lovers/internal/services/loyalty"
)

func (s *Server) loyaltySummary(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	sum, err := s.Loyalty.Summary(r.Context(), p.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, sum)
}

func (s *Server) customerLoyalty(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	customerID, err := pathID(r, "customer_id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sum, err := s.Loyalty.Summary(r.Context(), customerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, sum)
}

// grantPoints handles POST /loyalty/{customer_id}/grant {"points": 10}
func (s *Server) grantPoints(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	customerID, err := pathID(r, "customer_id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var body struct {
		Points int `json:"points"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	g, err := s.Loyalty.Grant(r.Context(), customerID, body.Points)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, g)
}

func (s *Server) deleteGrants(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	customerID, err := pathID(r, "customer_id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.Loyalty.DeleteGrants(r.Context(), customerID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// createCoupon handles POST /coupons/{customer_id}. An empty body issues the
// default coupon.
func (s *Server) createCoupon(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	customerID, err := pathID(r, "customer_id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req loyalty.CouponRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if req.CustomerID != 0 && req.CustomerID != customerID {
		s.writeError(w, r, apperr.Invalid("customer_id", "does not match the path"))
		return
	}
	req.CustomerID = customerID

	c, err := s.Loyalty.CreateCoupon(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, c)
}

func (s *Server) deleteCoupon(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.Loyalty.DeleteCoupon(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
