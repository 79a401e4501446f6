package api

import (
	"net/http"

	"pizza-lovers/internal/apperr"
	"pizza-lovers/internal/auth"
	"pizza-lovers/internal/models"
	"pizza-lovers/internal/services/account"
)

// registerCustomer handles POST /customers; sign-up needs no principal
func (s *Server) registerCustomer(w http.ResponseWriter, r *http.Request) {
	var req account.CustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.Accounts.RegisterCustomer(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, c)
}

func (s *Server) deleteCustomer(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.Accounts.DeleteCustomer(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func staffRole(r *http.Request) (models.Role, error) {
	role, ok := models.ParseRole(r.PathValue("role"))
	if !ok || (role != models.RoleOrderManager && role != models.RoleDispatcher) {
		return "", apperr.Invalid("role", "must be order_manager or order_dispatcher")
	}
	return role, nil
}

func (s *Server) createStaff(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	role, err := staffRole(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req account.ProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	st, err := s.Accounts.CreateStaff(r.Context(), role, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, st)
}

func (s *Server) deleteStaff(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	role, err := staffRole(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.Accounts.DeleteStaff(r.Context(), role, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) createCourier(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	var req account.ProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	d, err := s.Accounts.CreateCourier(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, d)
}

func (s *Server) deleteCourier(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.Accounts.DeleteCourier(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listCouriers handles GET /delivery-persons?online=&page=&page_size=
func (s *Server) listCouriers(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	online, err := boolFromQuery(r, "online")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := pageFromQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.Delivery.List(r.Context(), online, page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, res)
}

// setCourierOnline handles POST /delivery/online. {"is_online": bool} sets
// the flag, an empty body toggles it.
func (s *Server) setCourierOnline(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	var body struct {
		IsOnline *bool `json:"is_online"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &body); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	var (
		d   *models.DeliveryPerson
		err error
	)
	if body.IsOnline == nil {
		d, err = s.Delivery.Toggle(r.Context(), p.ID)
	} else {
		d, err = s.Delivery.SetOnline(r.Context(), p.ID, *body.IsOnline)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, d)
}
