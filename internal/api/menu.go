package api

import (
	"net/http"

	"pizza-lovers/internal/apperr"
	"pizza-lovers/internal/auth"
	"pizza-lovers/internal/services/catalog"
)

// listMenu handles GET /menu; ?all=true includes inactive items
func (s *Server) listMenu(w http.ResponseWriter, r *http.Request) {
	all, err := boolFromQuery(r, "all")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	items, err := s.Catalog.List(r.Context(), all == nil || !*all)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, items)
}

func (s *Server) getMenuItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	item, err := s.Catalog.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, item)
}

func (s *Server) createMenuItem(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	var req catalog.ItemRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	item, err := s.Catalog.Create(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, item)
}

func (s *Server) updateMenuItem(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var u catalog.ItemUpdate
	if err := decodeJSON(r, &u); err != nil {
		s.writeError(w, r, err)
		return
	}
	item, err := s.Catalog.Update(r.Context(), id, u)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, item)
}

func (s *Server) deleteMenuItem(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.Catalog.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) viewCart(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	view, err := s.Cart.View(r.Context(), p.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, view)
}

// addCartItem handles POST /cart/items {"food_item_id": 1, "quantity": 2}
func (s *Server) addCartItem(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	var body struct {
		FoodItemID int64 `json:"food_item_id"`
		Quantity   int   `json:"quantity"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if body.FoodItemID <= 0 {
		s.writeError(w, r, apperr.Invalid("food_item_id", "is required"))
		return
	}
	if err := s.Cart.Add(r.Context(), p.ID, body.FoodItemID, body.Quantity); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.viewCart(w, r, p)
}

func (s *Server) removeCartItem(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	id, err := pathID(r, "food_item_id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.Cart.Remove(r.Context(), p.ID, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.viewCart(w, r, p)
}
