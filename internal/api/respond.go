package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"time"

	"pizza-lovers/internal/apperr"
	"pizza-lovers/internal/auth"
	"pizza-lovers/internal/logger"
	"pizza-lovers/internal/models"
)

// writeJSON writes body with the given status
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.Logger.Error("response_encoding_failed", "Failed to encode response", logger.RequestID(r.Context()), err, nil)
	}
}

// writeErrorResponse writes an error response in JSON format
func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, message, requestID string, extra map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResponse := map[string]interface{}{
		"error":      message,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"request_id": requestID,
	}
	for k, v := range extra {
		errorResponse[k] = v
	}

	json.NewEncoder(w).Encode(errorResponse)
}

// writeError maps a service error to its status code
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := logger.RequestID(r.Context())

	var (
		multi     apperr.ValidationErrors
		invalid   apperr.ValidationError
		notFound  apperr.NotFoundError
		conflict  apperr.ConflictError
		forbidden apperr.ForbiddenError
	)
	switch {
	case errors.As(err, &multi):
		s.writeErrorResponse(w, http.StatusBadRequest, "Validation failed", requestID,
			map[string]interface{}{"errors": multi.Fields()})
	case errors.As(err, &invalid):
		s.writeErrorResponse(w, http.StatusBadRequest, invalid.Error(), requestID,
			map[string]interface{}{"field": invalid.Field})
	case errors.As(err, &notFound):
		s.writeErrorResponse(w, http.StatusNotFound, notFound.Error(), requestID, nil)
	case errors.As(err, &conflict):
		s.writeErrorResponse(w, http.StatusBadRequest, conflict.Error(), requestID,
			map[string]interface{}{"rule": conflict.Rule})
	case errors.As(err, &forbidden):
		s.writeErrorResponse(w, http.StatusForbidden, forbidden.Error(), requestID, nil)
	case errors.Is(err, auth.ErrUnauthenticated):
		s.writeErrorResponse(w, http.StatusUnauthorized, err.Error(), requestID, nil)
	default:
		s.Logger.Error("request_failed", fmt.Sprintf("%s %s failed", r.Method, r.URL.Path), requestID, err, nil)
		s.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID, nil)
	}
}

// decodeJSON reads a JSON body into v, rejecting unknown fields
func decodeJSON(r *http.Request, v interface{}) error {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != "application/json" {
			return apperr.Invalid("content_type", "Content-Type must be application/json")
		}
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return apperr.Invalid("body", "invalid JSON format: "+err.Error())
	}
	return nil
}

// pathID parses the named path segment as a positive id
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Invalid(name, "must be a positive integer")
	}
	return id, nil
}

// pageFromQuery reads page and page_size; both are optional
func pageFromQuery(r *http.Request) (models.Page, error) {
	var p models.Page
	q := r.URL.Query()
	for name, dst := range map[string]*int{"page": &p.Number, "page_size": &p.Size} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return p, apperr.Invalid(name, "must be a positive integer")
		}
		*dst = n
	}
	return p.Normalize(), nil
}

// boolFromQuery reads an optional boolean filter
func boolFromQuery(r *http.Request, name string) (*bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperr.Invalid(name, "must be true or false")
	}
	return &b, nil
}

// statusFromBody parses {"status": "..."}
func statusFromBody(r *http.Request) (models.OrderStatus, error) {
	var body struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &body); err != nil {
		return "", err
	}
	if body.Status == "" {
		return "", apperr.Invalid("status", "is required")
	}
	return models.OrderStatus(body.Status), nil
}
