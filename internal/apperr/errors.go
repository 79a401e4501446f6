// Package apperr holds the error kinds every service returns. The HTTP layer
// maps them to status codes with errors.As.
package apperr

import (
	"fmt"
	"strings"
)

// ValidationError reports malformed or missing input for one field
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every field problem of one payload
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	parts := make([]string, len(e))
	for i, v := range e {
		parts[i] = v.Error()
	}
	return strings.Join(parts, "; ")
}

// Fields returns field -> message, the shape sent back to callers
func (e ValidationErrors) Fields() map[string]string {
	out := make(map[string]string, len(e))
	for _, v := range e {
		if _, seen := out[v.Field]; !seen {
			out[v.Field] = v.Message
		}
	}
	return out
}

// NotFoundError reports a referenced entity that does not exist
type NotFoundError struct {
	Entity string
	ID     any
}

func (e NotFoundError) Error() string {
	if e.ID == nil {
		return fmt.Sprintf("%s not found", e.Entity)
	}
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

// ConflictError reports a violated business rule
type ConflictError struct {
	Rule    string
	Message string
}

func (e ConflictError) Error() string {
	return e.Message
}

// ForbiddenError reports an actor without authority over the resource
type ForbiddenError struct {
	Message string
}

func (e ForbiddenError) Error() string {
	return e.Message
}

func Invalid(field, message string) error {
	return ValidationError{Field: field, Message: message}
}

func NotFound(entity string, id any) error {
	return NotFoundError{Entity: entity, ID: id}
}

func Conflict(rule, format string, args ...any) error {
	return ConflictError{Rule: rule, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) error {
	return ForbiddenError{Message: fmt.Sprintf(format, args...)}
}

// Rule names carried by ConflictError
const (
	RuleInsufficientStock  = "insufficient_stock"
	RuleEmptyCart          = "empty_cart"
	RuleInsufficientPoints = "insufficient_points"
	RuleCouponExpired      = "coupon_expired"
	RuleMinimumOrder       = "minimum_order"
	RuleIllegalTransition  = "illegal_transition"
	RuleNoCourierOnline    = "no_courier_online"
	RuleCourierAssigned    = "courier_already_assigned"
	RuleNotDeletable       = "order_not_deletable"
	RuleCustomerHasOrders  = "customer_has_open_orders"
	RuleDuplicate          = "duplicate"
	RuleNegativeBalance    = "negative_balance"
	RuleCourierBusy        = "courier_has_active_orders"
)
