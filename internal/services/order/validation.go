package order

import (
	"fmt"
	"net/mail"
	"strings"

	"pizza-lovers/internal/apperr"
)

const (
	maxNameLength  = 255
	maxPhoneLength = 20
	maxOrderLines  = 50
)

// CallCenterRequest is an order taken by phone
type CallCenterRequest struct {
	Description    string         `json:"description,omitempty"`
	CallerName     string         `json:"caller_name"`
	CallerAddress  string         `json:"caller_address"`
	CallerPhone    string         `json:"caller_phone"`
	CallerEmail    string         `json:"caller_email,omitempty"`
	OrderManagerID int64          `json:"order_manager_id"`
	FoodItems      []ItemQuantity `json:"food_items"`
}

// Validate reports every field problem of the request at once
func (r *CallCenterRequest) Validate() error {
	var errs apperr.ValidationErrors
	collect := func(err error) {
		if ve, ok := err.(apperr.ValidationError); ok {
			errs = append(errs, ve)
		}
	}

	collect(validateCallerName(r.CallerName))
	collect(validateRequired("caller_address", r.CallerAddress, maxNameLength))
	collect(validatePhone(r.CallerPhone))
	collect(validateEmail(r.CallerEmail))
	if r.OrderManagerID <= 0 {
		errs = append(errs, apperr.ValidationError{Field: "order_manager_id", Message: "order manager id is required"})
	}
	errs = append(errs, validateItems(r.FoodItems)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateCallerName(name string) error {
	return validateRequired("caller_name", name, maxNameLength)
}

func validateRequired(field, value string, limit int) error {
	if strings.TrimSpace(value) == "" {
		return apperr.ValidationError{Field: field, Message: "is required"}
	}
	if len(value) > limit {
		return apperr.ValidationError{Field: field, Message: fmt.Sprintf("must be at most %d characters", limit)}
	}
	return nil
}

func validatePhone(phone string) error {
	if err := validateRequired("caller_phone", phone, maxPhoneLength); err != nil {
		return err
	}
	for i, r := range phone {
		if (r < '0' || r > '9') && !(i == 0 && r == '+') {
			return apperr.ValidationError{Field: "caller_phone", Message: "must contain only digits"}
		}
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return nil
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return apperr.ValidationError{Field: "caller_email", Message: "is not a valid email address"}
	}
	return nil
}

func validateItems(items []ItemQuantity) apperr.ValidationErrors {
	if len(items) == 0 {
		return apperr.ValidationErrors{{Field: "food_items", Message: "at least one item is required"}}
	}
	if len(items) > maxOrderLines {
		return apperr.ValidationErrors{{Field: "food_items", Message: fmt.Sprintf("a maximum of %d items is allowed", maxOrderLines)}}
	}

	var errs apperr.ValidationErrors
	for i, item := range items {
		if item.ID <= 0 {
			errs = append(errs, apperr.ValidationError{
				Field:   fmt.Sprintf("food_items[%d].id", i),
				Message: "food item id is required",
			})
		}
		if item.Quantity <= 0 {
			errs = append(errs, apperr.ValidationError{
				Field:   fmt.Sprintf("food_items[%d].quantity", i),
				Message: "quantity must be greater than 0",
			})
		}
	}
	return errs
}

// mergeItems sums the quantities of repeated food item ids
func mergeItems(items []ItemQuantity) []ItemQuantity {
	index := make(map[int64]int, len(items))
	out := make([]ItemQuantity, 0, len(items))
	for _, it := range items {
		if i, ok := index[it.ID]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		index[it.ID] = len(out)
		out = append(out, it)
	}
	return out
}
