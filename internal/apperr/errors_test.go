package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorsSurviveWrapping(t *testing.T) {
	err := fmt.Errorf("convert cart: %w", Conflict(RuleMinimumOrder, "minimum order is %s", "$5.00"))

	var conflict ConflictError
	assert.True(t, errors.As(err, &conflict))
	assert.Equal(t, RuleMinimumOrder, conflict.Rule)
	assert.Equal(t, "minimum order is $5.00", conflict.Message)

	var notFound NotFoundError
	assert.False(t, errors.As(err, &notFound))
}

func TestNotFoundMessage(t *testing.T) {
	assert.Equal(t, "order 7 not found", NotFound("order", int64(7)).Error())
	assert.Equal(t, "cart not found", NotFound("cart", nil).Error())
}

func TestValidationErrorsFields(t *testing.T) {
	errs := ValidationErrors{
		{Field: "caller_name", Message: "caller_name is required"},
		{Field: "food_items", Message: "at least one item is required"},
		{Field: "caller_name", Message: "second message is ignored"},
	}

	assert.Equal(t, map[string]string{
		"caller_name": "caller_name is required",
		"food_items":  "at least one item is required",
	}, errs.Fields())
	assert.Contains(t, errs.Error(), "food_items: at least one item is required")
}
