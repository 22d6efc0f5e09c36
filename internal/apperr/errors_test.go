package apperr

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaxonomyMatchers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{name: "not found", err: &NotFoundError{Kind: "budget_request", ID: "42"}, check: IsNotFound},
		{name: "conflict", err: &ConflictError{Message: "already initialized"}, check: IsConflict},
		{name: "invalid transition", err: &InvalidTransitionError{Current: "DRAFT", Requested: "FINANCE_APPROVED"}, check: IsInvalidTransition},
		{name: "immutable state", err: &ImmutableStateError{Status: "SUBMITTED"}, check: IsImmutableState},
		{name: "validation", err: &ValidationError{Fields: []FieldError{{Field: "requestedQty", Message: "must be >= 0"}}}, check: IsValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			// Обёртка не должна ломать распознавание.
			assert.True(t, tt.check(fmt.Errorf("command failed: %w", tt.err)))
			assert.False(t, tt.check(fmt.Errorf("plain error")))
		})
	}
}

func TestInvalidTransitionMessage(t *testing.T) {
	err := &InvalidTransitionError{Current: "SUBMITTED", Requested: "DRAFT"}
	assert.Equal(t, "invalid transition SUBMITTED -> DRAFT", err.Error())

	err.Reason = "no un-submit"
	assert.Contains(t, err.Error(), "no un-submit")
}

func TestValidationErrorAggregates(t *testing.T) {
	verr := &ValidationError{}
	assert.True(t, verr.Empty())

	verr.Add(3, "requestedQty", "must be >= 0")
	verr.Add(7, "unitPrice", "not a number")
	assert.False(t, verr.Empty())
	assert.Len(t, verr.Fields, 2)
	assert.Contains(t, verr.Error(), `line 3, field "requestedQty"`)
	assert.Contains(t, verr.Error(), `line 7, field "unitPrice"`)
}
