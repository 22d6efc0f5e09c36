package budget

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegisx-platform/budget-service/internal/apperr"
)

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		wantErr bool
	}{
		{name: "draft to submitted", from: StatusDraft, to: StatusSubmitted, wantErr: false},
		{name: "submitted to department approved", from: StatusSubmitted, to: StatusDepartmentApproved, wantErr: false},
		{name: "department to finance approved", from: StatusDepartmentApproved, to: StatusFinanceApproved, wantErr: false},
		{name: "cancel from draft", from: StatusDraft, to: StatusCancelled, wantErr: false},
		{name: "cancel from submitted", from: StatusSubmitted, to: StatusCancelled, wantErr: false},
		{name: "cancel after department approval", from: StatusDepartmentApproved, to: StatusCancelled, wantErr: true},
		{name: "skip department stage", from: StatusSubmitted, to: StatusFinanceApproved, wantErr: true},
		{name: "skip straight from draft", from: StatusDraft, to: StatusFinanceApproved, wantErr: true},
		{name: "no un-submit", from: StatusSubmitted, to: StatusDraft, wantErr: true},
		{name: "no forward from terminal", from: StatusFinanceApproved, to: StatusSubmitted, wantErr: true},
		{name: "no resurrection from cancelled", from: StatusCancelled, to: StatusDraft, wantErr: true},
		{name: "retry landing on current state is success", from: StatusSubmitted, to: StatusSubmitted, wantErr: false},
		{name: "retry on terminal state is success", from: StatusFinanceApproved, to: StatusFinanceApproved, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckTransition(tt.from, tt.to)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var terr *apperr.InvalidTransitionError
			require.True(t, errors.As(err, &terr))
			assert.Equal(t, string(tt.from), terr.Current)
			assert.Equal(t, string(tt.to), terr.Requested)
		})
	}
}

func TestCheckSubmit(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		count   int
		total   float64
		wantErr bool
		reason  string
	}{
		{name: "valid submit", from: StatusDraft, count: 5, total: 1200, wantErr: false},
		{name: "zero items", from: StatusDraft, count: 0, total: 0, wantErr: true, reason: "no line items"},
		{name: "items but zero total", from: StatusDraft, count: 3, total: 0, wantErr: true, reason: "greater than zero"},
		{name: "already submitted is a no-op", from: StatusSubmitted, count: 0, total: 0, wantErr: false},
		{name: "submit from approved state", from: StatusDepartmentApproved, count: 5, total: 100, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckSubmit(tt.from, tt.count, tt.total)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperr.IsInvalidTransition(err))
			if tt.reason != "" {
				assert.Contains(t, err.Error(), tt.reason)
			}
		})
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []Status{StatusDraft, StatusSubmitted, StatusDepartmentApproved, StatusFinanceApproved, StatusCancelled} {
		assert.True(t, ValidStatus(s), string(s))
	}
	assert.False(t, ValidStatus(Status("APPROVED")))
	assert.False(t, ValidStatus(Status("")))
}

func TestRequestEditableExportable(t *testing.T) {
	req := &Request{Status: StatusDraft}
	assert.True(t, req.Editable())
	assert.True(t, req.Exportable())

	req.Status = StatusSubmitted
	assert.False(t, req.Editable())
	assert.True(t, req.Exportable())

	req.Status = StatusCancelled
	assert.False(t, req.Editable())
	assert.False(t, req.Exportable())
}
