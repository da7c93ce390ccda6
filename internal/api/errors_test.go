package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtiscan/screener-api/internal/api/shared"
	"github.com/gtiscan/screener-api/internal/ratelimit"
	"github.com/gtiscan/screener-api/internal/screener"
	"github.com/gtiscan/screener-api/internal/task"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"task not found", task.ErrTaskNotFound, http.StatusNotFound},
		{"task expired", task.ErrTaskExpired, http.StatusGone},
		{"task not completed", task.ErrTaskNotCompleted, http.StatusConflict},
		{"queue full", task.ErrQueueFull, http.StatusTooManyRequests},
		{"unknown task type", task.ErrUnknownTaskType, http.StatusBadRequest},
		{"missing parameter", screener.ErrMissingParameter, http.StatusBadRequest},
		{"unknown category", screener.ErrUnknownCategory, http.StatusBadRequest},
		{"insufficient history", screener.ErrInsufficientHistory, http.StatusUnprocessableEntity},
		{"rate limited", ratelimit.ErrRateLimited, http.StatusServiceUnavailable},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped error", fmt.Errorf("get result: %w", task.ErrTaskExpired), http.StatusGone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapErrorToStatusCode(tt.err))
		})
	}
}

func TestGetSafeErrorMessageNeverLeaksInternals(t *testing.T) {
	internal := fmt.Errorf("pool exhausted at 10.0.0.1:5432: %w", errors.New("boom"))

	msg := GetSafeErrorMessage(internal)
	assert.Equal(t, "An unexpected error occurred", msg)
	assert.NotContains(t, msg, "10.0.0.1")

	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
	assert.Equal(t, "Task not found", GetSafeErrorMessage(task.ErrTaskNotFound))
	assert.Equal(t, "Task result has expired",
		GetSafeErrorMessage(fmt.Errorf("wrapped: %w", task.ErrTaskExpired)))
}

func TestSanitizeValidationError(t *testing.T) {
	err := shared.ValidateRequest(SubmitScanRequest{TaskType: "bogus"})
	require.Error(t, err)

	msg := SanitizeValidationError(err)
	assert.Equal(t, "Invalid TaskType: invalid value", msg)

	err = shared.ValidateRequest(SubmitScanRequest{})
	require.Error(t, err)
	assert.Equal(t, "Invalid TaskType: required field", SanitizeValidationError(err))

	assert.Equal(t, "Validation error", SanitizeValidationError(errors.New("boom")))
}
