package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gtiscan/screener-api/internal/ratelimit"
	"github.com/gtiscan/screener-api/internal/screener"
	"github.com/gtiscan/screener-api/internal/task"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes based on
// the error type. This keeps internal error taxonomy out of client responses.
func MapErrorToStatusCode(err error) int {
	switch {
	// Not found
	case errors.Is(err, task.ErrTaskNotFound):
		return http.StatusNotFound

	// Gone: the task existed but aged out of retention
	case errors.Is(err, task.ErrTaskExpired):
		return http.StatusGone

	// Conflict: the result is not ready yet
	case errors.Is(err, task.ErrTaskNotCompleted):
		return http.StatusConflict

	// Backpressure
	case errors.Is(err, task.ErrQueueFull):
		return http.StatusTooManyRequests

	// Bad request
	case errors.Is(err, task.ErrUnknownTaskType),
		errors.Is(err, screener.ErrMissingParameter),
		errors.Is(err, screener.ErrUnknownCategory):
		return http.StatusBadRequest

	// Upstream data gaps
	case errors.Is(err, screener.ErrInsufficientHistory):
		return http.StatusUnprocessableEntity

	// Upstream throttling
	case errors.Is(err, ratelimit.ErrRateLimited):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-facing message for the error.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, task.ErrTaskNotFound):
		return "Task not found"

	case errors.Is(err, task.ErrTaskExpired):
		return "Task result has expired"

	case errors.Is(err, task.ErrTaskNotCompleted):
		return "Task is not completed yet"

	case errors.Is(err, task.ErrQueueFull):
		return "Too many scans in progress, try again later"

	case errors.Is(err, task.ErrUnknownTaskType):
		return "Unknown task type"

	case errors.Is(err, screener.ErrMissingParameter):
		return "Missing required parameter"

	case errors.Is(err, screener.ErrUnknownCategory):
		return "Unknown category or sector"

	case errors.Is(err, screener.ErrInsufficientHistory):
		return "Not enough price history to analyze this symbol"

	case errors.Is(err, ratelimit.ErrRateLimited):
		return "Data provider is rate limiting requests, try again later"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns a validator error into a short user-friendly
// message without echoing internal struct names.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	if strings.Contains(errMsg, "Field validation") {
		// Example: "Key: 'SubmitScanRequest.TaskType' Error:Field validation
		// for 'TaskType' failed on the 'oneof' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}
				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, validationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

func validationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too small"
	case "max":
		return "too large"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
