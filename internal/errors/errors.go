package errors

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Common error types that can be used across the application
var (
	ErrNotFound          = new(ErrCodeNotFound, "resource not found")
	ErrAlreadyExists     = new(ErrCodeAlreadyExists, "resource already exists")
	ErrValidation        = new(ErrCodeValidation, "validation error")
	ErrInvalidOperation  = new(ErrCodeInvalidOperation, "invalid operation")
	ErrInconsistentState = new(ErrCodeInconsistentState, "inconsistent customer state")
	ErrProviderMismatch  = new(ErrCodeProviderMismatch, "provider state mismatch")
	ErrInternal          = new(ErrCodeInternal, "internal error")

	// maps errors to http status codes
	statusCodeMap = map[error]int{
		ErrNotFound:          http.StatusNotFound,
		ErrAlreadyExists:     http.StatusConflict,
		ErrValidation:        http.StatusBadRequest,
		ErrInvalidOperation:  http.StatusBadRequest,
		ErrInconsistentState: http.StatusConflict,
		ErrProviderMismatch:  http.StatusConflict,
		ErrInternal:          http.StatusInternalServerError,
	}
)

const (
	ErrCodeNotFound          = "not_found"
	ErrCodeAlreadyExists     = "already_exists"
	ErrCodeValidation        = "validation_error"
	ErrCodeInvalidOperation  = "invalid_operation"
	ErrCodeInconsistentState = "inconsistent_state"
	ErrCodeProviderMismatch  = "provider_state_mismatch"
	ErrCodeInternal          = "internal_error"
)

// InternalError represents a domain error
type InternalError struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Op      string // Logical operation name
	Err     error  // Underlying error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.DisplayError()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) DisplayError() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped errors
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

// new creates a new InternalError
func new(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidOperation checks if an error is an invalid operation error
func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

// IsInconsistentState checks if an error means the stored customer state
// violates a structural invariant. Fatal to the request; never silently
// repaired since fixing billing state risks charging incorrectly.
func IsInconsistentState(err error) bool {
	return errors.Is(err, ErrInconsistentState)
}

// IsProviderMismatch checks if an error means the provider-side schedule or
// subscription object contradicts the attachment set it represents. Callers
// should re-fetch provider state and retry once.
func IsProviderMismatch(err error) bool {
	return errors.Is(err, ErrProviderMismatch)
}

func HTTPStatusFromErr(err error) int {
	for e, status := range statusCodeMap {
		if errors.Is(err, e) {
			return status
		}
	}
	return http.StatusInternalServerError
}
