package domain

import (
	"errors"
	"fmt"
)

// ErrorCode classifies failures so callers can decide whether an
// operation is retryable or a local precondition was violated.
type ErrorCode string

const (
	// ErrCodeRemote covers unreachable backends and non-2xx responses.
	ErrCodeRemote ErrorCode = "REMOTE"
	// ErrCodeValidation covers client-side precondition failures.
	ErrCodeValidation ErrorCode = "VALIDATION"
	// ErrCodeNotFound covers references to ids absent from the
	// current store snapshot or unknown to the backend.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeConflict covers operations rejected by local protocol
	// state, e.g. starting a timer while another one runs.
	ErrCodeConflict ErrorCode = "CONFLICT"
	// ErrCodeUnauthorized covers missing or rejected credentials.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeInternal covers everything else.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// Error is the single error type surfaced past the usecase boundary.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain errors.
var (
	ErrTaskNotFound     = NewError(ErrCodeNotFound, "task not found")
	ErrTitleRequired    = NewError(ErrCodeValidation, "title is required")
	ErrInvalidTaskID    = NewError(ErrCodeValidation, "invalid task id")
	ErrPasswordTooShort = NewError(ErrCodeValidation, "password must contain at least 8 characters")
	ErrNotAuthenticated = NewError(ErrCodeUnauthorized, "not authenticated")
	ErrTimerBusy        = NewError(ErrCodeConflict, "another task's timer is already running")
)

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

// ErrorMessage extracts the human-readable message for display.
// Non-domain errors fall back to their Error() string.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Message
	}
	return err.Error()
}
