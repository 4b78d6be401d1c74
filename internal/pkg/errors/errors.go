package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Domain outcomes. Services return these (possibly wrapped) and callers
// branch on them with errors.Is.
var (
	ErrNotFound         = stderrors.New("not found")
	ErrValidation       = stderrors.New("validation failed")
	ErrSuppressed       = stderrors.New("suppressed by cooldown")
	ErrTransientIO      = stderrors.New("transient i/o failure")
	ErrDeliveryFailed   = stderrors.New("delivery failed")
	ErrIdentityMismatch = stderrors.New("biometric identity mismatch between modalities")
	ErrLivenessFailed   = stderrors.New("liveness check failed")
)

// Is, As and Join re-export the standard helpers so callers need one import.
var (
	Is   = stderrors.Is
	As   = stderrors.As
	Join = stderrors.Join
)

// AppError represents an application error with additional context
type AppError struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	StatusCode int         `json:"-"`
	Internal   error       `json:"-"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}
	return e.Message
}

// Unwrap returns the internal error for errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Common error codes
const (
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeDatabase           = "DATABASE_ERROR"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeIdentityMismatch   = "IDENTITY_MISMATCH"
	ErrCodeLivenessFailed     = "LIVENESS_FAILED"
)

// New creates a new AppError
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with an AppError
func Wrap(err error, code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Internal:   err,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// Internal creates an internal server error
func Internal(message string, err error) *AppError {
	return Wrap(err, ErrCodeInternal, message, http.StatusInternalServerError)
}

// BadRequest creates a bad request error
func BadRequest(message string) *AppError {
	return New(ErrCodeBadRequest, message, http.StatusBadRequest)
}

// Unauthorized creates an unauthorized error
func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message, http.StatusUnauthorized)
}

// NotFound creates a not found error
func NotFound(resource string) *AppError {
	return Wrap(ErrNotFound, ErrCodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// ValidationError creates a validation error
func ValidationError(message string, details interface{}) *AppError {
	return Wrap(ErrValidation, ErrCodeValidation, message, http.StatusBadRequest).WithDetails(details)
}

// DatabaseError creates a database error
func DatabaseError(message string, err error) *AppError {
	return Wrap(err, ErrCodeDatabase, message, http.StatusInternalServerError)
}

// RateLimited creates a rate limited error
func RateLimited(message string) *AppError {
	return New(ErrCodeRateLimited, message, http.StatusTooManyRequests)
}

// ServiceUnavailable creates a service unavailable error
func ServiceUnavailable(message string) *AppError {
	return New(ErrCodeServiceUnavailable, message, http.StatusServiceUnavailable)
}

// Validationf wraps ErrValidation with a formatted message.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// FromDomain maps a service error onto the HTTP-facing AppError.
func FromDomain(err error, resource string) *AppError {
	var appErr *AppError
	switch {
	case As(err, &appErr):
		return appErr
	case Is(err, ErrNotFound):
		return NotFound(resource)
	case Is(err, ErrValidation):
		return Wrap(err, ErrCodeValidation, err.Error(), http.StatusBadRequest)
	case Is(err, ErrIdentityMismatch):
		return Wrap(err, ErrCodeIdentityMismatch, ErrIdentityMismatch.Error(), http.StatusUnauthorized)
	case Is(err, ErrLivenessFailed):
		return Wrap(err, ErrCodeLivenessFailed, ErrLivenessFailed.Error(), http.StatusUnauthorized)
	default:
		return Internal(fmt.Sprintf("Failed to process %s", resource), err)
	}
}
