package client

import (
	"fmt"
	"net/http"
	"strings"
)

// Error codes returned by the API
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeRateLimited      = "RATE_LIMITED"
	CodeIdentityMismatch = "IDENTITY_MISMATCH"
	CodeLivenessFailed   = "LIVENESS_FAILED"
)

// FieldError is one rejected request field
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Tag     string `json:"tag,omitempty"`
	Message string `json:"message"`
}

// APIError is the error envelope of a non-2xx response
type APIError struct {
	StatusCode int          `json:"-"`
	Code       string       `json:"code"`
	Message    string       `json:"message"`
	Fields     []FieldError `json:"fields,omitempty"`
	Details    interface{}  `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "watchpost: %d", e.StatusCode)
	if e.Code != "" {
		fmt.Fprintf(&b, " %s", e.Code)
	}
	fmt.Fprintf(&b, ": %s", e.Message)
	if len(e.Fields) > 0 {
		msgs := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			msgs = append(msgs, f.Message)
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(msgs, "; "))
	}
	return b.String()
}

// IsNotFound reports a missing alert, camera or template
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsUnauthorized reports a missing or rejected token. Biometric rejections
// also use 401 but are reported by IsBiometricRejection instead.
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized && !e.IsBiometricRejection()
}

// IsForbidden reports a token without the required role
func (e *APIError) IsForbidden() bool {
	return e.StatusCode == http.StatusForbidden
}

// IsValidationError reports a rejected request body or query
func (e *APIError) IsValidationError() bool {
	return e.Code == CodeValidation || e.StatusCode == http.StatusBadRequest
}

// IsRateLimited reports a throttled request
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsBiometricRejection reports a failed liveness check or an identity
// mismatch between modalities
func (e *APIError) IsBiometricRejection() bool {
	return e.Code == CodeIdentityMismatch || e.Code == CodeLivenessFailed
}

// IsServerError reports a 5xx response
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= http.StatusInternalServerError
}
