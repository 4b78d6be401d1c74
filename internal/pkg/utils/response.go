package utils

import (
	"encoding/json"
	"net/http"

	"github.com/pratik-mahalle/watchpost/internal/pkg/errors"
	"github.com/pratik-mahalle/watchpost/internal/pkg/validator"
)

// SuccessResponse is the envelope of every 2xx body
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// ErrorResponse is the envelope of every error body
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed request. Field-level validation problems
// are listed in Fields; any other context goes to Details.
type ErrorDetail struct {
	Code    string                     `json:"code"`
	Message string                     `json:"message"`
	Fields  validator.ValidationErrors `json:"fields,omitempty"`
	Details interface{}                `json:"details,omitempty"`
}

// Suppression is the data of a write that the alert cooldown dropped
type Suppression struct {
	Suppressed bool   `json:"suppressed"`
	Reason     string `json:"reason"`
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful JSON response
func WriteSuccess(w http.ResponseWriter, status int, data interface{}) error {
	return WriteJSON(w, status, SuccessResponse{Success: true, Data: data})
}

// WriteSuccessWithMessage writes a successful JSON response with a message
func WriteSuccessWithMessage(w http.ResponseWriter, status int, message string, data interface{}) error {
	return WriteJSON(w, status, SuccessResponse{Success: true, Message: message, Data: data})
}

// WriteError writes the error envelope for err
func WriteError(w http.ResponseWriter, err *errors.AppError) error {
	return WriteJSON(w, err.StatusCode, ErrorResponse{Error: detailOf(err)})
}

// WriteDomainError maps a service error onto a response. Cooldown
// suppression becomes a 200 Suppression body and yields nil; otherwise the
// AppError that was written is returned so the caller can log 5xx.
func WriteDomainError(w http.ResponseWriter, err error, resource string) *errors.AppError {
	if errors.Is(err, errors.ErrSuppressed) {
		_ = WriteSuccess(w, http.StatusOK, Suppression{Suppressed: true, Reason: err.Error()})
		return nil
	}
	appErr := errors.FromDomain(err, resource)
	_ = WriteError(w, appErr)
	return appErr
}

func detailOf(err *errors.AppError) ErrorDetail {
	d := ErrorDetail{Code: err.Code, Message: err.Message}
	switch details := err.Details.(type) {
	case nil:
	case validator.ValidationErrors:
		d.Fields = details
	case string:
		if err.Code == errors.ErrCodeValidation {
			d.Fields = validator.ValidationErrors{{Message: details}}
		} else {
			d.Details = details
		}
	default:
		d.Details = details
	}
	return d
}
