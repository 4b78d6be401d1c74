package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pratik-mahalle/watchpost/internal/pkg/errors"
	"github.com/pratik-mahalle/watchpost/internal/pkg/validator"
)

type errorBody struct {
	Success bool `json:"success"`
	Error   struct {
		Code    string                     `json:"code"`
		Message string                     `json:"message"`
		Fields  validator.ValidationErrors `json:"fields"`
		Details interface{}                `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	return body
}

func TestWriteError_Fields(t *testing.T) {
	tests := []struct {
		name       string
		err        *errors.AppError
		wantFields int
		wantDetail bool
	}{
		{
			name: "validator errors",
			err: errors.ValidationError("Validation failed", validator.ValidationErrors{
				{Field: "title", Tag: "required", Message: "title is required"},
				{Field: "severity", Tag: "severity", Message: "severity must be one of [low medium high critical]"},
			}),
			wantFields: 2,
		},
		{
			name:       "validation message",
			err:        errors.ValidationError("Validation failed", "user_id is required"),
			wantFields: 1,
		},
		{
			name:       "other details",
			err:        errors.BadRequest("Bad").WithDetails(map[string]int{"limit": 500}),
			wantDetail: true,
		},
		{
			name: "no details",
			err:  errors.NotFound("alert"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			if err := WriteError(rec, tt.err); err != nil {
				t.Fatalf("WriteError() error = %v", err)
			}
			if rec.Code != tt.err.StatusCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.err.StatusCode)
			}
			body := decodeError(t, rec)
			if body.Success || body.Error.Code != tt.err.Code {
				t.Errorf("body = %+v", body)
			}
			if len(body.Error.Fields) != tt.wantFields {
				t.Errorf("fields = %v, want %d", body.Error.Fields, tt.wantFields)
			}
			if (body.Error.Details != nil) != tt.wantDetail {
				t.Errorf("details = %v", body.Error.Details)
			}
		})
	}
}

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		code     string
		returned bool
	}{
		{"suppressed", fmt.Errorf("%w: motion|cam=1|loc=-", errors.ErrSuppressed), http.StatusOK, "", false},
		{"not found", errors.ErrNotFound, http.StatusNotFound, errors.ErrCodeNotFound, true},
		{"validation", errors.Validationf("confidence score 87 outside [0,1]"), http.StatusBadRequest, errors.ErrCodeValidation, true},
		{"identity mismatch", errors.ErrIdentityMismatch, http.StatusUnauthorized, errors.ErrCodeIdentityMismatch, true},
		{"internal", fmt.Errorf("disk full"), http.StatusInternalServerError, errors.ErrCodeInternal, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			appErr := WriteDomainError(rec, tt.err, "alert")
			if (appErr != nil) != tt.returned {
				t.Fatalf("WriteDomainError() = %v, want returned %v", appErr, tt.returned)
			}
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}

			if tt.code == "" {
				var body struct {
					Success bool        `json:"success"`
					Data    Suppression `json:"data"`
				}
				if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
					t.Fatalf("invalid body: %v", err)
				}
				if !body.Success || !body.Data.Suppressed || body.Data.Reason == "" {
					t.Errorf("body = %+v", body)
				}
				return
			}
			if body := decodeError(t, rec); body.Error.Code != tt.code {
				t.Errorf("code = %q, want %q", body.Error.Code, tt.code)
			}
		})
	}
}
