package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestFromDomain(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", fmt.Errorf("alert 7: %w", ErrNotFound), http.StatusNotFound, ErrCodeNotFound},
		{"validation", Validationf("severity %q", "urgent"), http.StatusBadRequest, ErrCodeValidation},
		{"mismatch", ErrIdentityMismatch, http.StatusUnauthorized, ErrCodeIdentityMismatch},
		{"liveness", fmt.Errorf("face: %w", ErrLivenessFailed), http.StatusUnauthorized, ErrCodeLivenessFailed},
		{"app error passthrough", RateLimited("slow down"), http.StatusTooManyRequests, ErrCodeRateLimited},
		{"unknown", fmt.Errorf("disk full"), http.StatusInternalServerError, ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromDomain(tt.err, "Alert")
			if got.StatusCode != tt.wantStatus {
				t.Errorf("FromDomain() status = %d, want %d", got.StatusCode, tt.wantStatus)
			}
			if got.Code != tt.wantCode {
				t.Errorf("FromDomain() code = %s, want %s", got.Code, tt.wantCode)
			}
		})
	}
}

func TestNotFoundUnwrapsToSentinel(t *testing.T) {
	if !Is(NotFound("Camera"), ErrNotFound) {
		t.Error("NotFound() should unwrap to ErrNotFound")
	}
	if !Is(ValidationError("bad", nil), ErrValidation) {
		t.Error("ValidationError() should unwrap to ErrValidation")
	}
}
