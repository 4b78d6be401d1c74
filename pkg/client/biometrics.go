package client

import (
	"context"
	"net/http"
)

// BiometricService handles enrollment and authentication
type BiometricService struct {
	client *Client
}

// Register enrolls a template for modality
func (s *BiometricService) Register(ctx context.Context, modality string, userID int64, sample Sample) (*RegistrationResult, error) {
	body := struct {
		UserID int64 `json:"user_id"`
		Sample
	}{userID, sample}
	var out RegistrationResult
	if _, err := s.client.do(ctx, http.MethodPost, "/api/v1/biometric/register/"+modality, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Authenticate matches one modality. A non-match is returned as a result,
// not an error. userID selects verify mode when non-nil.
func (s *BiometricService) Authenticate(ctx context.Context, modality string, sample Sample, userID *int64) (*ModalityResult, error) {
	body := struct {
		UserID *int64 `json:"user_id,omitempty"`
		Sample
	}{userID, sample}
	var out ModalityResult
	if _, err := s.client.do(ctx, http.MethodPost, "/api/v1/biometric/authenticate/"+modality, body, &out, http.StatusUnauthorized); err != nil {
		return nil, err
	}
	return &out, nil
}

// MultiModal carries the samples to fuse. Nil samples are skipped.
type MultiModal struct {
	UserID      *int64  `json:"user_id,omitempty"`
	Face        *Sample `json:"face,omitempty"`
	Fingerprint *Sample `json:"fingerprint,omitempty"`
	Iris        *Sample `json:"iris,omitempty"`
}

// AuthenticateMultiModal fuses every supplied modality
func (s *BiometricService) AuthenticateMultiModal(ctx context.Context, req MultiModal) (*FusionResult, error) {
	var out FusionResult
	if _, err := s.client.do(ctx, http.MethodPost, "/api/v1/biometric/authenticate/multi-modal", req, &out, http.StatusUnauthorized); err != nil {
		return nil, err
	}
	return &out, nil
}

// Liveness checks whether an image shows a live subject
func (s *BiometricService) Liveness(ctx context.Context, image []byte) (*LivenessResult, error) {
	var out LivenessResult
	if _, err := s.client.do(ctx, http.MethodPost, "/api/v1/biometric/liveness", map[string][]byte{"data": image}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
