package dto

import "github.com/pratik-mahalle/watchpost/internal/domain/biometric"

// SampleRequest carries one biometric sample. Data is base64 in JSON.
type SampleRequest struct {
	Data     []byte    `json:"data,omitempty"`
	Encoding []float64 `json:"encoding,omitempty"`
}

// Sample converts the request into the domain sample
func (s *SampleRequest) Sample() *biometric.Sample {
	if s == nil {
		return nil
	}
	return &biometric.Sample{Data: s.Data, Encoding: s.Encoding}
}

// RegisterRequest enrolls a template for one modality
type RegisterRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
	SampleRequest
}

// AuthenticateRequest matches one modality. UserID switches to verify mode.
type AuthenticateRequest struct {
	UserID *int64 `json:"user_id,omitempty" validate:"omitempty,gt=0"`
	SampleRequest
}

// MultiModalRequest carries up to three samples for fusion
type MultiModalRequest struct {
	UserID      *int64         `json:"user_id,omitempty" validate:"omitempty,gt=0"`
	Face        *SampleRequest `json:"face,omitempty"`
	Fingerprint *SampleRequest `json:"fingerprint,omitempty"`
	Iris        *SampleRequest `json:"iris,omitempty"`
}

// Domain converts the request into the service request
func (m MultiModalRequest) Domain() biometric.MultiModalRequest {
	return biometric.MultiModalRequest{
		Face:        m.Face.Sample(),
		Fingerprint: m.Fingerprint.Sample(),
		Iris:        m.Iris.Sample(),
		UserID:      m.UserID,
	}
}

// LivenessRequest carries the image to check
type LivenessRequest struct {
	Data []byte `json:"data" validate:"required"`
}
