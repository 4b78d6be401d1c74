package biometric

import "context"

// Service defines biometric registration and authentication
type Service interface {
	Register(ctx context.Context, m Modality, userID int64, s Sample) (RegistrationResult, error)
	AuthenticateModality(ctx context.Context, m Modality, s Sample, userID *int64) (ModalityResult, error)
	Authenticate(ctx context.Context, req MultiModalRequest) (FusionResult, error)
	Fuse(results []ModalityResult) FusionResult
	CheckLiveness(ctx context.Context, s Sample) LivenessResult
}
