package biometric

import "time"

// Modality is a biometric trait
type Modality string

const (
	ModalityFace        Modality = "face"
	ModalityFingerprint Modality = "fingerprint"
	ModalityIris        Modality = "iris"
)

// ParseModality validates a modality name
func ParseModality(s string) (Modality, bool) {
	switch m := Modality(s); m {
	case ModalityFace, ModalityFingerprint, ModalityIris:
		return m, true
	}
	return "", false
}

// NeedsLiveness reports whether samples of m pass the liveness gate
func (m Modality) NeedsLiveness() bool {
	return m == ModalityFace || m == ModalityIris
}

// Sample is a captured biometric. Data holds an encoded image for face and
// iris, or raw scanner output for fingerprints. Encoding optionally carries
// a precomputed face embedding.
type Sample struct {
	Data     []byte    `json:"data"`
	Encoding []float64 `json:"encoding,omitempty"`
}

// Empty reports whether the sample carries nothing to match
func (s *Sample) Empty() bool {
	return s == nil || (len(s.Data) == 0 && len(s.Encoding) == 0)
}

// ModalityResult is the outcome of matching one modality
type ModalityResult struct {
	Modality   Modality `json:"modality"`
	Success    bool     `json:"success"`
	UserID     *int64   `json:"user_id,omitempty"`
	Confidence float64  `json:"confidence"`
	Distance   *float64 `json:"distance,omitempty"`
	Method     string   `json:"method"`
	Error      string   `json:"error,omitempty"`
}

// FailureReason explains a failed fusion
type FailureReason string

const (
	FailureNone             FailureReason = ""
	FailureIdentityMismatch FailureReason = "identity_mismatch"
	FailureLowConfidence    FailureReason = "low_confidence"
	FailureNoMatch          FailureReason = "no_match"
)

// FusionResult is the combined multi-modal decision
type FusionResult struct {
	Success              bool             `json:"success"`
	UserID               *int64           `json:"user_id,omitempty"`
	Confidence           float64          `json:"confidence"`
	SuccessfulModalities int              `json:"successful_modalities"`
	TotalModalities      int              `json:"total_modalities"`
	Results              []ModalityResult `json:"detailed_results"`
	Failure              FailureReason    `json:"failure,omitempty"`
}

// LivenessResult is the outcome of the liveness gate
type LivenessResult struct {
	IsLive       bool    `json:"is_live"`
	Confidence   float64 `json:"confidence"`
	QualityScore float64 `json:"quality_score"`
	Error        string  `json:"error,omitempty"`
}

// RegistrationResult is returned by Register
type RegistrationResult struct {
	Success  bool      `json:"success"`
	Modality Modality  `json:"modality"`
	UserID   int64     `json:"user_id"`
	Template string    `json:"template,omitempty"`
	Encoding []float64 `json:"encoding,omitempty"`
	Quality  float64   `json:"quality"`
	Error    string    `json:"error,omitempty"`
}

// MultiModalRequest carries the samples for Authenticate. Nil samples are skipped.
type MultiModalRequest struct {
	Face        *Sample
	Fingerprint *Sample
	Iris        *Sample
	UserID      *int64
}

// Template is an enrolled biometric. Face templates keep an embedding,
// fingerprint and iris templates keep a digest.
type Template struct {
	UserID    int64     `json:"user_id"`
	Modality  Modality  `json:"modality"`
	Digest    string    `json:"digest,omitempty"`
	Encoding  []float64 `json:"encoding,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
