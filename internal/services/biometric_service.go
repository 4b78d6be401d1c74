package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/pratik-mahalle/watchpost/internal/config"
	"github.com/pratik-mahalle/watchpost/internal/domain/biometric"
	"github.com/pratik-mahalle/watchpost/internal/pkg/errors"
	"github.com/pratik-mahalle/watchpost/internal/pkg/logger"
	"github.com/pratik-mahalle/watchpost/internal/pkg/metrics"
	"github.com/pratik-mahalle/watchpost/internal/vision"
)

// Matching methods reported on modality results
const (
	methodFaceDistance = "face_distance"
	methodTemplateHash = "template_hash"
)

// Template quality reported on registration
const (
	faceQuality        = 1.0
	fingerprintQuality = 0.95
	irisQuality        = 0.98
)

// BiometricService implements biometric.Service
type BiometricService struct {
	templates biometric.TemplateStore
	encoder   biometric.FaceEncoder
	cfg       config.BiometricConfig
	logger    *logger.Logger
	now       func() time.Time
}

// NewBiometricService creates a new biometric service. encoder may be nil,
// in which case face samples must carry their embedding.
func NewBiometricService(
	templates biometric.TemplateStore,
	encoder biometric.FaceEncoder,
	cfg config.BiometricConfig,
	log *logger.Logger,
) *BiometricService {
	return &BiometricService{
		templates: templates,
		encoder:   encoder,
		cfg:       cfg,
		logger:    log.Component("biometric"),
		now:       time.Now,
	}
}

// CheckLiveness scores image sharpness with the variance of the Laplacian
func (s *BiometricService) CheckLiveness(ctx context.Context, sample biometric.Sample) biometric.LivenessResult {
	if len(sample.Data) == 0 {
		return biometric.LivenessResult{Error: "liveness check needs image data"}
	}
	img, err := vision.Decode(sample.Data)
	if err != nil {
		return biometric.LivenessResult{Error: err.Error()}
	}

	variance := vision.LaplacianVariance(vision.ToGray(img))
	return biometric.LivenessResult{
		IsLive:       variance > s.cfg.LivenessMinVariance,
		Confidence:   math.Min(variance/1000, 1),
		QualityScore: variance,
	}
}

func (s *BiometricService) checkLive(ctx context.Context, m biometric.Modality, sample biometric.Sample) error {
	if !m.NeedsLiveness() {
		return nil
	}
	res := s.CheckLiveness(ctx, sample)
	if res.IsLive {
		return nil
	}
	reason := res.Error
	if reason == "" {
		reason = fmt.Sprintf("quality score %.1f below %.1f", res.QualityScore, s.cfg.LivenessMinVariance)
	}
	return fmt.Errorf("%w: %s", errors.ErrLivenessFailed, reason)
}

func (s *BiometricService) checkModality(m biometric.Modality) error {
	if _, ok := biometric.ParseModality(string(m)); !ok {
		return errors.Validationf("unknown modality %q", m)
	}
	if m == biometric.ModalityIris && !s.cfg.IrisEnabled {
		return errors.Validationf("iris recognition is disabled")
	}
	return nil
}

// faceEncodings returns the embeddings of a face sample
func (s *BiometricService) faceEncodings(ctx context.Context, sample biometric.Sample) ([][]float64, error) {
	if len(sample.Encoding) > 0 {
		return [][]float64{sample.Encoding}, nil
	}
	if s.encoder == nil {
		return nil, errors.Validationf("face sample carries no encoding and no face encoder is configured")
	}
	img, err := vision.Decode(sample.Data)
	if err != nil {
		return nil, errors.Validationf("%s", err.Error())
	}
	faces, err := s.encoder.Encode(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode face: %w", err)
	}
	if len(faces) == 0 {
		return nil, errors.Validationf("no face detected in image")
	}
	return faces, nil
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Register enrols a template for userID
func (s *BiometricService) Register(ctx context.Context, m biometric.Modality, userID int64, sample biometric.Sample) (biometric.RegistrationResult, error) {
	result := biometric.RegistrationResult{Modality: m, UserID: userID}

	if err := s.checkModality(m); err != nil {
		return result, err
	}
	if userID <= 0 {
		return result, errors.Validationf("user id must be positive")
	}
	if sample.Empty() {
		return result, errors.Validationf("empty %s sample", m)
	}
	if err := s.checkLive(ctx, m, sample); err != nil {
		result.Error = err.Error()
		return result, err
	}

	tmpl := biometric.Template{UserID: userID, Modality: m, CreatedAt: s.now()}
	switch m {
	case biometric.ModalityFace:
		faces, err := s.faceEncodings(ctx, sample)
		if err != nil {
			result.Error = err.Error()
			return result, err
		}
		if len(faces) > 1 {
			err := errors.Validationf("multiple faces detected, registration needs exactly one")
			result.Error = err.Error()
			return result, err
		}
		tmpl.Encoding = faces[0]
		result.Encoding = faces[0]
		result.Quality = faceQuality
	case biometric.ModalityFingerprint:
		tmpl.Digest = digest(sample.Data)
		result.Template = tmpl.Digest
		result.Quality = fingerprintQuality
	case biometric.ModalityIris:
		tmpl.Digest = digest(sample.Data)
		result.Template = tmpl.Digest
		result.Quality = irisQuality
	}

	if err := s.templates.Put(ctx, tmpl); err != nil {
		s.logger.ErrorWithErr(err, "Failed to store biometric template")
		return result, fmt.Errorf("failed to store template: %w", err)
	}

	result.Success = true
	s.logger.WithFields(map[string]interface{}{
		"user_id":  userID,
		"modality": m,
	}).Info("Biometric template registered")

	return result, nil
}

// AuthenticateModality matches one sample. With userID set only that user's
// template is considered; otherwise the best match among all templates wins.
func (s *BiometricService) AuthenticateModality(ctx context.Context, m biometric.Modality, sample biometric.Sample, userID *int64) (res biometric.ModalityResult, err error) {
	res = biometric.ModalityResult{Modality: m, Method: methodTemplateHash}
	if m == biometric.ModalityFace {
		res.Method = methodFaceDistance
	}
	defer func() {
		if err != nil && res.Error == "" {
			res.Error = err.Error()
		}
		metrics.RecordAuthAttempt(string(m), res.Success)
	}()

	if err := s.checkModality(m); err != nil {
		return res, err
	}
	if sample.Empty() {
		return res, errors.Validationf("empty %s sample", m)
	}
	if err := s.checkLive(ctx, m, sample); err != nil {
		return res, err
	}

	candidates, err := s.candidates(ctx, m, userID)
	if err != nil {
		return res, err
	}
	if len(candidates) == 0 {
		res.Error = "no enrolled template"
		return res, nil
	}

	if m == biometric.ModalityFace {
		faces, err := s.faceEncodings(ctx, sample)
		if err != nil {
			return res, err
		}
		s.matchFace(&res, faces[0], candidates)
	} else {
		s.matchDigest(&res, digest(sample.Data), candidates)
	}

	if !res.Success && res.Error == "" {
		res.Error = "no match"
	}
	return res, nil
}

func (s *BiometricService) candidates(ctx context.Context, m biometric.Modality, userID *int64) ([]biometric.Template, error) {
	if userID == nil {
		list, err := s.templates.List(ctx, m)
		if err != nil {
			return nil, fmt.Errorf("failed to list templates: %w", err)
		}
		return list, nil
	}
	tmpl, ok, err := s.templates.Get(ctx, m, *userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load template: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return []biometric.Template{tmpl}, nil
}

// matchFace keeps the closest template within tolerance
func (s *BiometricService) matchFace(res *biometric.ModalityResult, query []float64, candidates []biometric.Template) {
	for _, t := range candidates {
		d, ok := euclidean(query, t.Encoding)
		if !ok || d > s.cfg.FaceTolerance {
			continue
		}
		confidence := 1 - d
		if res.Success && confidence <= res.Confidence {
			continue
		}
		uid := t.UserID
		dist := d
		res.Success = true
		res.UserID = &uid
		res.Confidence = confidence
		res.Distance = &dist
	}
}

func (s *BiometricService) matchDigest(res *biometric.ModalityResult, query string, candidates []biometric.Template) {
	for _, t := range candidates {
		if t.Digest == query {
			uid := t.UserID
			res.Success = true
			res.UserID = &uid
			res.Confidence = 1.0
			return
		}
	}
	res.Confidence = 0
}

func euclidean(a, b []float64) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum), true
}

// Fuse combines modality results. Successful modalities must agree on the
// user; the mean of their confidences must clear the fusion threshold.
func (s *BiometricService) Fuse(results []biometric.ModalityResult) biometric.FusionResult {
	out := biometric.FusionResult{
		TotalModalities: len(results),
		Results:         results,
	}

	var identity *int64
	var sum float64
	for _, r := range results {
		if !r.Success || r.UserID == nil {
			continue
		}
		if identity == nil {
			uid := *r.UserID
			identity = &uid
		} else if *r.UserID != *identity {
			out.Failure = biometric.FailureIdentityMismatch
			metrics.RecordFusionFailure(string(out.Failure))
			return out
		}
		out.SuccessfulModalities++
		sum += r.Confidence
	}

	if out.SuccessfulModalities == 0 {
		out.Failure = biometric.FailureNoMatch
		metrics.RecordFusionFailure(string(out.Failure))
		return out
	}

	out.Confidence = sum / float64(out.SuccessfulModalities)
	if out.Confidence < s.cfg.FusionThreshold {
		out.Failure = biometric.FailureLowConfidence
		metrics.RecordFusionFailure(string(out.Failure))
		return out
	}

	out.Success = true
	out.UserID = identity
	return out
}

// Authenticate runs face, fingerprint and iris in that order and fuses the
// results. A modality that fails with an error counts as a failed result.
func (s *BiometricService) Authenticate(ctx context.Context, req biometric.MultiModalRequest) (biometric.FusionResult, error) {
	steps := []struct {
		m      biometric.Modality
		sample *biometric.Sample
	}{
		{biometric.ModalityFace, req.Face},
		{biometric.ModalityFingerprint, req.Fingerprint},
	}
	if s.cfg.IrisEnabled {
		steps = append(steps, struct {
			m      biometric.Modality
			sample *biometric.Sample
		}{biometric.ModalityIris, req.Iris})
	}

	var results []biometric.ModalityResult
	for _, step := range steps {
		if step.sample == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return biometric.FusionResult{}, err
		}
		res, err := s.AuthenticateModality(ctx, step.m, *step.sample, req.UserID)
		if err != nil {
			s.logger.WithFields(map[string]interface{}{
				"modality": step.m,
			}).WarnWithErr(err, "Modality authentication failed")
		}
		results = append(results, res)
	}

	if len(results) == 0 {
		return biometric.FusionResult{}, errors.Validationf("no biometric samples provided")
	}

	fused := s.Fuse(results)
	log := s.logger.WithFields(map[string]interface{}{
		"modalities": fused.TotalModalities,
		"successful": fused.SuccessfulModalities,
		"confidence": fused.Confidence,
	})
	switch {
	case fused.Success:
		log.With("user_id", *fused.UserID).Info("Multi-modal authentication succeeded")
	case fused.Failure == biometric.FailureIdentityMismatch:
		log.Warn("Multi-modal authentication rejected: modalities disagree on identity")
		return fused, errors.ErrIdentityMismatch
	default:
		log.With("reason", fused.Failure).Info("Multi-modal authentication failed")
	}
	return fused, nil
}
