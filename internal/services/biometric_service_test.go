package services

import (
	"context"
	"errors"
	"testing"

	"github.com/pratik-mahalle/watchpost/internal/config"
	"github.com/pratik-mahalle/watchpost/internal/domain/biometric"
	apperrors "github.com/pratik-mahalle/watchpost/internal/pkg/errors"
	"github.com/pratik-mahalle/watchpost/internal/repository/memory"
	"github.com/pratik-mahalle/watchpost/internal/testutil"
	"github.com/pratik-mahalle/watchpost/internal/vision"
)

func newBiometricService(t *testing.T, encoder biometric.FaceEncoder) *BiometricService {
	t.Helper()
	store := memory.NewTemplateStore()
	t.Cleanup(func() { _ = store.Close() })
	return NewBiometricService(store, encoder, config.BiometricConfig{
		FaceTolerance:       0.6,
		FusionThreshold:     0.7,
		IrisEnabled:         true,
		LivenessMinVariance: 100,
	}, testutil.NewTestLogger())
}

func liveImage(t *testing.T) []byte {
	t.Helper()
	data, err := vision.EncodeJPEG(testutil.CheckerImage(64, 64, 2), 95)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func flatImage(t *testing.T) []byte {
	t.Helper()
	data, err := vision.EncodeJPEG(testutil.SolidImage(64, 64, 120), 95)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func faceSample(t *testing.T, enc ...float64) biometric.Sample {
	return biometric.Sample{Data: liveImage(t), Encoding: enc}
}

func ptr(v int64) *int64 { return &v }

func TestBiometricService_CheckLiveness(t *testing.T) {
	svc := newBiometricService(t, nil)
	ctx := context.Background()

	live := svc.CheckLiveness(ctx, biometric.Sample{Data: liveImage(t)})
	if !live.IsLive || live.Confidence != 1 || live.QualityScore <= 100 {
		t.Errorf("textured image = %+v, want live", live)
	}

	flat := svc.CheckLiveness(ctx, biometric.Sample{Data: flatImage(t)})
	if flat.IsLive || flat.Confidence >= 0.1 {
		t.Errorf("flat image = %+v, want not live", flat)
	}

	bad := svc.CheckLiveness(ctx, biometric.Sample{Data: []byte("garbage")})
	if bad.IsLive || bad.Error == "" {
		t.Errorf("garbage = %+v, want error", bad)
	}
}

func TestBiometricService_RegisterAndAuthenticateFace(t *testing.T) {
	svc := newBiometricService(t, nil)
	ctx := context.Background()

	if _, err := svc.Register(ctx, biometric.ModalityFace, 1, faceSample(t, 0, 0, 0)); err != nil {
		t.Fatalf("Register(user 1) error = %v", err)
	}
	if _, err := svc.Register(ctx, biometric.ModalityFace, 2, faceSample(t, 1, 1, 1)); err != nil {
		t.Fatalf("Register(user 2) error = %v", err)
	}

	res, err := svc.AuthenticateModality(ctx, biometric.ModalityFace, faceSample(t, 0.9, 0.9, 1.0), nil)
	if err != nil {
		t.Fatalf("AuthenticateModality() error = %v", err)
	}
	if !res.Success || *res.UserID != 2 {
		t.Fatalf("AuthenticateModality() = %+v, want user 2", res)
	}
	if res.Distance == nil || res.Confidence != 1-*res.Distance {
		t.Errorf("confidence %v does not equal 1 - distance", res.Confidence)
	}

	// verify mode against the wrong user
	res, _ = svc.AuthenticateModality(ctx, biometric.ModalityFace, faceSample(t, 0.9, 0.9, 1.0), ptr(1))
	if res.Success {
		t.Errorf("verify against user 1 = %+v, want failure", res)
	}

	// verify mode against a user with no template
	res, err = svc.AuthenticateModality(ctx, biometric.ModalityFace, faceSample(t, 0, 0, 0), ptr(99))
	if err != nil || res.Success {
		t.Errorf("verify unknown user = %+v, %v; want failed result", res, err)
	}
}

func TestBiometricService_LivenessGate(t *testing.T) {
	svc := newBiometricService(t, nil)
	ctx := context.Background()

	flat := biometric.Sample{Data: flatImage(t), Encoding: []float64{0, 0}}
	if _, err := svc.Register(ctx, biometric.ModalityFace, 1, flat); !errors.Is(err, apperrors.ErrLivenessFailed) {
		t.Errorf("Register() with flat image error = %v, want ErrLivenessFailed", err)
	}

	res, err := svc.AuthenticateModality(ctx, biometric.ModalityIris, biometric.Sample{Data: flatImage(t)}, nil)
	if !errors.Is(err, apperrors.ErrLivenessFailed) || res.Success {
		t.Errorf("iris with flat image = %+v, %v", res, err)
	}

	// fingerprints skip the gate
	if _, err := svc.Register(ctx, biometric.ModalityFingerprint, 1, biometric.Sample{Data: []byte("ridge-data")}); err != nil {
		t.Errorf("Register(fingerprint) error = %v", err)
	}
}

func TestBiometricService_FaceEncoder(t *testing.T) {
	tests := []struct {
		name    string
		faces   [][]float64
		wantErr bool
	}{
		{"one face", [][]float64{{0.1, 0.2}}, false},
		{"no face", nil, true},
		{"two faces", [][]float64{{0.1}, {0.2}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newBiometricService(t, &testutil.MockFaceEncoder{Faces: tt.faces})
			res, err := svc.Register(context.Background(), biometric.ModalityFace, 1, biometric.Sample{Data: liveImage(t)})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Register() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, apperrors.ErrValidation) {
				t.Errorf("Register() error = %v, want ErrValidation", err)
			}
			if !tt.wantErr && (!res.Success || res.Quality != 1.0) {
				t.Errorf("Register() = %+v", res)
			}
		})
	}
}

func TestBiometricService_Digests(t *testing.T) {
	svc := newBiometricService(t, nil)
	ctx := context.Background()

	reg, err := svc.Register(ctx, biometric.ModalityFingerprint, 3, biometric.Sample{Data: []byte("print-3")})
	if err != nil || reg.Quality != 0.95 || len(reg.Template) != 64 {
		t.Fatalf("Register(fingerprint) = %+v, %v", reg, err)
	}

	res, _ := svc.AuthenticateModality(ctx, biometric.ModalityFingerprint, biometric.Sample{Data: []byte("print-3")}, nil)
	if !res.Success || *res.UserID != 3 || res.Confidence != 1.0 {
		t.Errorf("matching fingerprint = %+v", res)
	}

	res, _ = svc.AuthenticateModality(ctx, biometric.ModalityFingerprint, biometric.Sample{Data: []byte("print-4")}, nil)
	if res.Success || res.Confidence != 0 {
		t.Errorf("unknown fingerprint = %+v", res)
	}

	iris, err := svc.Register(ctx, biometric.ModalityIris, 3, biometric.Sample{Data: liveImage(t)})
	if err != nil || iris.Quality != 0.98 {
		t.Errorf("Register(iris) = %+v, %v", iris, err)
	}
}

func TestBiometricService_Fuse(t *testing.T) {
	svc := newBiometricService(t, nil)

	ok := func(m biometric.Modality, uid int64, conf float64) biometric.ModalityResult {
		return biometric.ModalityResult{Modality: m, Success: true, UserID: ptr(uid), Confidence: conf}
	}
	failed := biometric.ModalityResult{Modality: biometric.ModalityIris}

	tests := []struct {
		name        string
		results     []biometric.ModalityResult
		wantSuccess bool
		wantFailure biometric.FailureReason
		wantConf    float64
	}{
		{
			name:        "agreeing modalities",
			results:     []biometric.ModalityResult{ok("face", 1, 0.8), ok("fingerprint", 1, 1.0), failed},
			wantSuccess: true,
			wantConf:    0.9,
		},
		{
			name:        "identity mismatch",
			results:     []biometric.ModalityResult{ok("face", 1, 0.9), ok("fingerprint", 2, 1.0)},
			wantFailure: biometric.FailureIdentityMismatch,
		},
		{
			name:        "below threshold",
			results:     []biometric.ModalityResult{ok("face", 1, 0.5)},
			wantFailure: biometric.FailureLowConfidence,
			wantConf:    0.5,
		},
		{
			name:        "nothing matched",
			results:     []biometric.ModalityResult{failed},
			wantFailure: biometric.FailureNoMatch,
		},
		{
			name:        "no results",
			wantFailure: biometric.FailureNoMatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := svc.Fuse(tt.results)
			if got.Success != tt.wantSuccess || got.Failure != tt.wantFailure {
				t.Errorf("Fuse() = success %v failure %q, want %v %q", got.Success, got.Failure, tt.wantSuccess, tt.wantFailure)
			}
			if tt.wantConf != 0 && (got.Confidence-tt.wantConf > 1e-9 || tt.wantConf-got.Confidence > 1e-9) {
				t.Errorf("Confidence = %v, want %v", got.Confidence, tt.wantConf)
			}
			if !got.Success && got.UserID != nil {
				t.Errorf("failed fusion carries user %d", *got.UserID)
			}
		})
	}
}

func TestBiometricService_Authenticate(t *testing.T) {
	svc := newBiometricService(t, nil)
	ctx := context.Background()

	_, _ = svc.Register(ctx, biometric.ModalityFace, 1, faceSample(t, 0, 0))
	_, _ = svc.Register(ctx, biometric.ModalityFingerprint, 1, biometric.Sample{Data: []byte("print-1")})
	_, _ = svc.Register(ctx, biometric.ModalityFingerprint, 2, biometric.Sample{Data: []byte("print-2")})

	t.Run("success", func(t *testing.T) {
		face := faceSample(t, 0.1, 0)
		print1 := biometric.Sample{Data: []byte("print-1")}
		got, err := svc.Authenticate(ctx, biometric.MultiModalRequest{Face: &face, Fingerprint: &print1})
		if err != nil || !got.Success || *got.UserID != 1 {
			t.Fatalf("Authenticate() = %+v, %v", got, err)
		}
		if got.TotalModalities != 2 || got.SuccessfulModalities != 2 {
			t.Errorf("modalities = %d/%d", got.SuccessfulModalities, got.TotalModalities)
		}
		if got.Results[0].Modality != biometric.ModalityFace {
			t.Errorf("first modality = %s, want face", got.Results[0].Modality)
		}
	})

	t.Run("mismatch", func(t *testing.T) {
		face := faceSample(t, 0, 0)
		print2 := biometric.Sample{Data: []byte("print-2")}
		got, err := svc.Authenticate(ctx, biometric.MultiModalRequest{Face: &face, Fingerprint: &print2})
		if !errors.Is(err, apperrors.ErrIdentityMismatch) || got.Success || got.Failure != biometric.FailureIdentityMismatch {
			t.Errorf("Authenticate() = %+v, %v; want identity mismatch", got, err)
		}
	})

	t.Run("liveness failure counts as failed modality", func(t *testing.T) {
		face := biometric.Sample{Data: flatImage(t), Encoding: []float64{0, 0}}
		print1 := biometric.Sample{Data: []byte("print-1")}
		got, err := svc.Authenticate(ctx, biometric.MultiModalRequest{Face: &face, Fingerprint: &print1})
		if err != nil || !got.Success || got.SuccessfulModalities != 1 || got.Results[0].Error == "" {
			t.Errorf("Authenticate() = %+v, %v", got, err)
		}
	})

	t.Run("no samples", func(t *testing.T) {
		if _, err := svc.Authenticate(ctx, biometric.MultiModalRequest{}); !errors.Is(err, apperrors.ErrValidation) {
			t.Errorf("Authenticate() error = %v, want ErrValidation", err)
		}
	})
}
