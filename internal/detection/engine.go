// Package detection provides the emergency detection engines used by the
// camera monitors.
package detection

import (
	"context"
	"fmt"

	"github.com/pratik-mahalle/watchpost/internal/config"
	"github.com/pratik-mahalle/watchpost/internal/domain/camera"
	"github.com/pratik-mahalle/watchpost/internal/pkg/logger"
)

// NoopEngine never reports an emergency
type NoopEngine struct{}

// Analyze implements camera.DetectionEngine
func (NoopEngine) Analyze(ctx context.Context, f camera.Frame) (camera.DetectionResult, error) {
	return camera.DetectionResult{ConfidenceScores: map[string]float64{}}, nil
}

// FromConfig builds the engine selected by DETECTION_ENGINE. It returns nil
// for "none" so monitors skip analysis entirely.
func FromConfig(cfg config.DetectionConfig, log *logger.Logger) (camera.DetectionEngine, error) {
	switch cfg.Engine {
	case "", "none":
		return nil, nil
	case "noop":
		return NoopEngine{}, nil
	case "http":
		return NewHTTPEngine(HTTPConfig{
			EndpointURL: cfg.EndpointURL,
			APIKey:      cfg.APIKey,
			Timeout:     cfg.Timeout,
			Threshold:   cfg.Threshold,
		}, log), nil
	case "openai":
		return NewOpenAIEngine(OpenAIConfig{
			APIKey:    cfg.OpenAIKey,
			Model:     cfg.OpenAIModel,
			Timeout:   cfg.Timeout,
			Threshold: cfg.Threshold,
		}, log), nil
	case "gemini":
		return NewGeminiEngine(GeminiConfig{
			APIKey:    cfg.GeminiKey,
			Model:     cfg.GeminiModel,
			Timeout:   cfg.Timeout,
			Threshold: cfg.Threshold,
		}, log), nil
	default:
		return nil, fmt.Errorf("unsupported detection engine: %s", cfg.Engine)
	}
}

// applyThreshold normalizes the scores and clears the emergency flag when
// every score is below the threshold. A result without scores is trusted
// as is.
func applyThreshold(r camera.DetectionResult, threshold float64) camera.DetectionResult {
	r = r.Normalized()
	if r.ConfidenceScores == nil {
		r.ConfidenceScores = map[string]float64{}
	}
	if !r.EmergencyDetected || threshold <= 0 || len(r.ConfidenceScores) == 0 {
		return r
	}
	for _, score := range r.ConfidenceScores {
		if score >= threshold {
			return r
		}
	}
	r.EmergencyDetected = false
	if r.Extra == nil {
		r.Extra = map[string]any{}
	}
	r.Extra["below_threshold"] = threshold
	return r
}
