package detection

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/pratik-mahalle/watchpost/internal/domain/camera"
	"github.com/pratik-mahalle/watchpost/internal/pkg/logger"
	"github.com/pratik-mahalle/watchpost/internal/vision"
)

// HTTPConfig configures a remote inference endpoint
type HTTPConfig struct {
	EndpointURL string
	APIKey      string
	Timeout     time.Duration
	Threshold   float64
}

// HTTPEngine posts each frame as a JPEG to an inference service
type HTTPEngine struct {
	cfg    HTTPConfig
	client *resty.Client
	logger *logger.Logger
}

// NewHTTPEngine creates the HTTP detection engine
func NewHTTPEngine(cfg HTTPConfig, log *logger.Logger) *HTTPEngine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	return &HTTPEngine{
		cfg:    cfg,
		client: client,
		logger: log.Component("detection.http"),
	}
}

// Analyze implements camera.DetectionEngine
func (e *HTTPEngine) Analyze(ctx context.Context, f camera.Frame) (camera.DetectionResult, error) {
	body, err := vision.EncodeJPEG(f.Image, 85)
	if err != nil {
		return camera.DetectionResult{}, fmt.Errorf("failed to encode frame: %w", err)
	}

	var result camera.DetectionResult
	resp, err := e.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "image/jpeg").
		SetHeader("X-Camera-ID", strconv.FormatInt(f.CameraID, 10)).
		SetHeader("X-Frame-Seq", strconv.FormatUint(f.Seq, 10)).
		SetBody(body).
		SetResult(&result).
		Post(e.cfg.EndpointURL)
	if err != nil {
		return camera.DetectionResult{}, fmt.Errorf("detection request failed: %w", err)
	}
	if resp.IsError() {
		return camera.DetectionResult{}, fmt.Errorf("detection endpoint returned status %d", resp.StatusCode())
	}

	e.logger.WithFields(map[string]interface{}{
		"camera_id": f.CameraID,
		"seq":       f.Seq,
		"emergency": result.EmergencyDetected,
		"duration":  resp.Time().String(),
	}).Debug("Frame analysed")

	return applyThreshold(result, e.cfg.Threshold), nil
}
