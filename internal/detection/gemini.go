package detection

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/pratik-mahalle/watchpost/internal/domain/camera"
	"github.com/pratik-mahalle/watchpost/internal/pkg/logger"
	"github.com/pratik-mahalle/watchpost/internal/vision"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// GeminiConfig configures the Gemini engine
type GeminiConfig struct {
	APIKey    string
	Model     string
	BaseURL   string
	Timeout   time.Duration
	Threshold float64
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiRequest struct {
	Contents []struct {
		Parts []geminiPart `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		ResponseMimeType string `json:"responseMimeType"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		TotalTokenCount int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// GeminiEngine classifies frames with a Gemini multimodal model
type GeminiEngine struct {
	cfg    GeminiConfig
	client *resty.Client
	logger *logger.Logger
}

// NewGeminiEngine creates the Gemini detection engine
func NewGeminiEngine(cfg GeminiConfig, log *logger.Logger) *GeminiEngine {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = geminiBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Goog-Api-Key", cfg.APIKey)
	return &GeminiEngine{cfg: cfg, client: client, logger: log.Component("detection.gemini")}
}

// Analyze implements camera.DetectionEngine
func (e *GeminiEngine) Analyze(ctx context.Context, f camera.Frame) (camera.DetectionResult, error) {
	jpg, err := vision.EncodeJPEG(f.Image, 80)
	if err != nil {
		return camera.DetectionResult{}, fmt.Errorf("failed to encode frame: %w", err)
	}

	var req geminiRequest
	req.Contents = make([]struct {
		Parts []geminiPart `json:"parts"`
	}, 1)
	req.Contents[0].Parts = []geminiPart{
		{Text: emergencyPrompt},
		{InlineData: &geminiInlineData{MimeType: "image/jpeg", Data: base64.StdEncoding.EncodeToString(jpg)}},
	}
	req.GenerationConfig.ResponseMimeType = "application/json"

	var out geminiResponse
	resp, err := e.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/" + e.cfg.Model + ":generateContent")
	if err != nil {
		return camera.DetectionResult{}, fmt.Errorf("gemini request failed: %w", err)
	}
	if resp.IsError() {
		return camera.DetectionResult{}, fmt.Errorf("gemini returned status %d: %s", resp.StatusCode(), resp.String())
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return camera.DetectionResult{}, fmt.Errorf("gemini returned no content")
	}

	result, err := parseReply(out.Candidates[0].Content.Parts[0].Text)
	if err != nil {
		return camera.DetectionResult{}, err
	}
	result.Extra = map[string]any{"model": e.cfg.Model}

	e.logger.WithFields(map[string]interface{}{
		"camera_id": f.CameraID,
		"seq":       f.Seq,
		"emergency": result.EmergencyDetected,
		"tokens":    out.UsageMetadata.TotalTokenCount,
	}).Debug("Frame analysed")

	return applyThreshold(result, e.cfg.Threshold), nil
}
