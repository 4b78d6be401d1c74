package detection

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pratik-mahalle/watchpost/internal/domain/camera"
	"github.com/pratik-mahalle/watchpost/internal/pkg/logger"
	"github.com/pratik-mahalle/watchpost/internal/vision"
)

const emergencyPrompt = `You are monitoring a security camera. Look at the frame and decide whether it shows an emergency: violence, a weapon, fire, smoke, a person who has fallen or is in distress.
Reply with a single JSON object and nothing else:
{"emergency_detected": bool, "confidence_scores": {"violence": 0-1, "weapon": 0-1, "fire": 0-1, "fall": 0-1}, "description": "one sentence"}`

// OpenAIConfig configures the vision model engine
type OpenAIConfig struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint, mainly for compatible gateways
	BaseURL   string
	Timeout   time.Duration
	Threshold float64
}

// OpenAIEngine asks a vision chat model to classify each frame
type OpenAIEngine struct {
	cfg    OpenAIConfig
	client *openai.Client
	logger *logger.Logger
}

// NewOpenAIEngine creates the OpenAI detection engine
func NewOpenAIEngine(cfg OpenAIConfig, log *logger.Logger) *OpenAIEngine {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenAIEngine{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientCfg),
		logger: log.Component("detection.openai"),
	}
}

// Analyze implements camera.DetectionEngine
func (e *OpenAIEngine) Analyze(ctx context.Context, f camera.Frame) (camera.DetectionResult, error) {
	jpg, err := vision.EncodeJPEG(f.Image, 80)
	if err != nil {
		return camera.DetectionResult{}, fmt.Errorf("failed to encode frame: %w", err)
	}
	dataURI := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpg)

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.cfg.Model,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: emergencyPrompt},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
					URL:    dataURI,
					Detail: openai.ImageURLDetailLow,
				}},
			},
		}},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		MaxTokens:      300,
	})
	if err != nil {
		return camera.DetectionResult{}, fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return camera.DetectionResult{}, fmt.Errorf("openai returned no choices")
	}

	result, err := parseReply(resp.Choices[0].Message.Content)
	if err != nil {
		return camera.DetectionResult{}, err
	}
	result.Extra = map[string]any{"model": resp.Model}

	e.logger.WithFields(map[string]interface{}{
		"camera_id": f.CameraID,
		"seq":       f.Seq,
		"emergency": result.EmergencyDetected,
		"tokens":    resp.Usage.TotalTokens,
	}).Debug("Frame analysed")

	return applyThreshold(result, e.cfg.Threshold), nil
}

// parseReply decodes the model reply, tolerating a markdown code fence
func parseReply(content string) (camera.DetectionResult, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}

	var result camera.DetectionResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return camera.DetectionResult{}, fmt.Errorf("failed to decode model reply: %w", err)
	}
	return result, nil
}
