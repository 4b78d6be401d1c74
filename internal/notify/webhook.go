package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pratik-mahalle/watchpost/internal/domain/alert"
	"github.com/pratik-mahalle/watchpost/internal/domain/notification"
	"github.com/pratik-mahalle/watchpost/internal/pkg/logger"
)

const (
	webhookEvent     = "security_alert"
	webhookSource    = "smart_surveillance_system"
	webhookUserAgent = "SmartSurveillanceSystem/1.0"
)

// WebhookConfig configures the webhook transport
type WebhookConfig struct {
	URL     string
	Secret  string
	Timeout time.Duration
}

type webhookPayload struct {
	Event     string       `json:"event"`
	Alert     *alert.Alert `json:"alert"`
	Timestamp string       `json:"timestamp"`
	Source    string       `json:"source"`
	Test      bool         `json:"test,omitempty"`
}

// WebhookTransport posts the alert as JSON to a single endpoint
type WebhookTransport struct {
	cfg        WebhookConfig
	httpClient *http.Client
	logger     *logger.Logger
}

// NewWebhookTransport creates the webhook transport
func NewWebhookTransport(cfg WebhookConfig, log *logger.Logger) *WebhookTransport {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &WebhookTransport{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     log.Component("notify.webhook"),
	}
}

// Channel implements notification.Transport
func (t *WebhookTransport) Channel() notification.Channel {
	return notification.ChannelWebhook
}

// Send delivers the webhook. Only a 200 response counts as delivered.
func (t *WebhookTransport) Send(ctx context.Context, p *notification.Payload) (bool, error) {
	if t.cfg.URL == "" {
		return false, nil
	}

	payloadJSON, err := json.Marshal(webhookPayload{
		Event:     webhookEvent,
		Alert:     p.Alert,
		Timestamp: p.Timestamp.UTC().Format(time.RFC3339),
		Source:    webhookSource,
		Test:      p.Test,
	})
	if err != nil {
		return false, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.URL, bytes.NewReader(payloadJSON))
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", webhookUserAgent)
	req.Header.Set("X-Webhook-Event", webhookEvent)
	req.Header.Set("X-Webhook-Delivery", uuid.New().String())
	req.Header.Set("X-Webhook-Timestamp", fmt.Sprintf("%d", p.Timestamp.Unix()))

	if t.cfg.Secret != "" {
		req.Header.Set("X-Webhook-Signature", SignPayload(payloadJSON, t.cfg.Secret))
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to deliver webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return false, fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(body))
	}

	t.logger.WithFields(map[string]interface{}{
		"alert_id": p.Alert.ID,
		"status":   resp.StatusCode,
	}).Info("Webhook delivered")

	return true, nil
}

// SignPayload signs the payload with HMAC-SHA256
func SignPayload(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}
