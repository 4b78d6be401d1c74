package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/pratik-mahalle/watchpost/internal/domain/notification"
	"github.com/pratik-mahalle/watchpost/internal/pkg/logger"
)

// PushConfig configures the push transport. Without a gateway the
// transport only logs the notification.
type PushConfig struct {
	GatewayURL string
	APIKey     string
	Tokens     []string
	Timeout    time.Duration
}

type pushRequest struct {
	Tokens   []string          `json:"tokens"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Priority string            `json:"priority"`
	Data     map[string]string `json:"data"`
}

// PushTransport sends mobile push notifications through a gateway
type PushTransport struct {
	cfg    PushConfig
	client *resty.Client
	logger *logger.Logger
}

// NewPushTransport creates the push transport
func NewPushTransport(cfg PushConfig, log *logger.Logger) *PushTransport {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	return &PushTransport{
		cfg:    cfg,
		client: client,
		logger: log.Component("notify.push"),
	}
}

// Channel implements notification.Transport
func (t *PushTransport) Channel() notification.Channel {
	return notification.ChannelPush
}

// Send delivers the push notification
func (t *PushTransport) Send(ctx context.Context, p *notification.Payload) (bool, error) {
	if t.cfg.GatewayURL == "" || len(t.cfg.Tokens) == 0 {
		t.logger.WithFields(map[string]interface{}{
			"alert_id": p.Alert.ID,
			"severity": p.Alert.Severity,
		}).Infof("Push notification: %s", p.Alert.Title)
		return true, nil
	}

	priority := "normal"
	if p.Alert.Severity == "high" || p.Alert.Severity == "critical" {
		priority = "high"
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(pushRequest{
			Tokens:   t.cfg.Tokens,
			Title:    Subject(p),
			Body:     ShortMessage(p),
			Priority: priority,
			Data: map[string]string{
				"alert_id":   fmt.Sprintf("%d", p.Alert.ID),
				"alert_type": p.Alert.Type,
				"severity":   strings.ToLower(string(p.Alert.Severity)),
			},
		}).
		Post(t.cfg.GatewayURL)
	if err != nil {
		return false, fmt.Errorf("failed to reach push gateway: %w", err)
	}
	if resp.IsError() {
		return false, fmt.Errorf("push gateway returned status %d: %s", resp.StatusCode(), resp.String())
	}

	t.logger.WithFields(map[string]interface{}{
		"alert_id": p.Alert.ID,
		"devices":  len(t.cfg.Tokens),
	}).Info("Push notification sent")
	return true, nil
}
