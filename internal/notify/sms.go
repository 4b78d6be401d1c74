package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-multierror"

	"github.com/pratik-mahalle/watchpost/internal/domain/notification"
	"github.com/pratik-mahalle/watchpost/internal/pkg/logger"
)

// SMSConfig configures the SMS gateway transport
type SMSConfig struct {
	APIURL     string
	APIKey     string
	Sender     string
	Recipients []string
	Timeout    time.Duration
}

type smsRequest struct {
	To   string `json:"to"`
	From string `json:"from"`
	Text string `json:"text"`
}

// SMSTransport posts one message per recipient to an HTTP SMS gateway
type SMSTransport struct {
	cfg    SMSConfig
	client *resty.Client
	logger *logger.Logger
}

// NewSMSTransport creates the SMS transport
func NewSMSTransport(cfg SMSConfig, log *logger.Logger) *SMSTransport {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetAuthToken(cfg.APIKey)

	return &SMSTransport{
		cfg:    cfg,
		client: client,
		logger: log.Component("notify.sms"),
	}
}

// Channel implements notification.Transport
func (t *SMSTransport) Channel() notification.Channel {
	return notification.ChannelSMS
}

// Send texts every recipient and keeps going past individual failures
func (t *SMSTransport) Send(ctx context.Context, p *notification.Payload) (bool, error) {
	if len(t.cfg.Recipients) == 0 {
		return false, nil
	}
	if t.cfg.APIURL == "" || t.cfg.APIKey == "" {
		t.logger.Warn("SMS gateway not configured")
		return false, nil
	}

	text := ShortMessage(p)
	var result error
	delivered := 0
	for _, to := range t.cfg.Recipients {
		resp, err := t.client.R().
			SetContext(ctx).
			SetBody(smsRequest{To: to, From: t.cfg.Sender, Text: text}).
			Post(t.cfg.APIURL)
		if err == nil && resp.StatusCode() != 200 {
			err = fmt.Errorf("sms gateway returned status %d: %s", resp.StatusCode(), resp.String())
		}
		if err != nil {
			t.logger.WithFields(map[string]interface{}{
				"recipient": to,
				"alert_id":  p.Alert.ID,
			}).WarnWithErr(err, "SMS delivery to recipient failed")
			result = multierror.Append(result, fmt.Errorf("%s: %w", to, err))
			continue
		}
		delivered++
	}

	if delivered > 0 {
		t.logger.WithFields(map[string]interface{}{
			"alert_id":   p.Alert.ID,
			"recipients": delivered,
		}).Info("SMS alerts sent")
	}
	return delivered > 0, result
}
