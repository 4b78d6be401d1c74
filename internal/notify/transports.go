package notify

import (
	"time"

	"github.com/pratik-mahalle/watchpost/internal/config"
	"github.com/pratik-mahalle/watchpost/internal/domain/notification"
	"github.com/pratik-mahalle/watchpost/internal/pkg/logger"
)

const (
	breakerMaxFailures = 5
	breakerOpenFor     = time.Minute
)

// FromConfig builds the transports for every enabled channel, each behind
// its own circuit breaker
func FromConfig(cfg config.NotificationConfig, log *logger.Logger) []notification.Transport {
	var transports []notification.Transport

	if cfg.EmailEnabled {
		transports = append(transports, NewEmailTransport(EmailConfig{
			Host:       cfg.SMTPHost,
			Port:       cfg.SMTPPort,
			Username:   cfg.SMTPUsername,
			Password:   cfg.SMTPPassword,
			From:       cfg.SenderEmail,
			FromName:   cfg.SenderName,
			Recipients: cfg.EmailRecipients,
		}, log))
	}

	if cfg.SMSEnabled {
		transports = append(transports, NewSMSTransport(SMSConfig{
			APIURL:     cfg.SMSAPIURL,
			APIKey:     cfg.SMSAPIKey,
			Sender:     cfg.SMSSender,
			Recipients: cfg.SMSRecipients,
			Timeout:    cfg.Timeout,
		}, log))
	}

	if cfg.WebhookURL != "" {
		transports = append(transports, NewWebhookTransport(WebhookConfig{
			URL:     cfg.WebhookURL,
			Secret:  cfg.WebhookSecret,
			Timeout: cfg.Timeout,
		}, log))
	}

	if cfg.PushEnabled {
		transports = append(transports, NewPushTransport(PushConfig{
			GatewayURL: cfg.PushGatewayURL,
			APIKey:     cfg.PushAPIKey,
			Tokens:     cfg.PushTokens,
			Timeout:    cfg.Timeout,
		}, log))
	}

	for i, t := range transports {
		transports[i] = WithBreaker(t, breakerMaxFailures, breakerOpenFor, log)
	}
	return transports
}
