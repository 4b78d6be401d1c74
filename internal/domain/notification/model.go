package notification

import (
	"context"
	"time"

	"github.com/pratik-mahalle/watchpost/internal/domain/alert"
)

// Channel represents a notification channel
type Channel string

const (
	ChannelEmail   Channel = "email"
	ChannelSMS     Channel = "sms"
	ChannelWebhook Channel = "webhook"
	ChannelPush    Channel = "push"
)

// ChannelAll selects every channel in SendTestNotification
const ChannelAll = "all"

// Channels lists every channel in dispatch order
var Channels = []Channel{ChannelEmail, ChannelSMS, ChannelWebhook, ChannelPush}

// ParseChannel validates a channel name
func ParseChannel(s string) (Channel, bool) {
	for _, c := range Channels {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Record is the outcome of one channel delivery attempt. It is not persisted.
type Record struct {
	Channel   Channel       `json:"channel"`
	Delivered bool          `json:"delivered"`
	Err       error         `json:"-"`
	Duration  time.Duration `json:"duration"`
}

// Payload is what a transport delivers
type Payload struct {
	Alert     *alert.Alert
	Timestamp time.Time
	Test      bool
}

// Location returns the alert location or "Unknown"
func (p *Payload) Location() string {
	if p.Alert.Location == nil || *p.Alert.Location == "" {
		return "Unknown"
	}
	return *p.Alert.Location
}

// Transport delivers a payload over one channel. Delivered is false
// without an error when the channel has nothing to deliver to.
type Transport interface {
	Channel() Channel
	Send(ctx context.Context, p *Payload) (bool, error)
}
