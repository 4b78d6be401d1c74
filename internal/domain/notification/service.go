package notification

import (
	"context"

	"github.com/pratik-mahalle/watchpost/internal/domain/alert"
)

// Dispatcher fans an alert out to every configured channel
type Dispatcher interface {
	// FanOut delivers a to every channel concurrently. onResult, when set,
	// is called once per channel as it completes, in any order.
	FanOut(ctx context.Context, a *alert.Alert, onResult func(Record)) []Record

	// SendTestNotification delivers a synthetic low severity alert over
	// one channel, or all of them with ChannelAll
	SendTestNotification(ctx context.Context, channel string) (map[string]bool, error)
}
