package notify

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/pratik-mahalle/watchpost/internal/domain/notification"
	"github.com/pratik-mahalle/watchpost/internal/pkg/logger"
)

// ErrCircuitOpen is returned while a channel's breaker is open
var ErrCircuitOpen = errors.New("channel circuit open")

// BreakerTransport stops calling a transport after repeated failures and
// tries it again once the open timeout elapses
type BreakerTransport struct {
	next notification.Transport
	cb   *gobreaker.CircuitBreaker
}

// WithBreaker wraps next in a circuit breaker that opens after
// maxFailures consecutive failed sends
func WithBreaker(next notification.Transport, maxFailures uint32, openFor time.Duration, log *logger.Logger) *BreakerTransport {
	l := log.Component("notify.breaker")
	settings := gobreaker.Settings{
		Name:        string(next.Channel()),
		MaxRequests: 1,
		Timeout:     openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.WithFields(map[string]interface{}{
				"channel": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Notification circuit changed state")
		},
	}
	return &BreakerTransport{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

// Channel implements notification.Transport
func (b *BreakerTransport) Channel() notification.Channel {
	return b.next.Channel()
}

// Send forwards to the wrapped transport unless the breaker is open. A
// partial delivery counts as a success for the breaker.
func (b *BreakerTransport) Send(ctx context.Context, p *notification.Payload) (bool, error) {
	var sendErr error
	out, err := b.cb.Execute(func() (interface{}, error) {
		delivered, err := b.next.Send(ctx, p)
		sendErr = err
		if delivered {
			return true, nil
		}
		return false, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false, ErrCircuitOpen
	}
	delivered, _ := out.(bool)
	return delivered, sendErr
}

// State reports the breaker state
func (b *BreakerTransport) State() gobreaker.State {
	return b.cb.State()
}
