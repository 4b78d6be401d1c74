package services

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/pratik-mahalle/watchpost/internal/domain/alert"
	"github.com/pratik-mahalle/watchpost/internal/domain/notification"
	"github.com/pratik-mahalle/watchpost/internal/pkg/errors"
	"github.com/pratik-mahalle/watchpost/internal/pkg/logger"
	"github.com/pratik-mahalle/watchpost/internal/pkg/metrics"
)

// NotificationService implements notification.Dispatcher
type NotificationService struct {
	transports []notification.Transport
	timeout    time.Duration
	logger     *logger.Logger
	now        func() time.Time
}

// NewNotificationService creates a dispatcher over the given transports.
// Each delivery is bounded by timeout.
func NewNotificationService(transports []notification.Transport, timeout time.Duration, log *logger.Logger) *NotificationService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &NotificationService{
		transports: transports,
		timeout:    timeout,
		logger:     log.Component("notifications"),
		now:        time.Now,
	}
}

// Channels returns the configured channels in dispatch order
func (s *NotificationService) Channels() []notification.Channel {
	out := make([]notification.Channel, 0, len(s.transports))
	for _, t := range s.transports {
		out = append(out, t.Channel())
	}
	return out
}

// FanOut delivers a over every configured channel concurrently
func (s *NotificationService) FanOut(ctx context.Context, a *alert.Alert, onResult func(notification.Record)) []notification.Record {
	p := &notification.Payload{Alert: a.Clone(), Timestamp: s.now()}
	return s.dispatch(ctx, s.transports, p, onResult)
}

func (s *NotificationService) dispatch(ctx context.Context, transports []notification.Transport, p *notification.Payload, onResult func(notification.Record)) []notification.Record {
	records := make([]notification.Record, len(transports))

	var wg sync.WaitGroup
	for i, t := range transports {
		wg.Add(1)
		go func(i int, t notification.Transport) {
			defer wg.Done()
			rec := s.deliver(ctx, t, p)
			records[i] = rec
			if onResult != nil {
				onResult(rec)
			}
		}(i, t)
	}
	wg.Wait()

	return records
}

// deliver runs one transport under the delivery timeout. Errors, panics and
// timeouts all end as Delivered=false.
func (s *NotificationService) deliver(ctx context.Context, t notification.Transport, p *notification.Payload) notification.Record {
	ch := t.Channel()
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type outcome struct {
		delivered bool
		err       error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.WithFields(map[string]interface{}{
					"channel": ch,
					"panic":   fmt.Sprint(r),
					"stack":   string(debug.Stack()),
				}).Error("Notification transport panicked")
				done <- outcome{err: fmt.Errorf("%w: %s transport panicked: %v", errors.ErrDeliveryFailed, ch, r)}
			}
		}()
		delivered, err := t.Send(ctx, p)
		done <- outcome{delivered: delivered, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out = outcome{err: fmt.Errorf("%w: %s: %v", errors.ErrDeliveryFailed, ch, ctx.Err())}
	}

	rec := notification.Record{
		Channel:   ch,
		Delivered: out.delivered,
		Err:       out.err,
		Duration:  time.Since(start),
	}
	metrics.RecordNotification(string(ch), rec.Delivered, rec.Duration)

	log := s.logger.WithFields(map[string]interface{}{
		"channel":  ch,
		"alert_id": p.Alert.ID,
	})
	switch {
	case rec.Err != nil && !rec.Delivered:
		log.WarnWithErr(rec.Err, "Notification delivery failed")
	case rec.Err != nil:
		log.WarnWithErr(rec.Err, "Notification partially delivered")
	case !rec.Delivered:
		log.Debug("Notification channel had nothing to deliver")
	}
	return rec
}

// SendTestNotification delivers a synthetic alert over one channel or all
func (s *NotificationService) SendTestNotification(ctx context.Context, channel string) (map[string]bool, error) {
	var wanted []notification.Channel
	if channel == notification.ChannelAll {
		wanted = notification.Channels
	} else {
		ch, ok := notification.ParseChannel(channel)
		if !ok {
			return nil, errors.Validationf("unknown notification channel %q", channel)
		}
		wanted = []notification.Channel{ch}
	}

	results := make(map[string]bool, len(wanted))
	var transports []notification.Transport
	for _, ch := range wanted {
		results[string(ch)] = false
		for _, t := range s.transports {
			if t.Channel() == ch {
				transports = append(transports, t)
			}
		}
	}

	now := s.now()
	p := &notification.Payload{Alert: testAlert(now), Timestamp: now, Test: true}
	for _, rec := range s.dispatch(ctx, transports, p, nil) {
		results[string(rec.Channel)] = rec.Delivered
	}

	s.logger.WithFields(map[string]interface{}{
		"channel": channel,
		"results": results,
	}).Info("Test notification sent")

	return results, nil
}

func testAlert(now time.Time) *alert.Alert {
	loc := "Test Location"
	confidence := 1.0
	return &alert.Alert{
		ID:              0,
		Type:            alert.TypeTest,
		Severity:        alert.SeverityLow,
		Status:          alert.StatusActive,
		Title:           "Test Alert - System Check",
		Description:     "This is a test notification to verify the alert system is working correctly.",
		Location:        &loc,
		ConfidenceScore: &confidence,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
