package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pratik-mahalle/watchpost/internal/config"
	"github.com/pratik-mahalle/watchpost/internal/domain/alert"
	"github.com/pratik-mahalle/watchpost/internal/domain/notification"
	"github.com/pratik-mahalle/watchpost/internal/pkg/errors"
	"github.com/pratik-mahalle/watchpost/internal/pkg/logger"
	"github.com/pratik-mahalle/watchpost/internal/pkg/metrics"
	"github.com/pratik-mahalle/watchpost/internal/pkg/validator"
)

// AlertService implements alert.Service
type AlertService struct {
	store      alert.Store
	cooldowns  alert.CooldownStore
	dispatcher notification.Dispatcher
	events     alert.Publisher
	cfg        config.AlertConfig
	validator  *validator.Validator
	logger     *logger.Logger
	now        func() time.Time

	// fan-outs outlive the request that created the alert
	fanOutCtx    context.Context
	cancelFanOut context.CancelFunc
	inflight     sync.WaitGroup
}

// AlertOption customises an AlertService
type AlertOption func(*AlertService)

// WithClock replaces time.Now
func WithClock(now func() time.Time) AlertOption {
	return func(s *AlertService) {
		s.now = now
	}
}

// WithPublisher streams alert changes to p
func WithPublisher(p alert.Publisher) AlertOption {
	return func(s *AlertService) {
		s.events = p
	}
}

// NewAlertService creates a new alert service
func NewAlertService(
	store alert.Store,
	cooldowns alert.CooldownStore,
	dispatcher notification.Dispatcher,
	cfg config.AlertConfig,
	log *logger.Logger,
	opts ...AlertOption,
) *AlertService {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 50
	}
	if cfg.StatsWindowDays <= 0 {
		cfg.StatsWindowDays = 30
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &AlertService{
		store:        store,
		cooldowns:    cooldowns,
		dispatcher:   dispatcher,
		cfg:          cfg,
		validator:    validator.New(),
		logger:       log.Component("alerts"),
		now:          time.Now,
		fanOutCtx:    ctx,
		cancelFanOut: cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateAlert validates in, reserves its cooldown key and stores the alert.
// Notification delivery continues in the background.
func (s *AlertService) CreateAlert(ctx context.Context, in alert.Input) (*alert.Alert, error) {
	if errs := s.validator.Validate(in); errs != nil {
		return nil, errors.Validationf("%s", errs.Error())
	}
	confidence, err := alert.ConfidenceFrom(in.AIAnalysis)
	if err != nil {
		return nil, errors.Validationf("%s", err.Error())
	}

	key := alert.KeyFor(in).String()
	now := s.now()

	reserved, err := s.cooldowns.Reserve(ctx, key, now, s.cfg.Cooldown)
	if err != nil {
		return nil, fmt.Errorf("failed to check cooldown: %w", err)
	}
	if !reserved {
		metrics.RecordAlertSuppressed(in.Type)
		return nil, fmt.Errorf("%w: %s", errors.ErrSuppressed, key)
	}

	created, err := s.store.Insert(ctx, &alert.Alert{
		Type:            in.Type,
		Severity:        in.Severity,
		Status:          alert.StatusActive,
		Title:           in.Title,
		Description:     in.Description,
		CameraID:        in.CameraID,
		Location:        in.Location,
		Coordinates:     in.Coordinates,
		ConfidenceScore: confidence,
		DetectedObjects: in.DetectedObjects,
		BiometricData:   in.BiometricData,
		AIAnalysis:      in.AIAnalysis,
		ImagePath:       in.ImagePath,
		VideoPath:       in.VideoPath,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		if relErr := s.cooldowns.Release(context.WithoutCancel(ctx), key, now); relErr != nil {
			s.logger.WarnWithErr(relErr, "Failed to release cooldown after store failure")
		}
		s.logger.ErrorWithErr(err, "Failed to create alert")
		return nil, err
	}

	metrics.RecordAlertCreated(created.Type, string(created.Severity))
	s.logger.WithFields(map[string]interface{}{
		"alert_id":  created.ID,
		"type":      created.Type,
		"severity":  created.Severity,
		"camera_id": created.CameraID,
	}).Info("Alert created")

	s.publish(alert.EventCreated, created)
	if s.dispatcher != nil {
		s.inflight.Add(1)
		go s.fanOut(created.Clone())
	}

	return created, nil
}

func (s *AlertService) publish(t alert.EventType, a *alert.Alert) {
	if s.events == nil {
		return
	}
	s.events.Publish(alert.Event{Type: t, Alert: a.Clone(), At: s.now()})
}

func (s *AlertService) fanOut(a *alert.Alert) {
	defer s.inflight.Done()
	s.dispatcher.FanOut(s.fanOutCtx, a, func(rec notification.Record) {
		if rec.Delivered {
			s.markDelivered(a.ID, rec.Channel)
		}
	})
}

// markDelivered sets one channel flag. The alert may have been deleted
// while delivery was running.
func (s *AlertService) markDelivered(id int64, ch notification.Channel) {
	_, err := s.store.Mutate(s.fanOutCtx, id, func(a *alert.Alert) (bool, error) {
		a.SetDelivered(string(ch), true)
		return true, nil
	})
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		s.logger.WithFields(map[string]interface{}{
			"alert_id": id,
			"channel":  ch,
		}).WarnWithErr(err, "Failed to record delivery")
	}
}

// GetAlert retrieves an alert by ID
func (s *AlertService) GetAlert(ctx context.Context, id int64) (*alert.Alert, error) {
	return s.store.Get(ctx, id)
}

// UpdateAlert edits the non-lifecycle fields of an alert
func (s *AlertService) UpdateAlert(ctx context.Context, id int64, u alert.Update) (*alert.Alert, error) {
	updated, err := s.store.Mutate(ctx, id, func(a *alert.Alert) (bool, error) {
		if err := u.Apply(a, s.now()); err != nil {
			return false, errors.Validationf("%s", err.Error())
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"alert_id": id,
	}).Info("Alert updated")
	s.publish(alert.EventUpdated, updated)

	return updated, nil
}

// DeleteAlert removes an alert
func (s *AlertService) DeleteAlert(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.WithFields(map[string]interface{}{
		"alert_id": id,
	}).Info("Alert deleted")
	s.publish(alert.EventDeleted, &alert.Alert{ID: id})
	return nil
}

// Acknowledge marks an active alert as acknowledged
func (s *AlertService) Acknowledge(ctx context.Context, id, userID int64) (bool, error) {
	var changed bool
	acked, err := s.store.Mutate(ctx, id, func(a *alert.Alert) (bool, error) {
		changed = a.Acknowledge(userID, s.now())
		return changed, nil
	})
	if err != nil {
		return false, err
	}

	if changed {
		metrics.RecordAlertTransition(string(alert.StatusAcknowledged))
		s.logger.WithFields(map[string]interface{}{
			"alert_id": id,
			"user_id":  userID,
		}).Info("Alert acknowledged")
		s.publish(alert.EventAcknowledged, acked)
	}
	return true, nil
}

// Resolve marks an alert as resolved
func (s *AlertService) Resolve(ctx context.Context, id, userID int64) (bool, error) {
	var changed bool
	var responseTime float64
	resolved, err := s.store.Mutate(ctx, id, func(a *alert.Alert) (bool, error) {
		changed = a.Resolve(userID, s.now())
		if changed {
			responseTime = *a.ResponseTime
		}
		return changed, nil
	})
	if err != nil {
		return false, err
	}

	if changed {
		metrics.RecordAlertTransition(string(alert.StatusResolved))
		metrics.RecordResponseTime(responseTime)
		s.logger.WithFields(map[string]interface{}{
			"alert_id":      id,
			"user_id":       userID,
			"response_time": responseTime,
		}).Info("Alert resolved")
		s.publish(alert.EventResolved, resolved)
	}
	return true, nil
}

// GetActiveAlerts lists active alerts newest first
func (s *AlertService) GetActiveAlerts(ctx context.Context, filter alert.ActiveFilter) ([]*alert.Alert, error) {
	if filter.Severity != nil && !filter.Severity.Valid() {
		return nil, errors.Validationf("unknown severity %q", *filter.Severity)
	}
	if filter.Limit <= 0 {
		filter.Limit = s.cfg.DefaultLimit
	}
	return s.store.ListActive(ctx, filter)
}

// GetStatistics summarises alerts created in [start, end]. A missing end is
// now and a missing start is the configured window before end.
func (s *AlertService) GetStatistics(ctx context.Context, start, end *time.Time) (*alert.Statistics, error) {
	to := s.now()
	if end != nil {
		to = *end
	}
	from := to.AddDate(0, 0, -s.cfg.StatsWindowDays)
	if start != nil {
		from = *start
	}
	if from.After(to) {
		return nil, errors.Validationf("start %s is after end %s", from.Format(time.RFC3339), to.Format(time.RFC3339))
	}

	alerts, err := s.store.ListCreatedBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return alert.Summarize(alerts, from, to), nil
}

// CleanupOldAlerts deletes resolved alerts older than retentionDays. A
// non-positive value uses the configured retention.
func (s *AlertService) CleanupOldAlerts(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		retentionDays = s.cfg.RetentionDays
	}
	if retentionDays <= 0 {
		return 0, errors.Validationf("retention days must be positive")
	}

	cutoff := s.now().AddDate(0, 0, -retentionDays)
	n, err := s.store.DeleteResolvedBefore(ctx, cutoff)
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to clean up alerts")
		return 0, err
	}

	metrics.RecordAlertsPruned(n)
	s.logger.WithFields(map[string]interface{}{
		"deleted":        n,
		"retention_days": retentionDays,
	}).Info("Old alerts cleaned up")

	return n, nil
}

// SendTestNotification exercises the notification channels
func (s *AlertService) SendTestNotification(ctx context.Context, channel string) (map[string]bool, error) {
	if s.dispatcher == nil {
		return nil, errors.ServiceUnavailable("notifications are not configured")
	}
	return s.dispatcher.SendTestNotification(ctx, channel)
}

// Close waits for in-flight deliveries. When ctx ends first the remaining
// deliveries are cancelled.
func (s *AlertService) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancelFanOut()
		return nil
	case <-ctx.Done():
		s.cancelFanOut()
		<-done
		return ctx.Err()
	}
}
