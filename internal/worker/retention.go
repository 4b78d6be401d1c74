package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/pratik-mahalle/watchpost/internal/pkg/logger"
)

// Cleaner prunes resolved alerts past the retention horizon
type Cleaner interface {
	CleanupOldAlerts(ctx context.Context, retentionDays int) (int, error)
}

// RetentionWorker runs alert cleanup on a cron schedule
type RetentionWorker struct {
	cleaner       Cleaner
	schedule      string
	retentionDays int
	logger        *logger.Logger

	mu        sync.Mutex
	scheduler *cron.Cron
	ctx       context.Context
}

// NewRetentionWorker creates a retention worker. schedule accepts standard
// five-field expressions and descriptors such as "@every 1h".
func NewRetentionWorker(cleaner Cleaner, schedule string, retentionDays int, log *logger.Logger) *RetentionWorker {
	return &RetentionWorker{
		cleaner:       cleaner,
		schedule:      schedule,
		retentionDays: retentionDays,
		logger:        log.Component("worker.retention"),
	}
}

// Start schedules the cleanup job. Runs use ctx until Stop is called.
func (w *RetentionWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.scheduler != nil {
		return fmt.Errorf("retention worker is already running")
	}
	if _, err := cron.ParseStandard(w.schedule); err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", w.schedule, err)
	}

	w.ctx = ctx
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(w.schedule, func() { _, _ = w.RunOnce(w.ctx) }); err != nil {
		return fmt.Errorf("failed to schedule retention job: %w", err)
	}
	scheduler.Start()
	w.scheduler = scheduler

	w.logger.WithFields(map[string]interface{}{
		"schedule":       w.schedule,
		"retention_days": w.retentionDays,
	}).Info("Retention worker started")
	return nil
}

// Stop stops scheduling and waits for a running cleanup to finish
func (w *RetentionWorker) Stop() {
	w.mu.Lock()
	scheduler := w.scheduler
	w.scheduler = nil
	w.mu.Unlock()

	if scheduler == nil {
		return
	}
	<-scheduler.Stop().Done()
	w.logger.Info("Retention worker stopped")
}

// RunOnce performs a single cleanup pass
func (w *RetentionWorker) RunOnce(ctx context.Context) (int, error) {
	n, err := w.cleaner.CleanupOldAlerts(ctx, w.retentionDays)
	if err != nil {
		w.logger.ErrorWithErr(err, "Alert retention cleanup failed")
		return 0, err
	}
	if n > 0 {
		w.logger.WithFields(map[string]interface{}{
			"deleted": n,
		}).Info("Pruned resolved alerts")
	}
	return n, nil
}
