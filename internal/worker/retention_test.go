package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pratik-mahalle/watchpost/internal/testutil"
)

type fakeCleaner struct {
	calls atomic.Int32
	days  atomic.Int32
	err   error
}

func (f *fakeCleaner) CleanupOldAlerts(ctx context.Context, retentionDays int) (int, error) {
	f.calls.Add(1)
	f.days.Store(int32(retentionDays))
	if f.err != nil {
		return 0, f.err
	}
	return 3, nil
}

func TestRetentionWorker_RunOnce(t *testing.T) {
	cleaner := &fakeCleaner{}
	w := NewRetentionWorker(cleaner, "@every 1h", 14, testutil.NewTestLogger())

	n, err := w.RunOnce(context.Background())
	if err != nil || n != 3 {
		t.Fatalf("RunOnce() = %d, %v", n, err)
	}
	if cleaner.days.Load() != 14 {
		t.Errorf("retention days = %d, want 14", cleaner.days.Load())
	}

	cleaner.err = errors.New("db down")
	if _, err := w.RunOnce(context.Background()); err == nil {
		t.Error("RunOnce() swallowed the cleanup error")
	}
}

func TestRetentionWorker_Schedule(t *testing.T) {
	cleaner := &fakeCleaner{}
	w := NewRetentionWorker(cleaner, "@every 1s", 30, testutil.NewTestLogger())

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := w.Start(context.Background()); err == nil {
		t.Error("second Start() succeeded")
	}

	deadline := time.Now().Add(3 * time.Second)
	for cleaner.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	w.Stop()

	if cleaner.calls.Load() == 0 {
		t.Error("scheduled cleanup never ran")
	}
	w.Stop()
}

func TestRetentionWorker_InvalidSchedule(t *testing.T) {
	w := NewRetentionWorker(&fakeCleaner{}, "every hour", 30, testutil.NewTestLogger())
	if err := w.Start(context.Background()); err == nil {
		t.Error("Start() accepted an invalid schedule")
	}
}
