package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pratik-mahalle/watchpost/internal/config"
	"github.com/pratik-mahalle/watchpost/internal/domain/alert"
	"github.com/pratik-mahalle/watchpost/internal/domain/notification"
	apperrors "github.com/pratik-mahalle/watchpost/internal/pkg/errors"
	"github.com/pratik-mahalle/watchpost/internal/repository/memory"
	"github.com/pratik-mahalle/watchpost/internal/testutil"
)

type alertFixture struct {
	svc        *AlertService
	store      *memory.AlertStore
	cooldowns  *memory.CooldownStore
	dispatcher *testutil.MockDispatcher
	clock      *testutil.Clock
}

func newAlertFixture(t *testing.T) *alertFixture {
	t.Helper()
	f := &alertFixture{
		store:      memory.NewAlertStore(),
		cooldowns:  memory.NewCooldownStore(),
		dispatcher: testutil.NewMockDispatcher(map[notification.Channel]bool{notification.ChannelEmail: true, notification.ChannelSMS: false}),
		clock:      testutil.NewClock(time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)),
	}
	f.svc = NewAlertService(f.store, f.cooldowns, f.dispatcher, config.AlertConfig{
		Cooldown:        60 * time.Second,
		StatsWindowDays: 30,
		RetentionDays:   30,
		DefaultLimit:    50,
	}, testutil.NewTestLogger(), WithClock(f.clock.Now))
	t.Cleanup(func() { _ = f.svc.Close(context.Background()) })
	return f
}

func motionInput(cam int64) alert.Input {
	loc := "Lobby"
	return alert.Input{
		Type:     alert.TypeMotion,
		Severity: alert.SeverityMedium,
		Title:    "Motion detected",
		CameraID: &cam,
		Location: &loc,
	}
}

func TestAlertService_CreateAlert(t *testing.T) {
	f := newAlertFixture(t)
	ctx := context.Background()

	in := motionInput(1)
	in.AIAnalysis = map[string]any{"confidence_scores": map[string]any{"fire": 0.4, "smoke": 0.8}}

	a, err := f.svc.CreateAlert(ctx, in)
	if err != nil {
		t.Fatalf("CreateAlert() error = %v", err)
	}
	if a.ID == 0 || a.Status != alert.StatusActive {
		t.Errorf("CreateAlert() = %+v", a)
	}
	if a.ConfidenceScore == nil || *a.ConfidenceScore != 0.8 {
		t.Errorf("ConfidenceScore = %v, want 0.8", a.ConfidenceScore)
	}

	if err := f.svc.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	got, _ := f.svc.GetAlert(ctx, a.ID)
	if !got.EmailSent || got.SMSSent {
		t.Errorf("delivery flags email=%v sms=%v, want true/false", got.EmailSent, got.SMSSent)
	}
}

func TestAlertService_CreateAlertValidation(t *testing.T) {
	f := newAlertFixture(t)

	tests := []struct {
		name string
		in   alert.Input
	}{
		{"missing type", alert.Input{Severity: alert.SeverityLow, Title: "x"}},
		{"unknown severity", alert.Input{Type: "motion", Severity: "urgent", Title: "x"}},
		{"missing title", alert.Input{Type: "motion", Severity: alert.SeverityLow}},
		{"score out of range", alert.Input{Type: "motion", Severity: alert.SeverityLow, Title: "x",
			AIAnalysis: map[string]any{"confidence_scores": map[string]any{"fire": 1.5}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateAlert(context.Background(), tt.in)
			if !errors.Is(err, apperrors.ErrValidation) {
				t.Errorf("CreateAlert() error = %v, want ErrValidation", err)
			}
		})
	}

	if f.store.Len() != 0 {
		t.Errorf("invalid inputs stored %d alerts", f.store.Len())
	}
	if _, stamped := f.cooldowns.LastFired(alert.KeyFor(tests[0].in).String()); stamped {
		t.Error("invalid input stamped a cooldown key")
	}
}

func TestAlertService_CooldownSuppression(t *testing.T) {
	f := newAlertFixture(t)
	ctx := context.Background()

	if _, err := f.svc.CreateAlert(ctx, motionInput(1)); err != nil {
		t.Fatalf("first CreateAlert() error = %v", err)
	}

	f.clock.Advance(30 * time.Second)
	if _, err := f.svc.CreateAlert(ctx, motionInput(1)); !errors.Is(err, apperrors.ErrSuppressed) {
		t.Errorf("CreateAlert() within window error = %v, want ErrSuppressed", err)
	}

	// other camera, other key
	if _, err := f.svc.CreateAlert(ctx, motionInput(2)); err != nil {
		t.Errorf("CreateAlert() for another camera error = %v", err)
	}

	f.clock.Advance(31 * time.Second)
	if _, err := f.svc.CreateAlert(ctx, motionInput(1)); err != nil {
		t.Errorf("CreateAlert() after window error = %v", err)
	}

	if f.store.Len() != 3 {
		t.Errorf("stored %d alerts, want 3", f.store.Len())
	}
}

func TestAlertService_ConcurrentSuppression(t *testing.T) {
	f := newAlertFixture(t)
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	created, suppressed := 0, 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateAlert(ctx, motionInput(7))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, apperrors.ErrSuppressed):
				suppressed++
			}
		}()
	}
	wg.Wait()

	if created != 1 || suppressed != n-1 {
		t.Errorf("created=%d suppressed=%d, want 1 and %d", created, suppressed, n-1)
	}
}

func TestAlertService_StoreFailureReleasesCooldown(t *testing.T) {
	store := &testutil.MockAlertStore{Store: memory.NewAlertStore(), InsertError: errors.New("disk full")}
	cooldowns := memory.NewCooldownStore()
	svc := NewAlertService(store, cooldowns, nil, config.AlertConfig{Cooldown: time.Minute}, testutil.NewTestLogger())

	in := motionInput(3)
	if _, err := svc.CreateAlert(context.Background(), in); err == nil {
		t.Fatal("CreateAlert() error = nil, want store failure")
	}
	if _, stamped := cooldowns.LastFired(alert.KeyFor(in).String()); stamped {
		t.Error("failed insert left a cooldown stamp")
	}

	store.InsertError = nil
	if _, err := svc.CreateAlert(context.Background(), in); err != nil {
		t.Errorf("retry CreateAlert() error = %v", err)
	}
}

func TestAlertService_Lifecycle(t *testing.T) {
	f := newAlertFixture(t)
	ctx := context.Background()

	a, _ := f.svc.CreateAlert(ctx, motionInput(1))

	f.clock.Advance(10 * time.Second)
	ok, err := f.svc.Acknowledge(ctx, a.ID, 5)
	if err != nil || !ok {
		t.Fatalf("Acknowledge() = %v, %v", ok, err)
	}
	acked, _ := f.svc.GetAlert(ctx, a.ID)
	if acked.ResponseTime == nil || *acked.ResponseTime != 10 {
		t.Errorf("provisional response time = %v, want 10", acked.ResponseTime)
	}

	// idempotent, no mutation
	f.clock.Advance(5 * time.Second)
	if ok, err := f.svc.Acknowledge(ctx, a.ID, 6); err != nil || !ok {
		t.Errorf("second Acknowledge() = %v, %v", ok, err)
	}
	again, _ := f.svc.GetAlert(ctx, a.ID)
	if *again.UserID != 5 || !again.AcknowledgedAt.Equal(*acked.AcknowledgedAt) {
		t.Error("second Acknowledge() mutated the alert")
	}

	f.clock.Advance(15 * time.Second)
	if ok, err := f.svc.Resolve(ctx, a.ID, 5); err != nil || !ok {
		t.Fatalf("Resolve() = %v, %v", ok, err)
	}
	resolved, _ := f.svc.GetAlert(ctx, a.ID)
	if resolved.Status != alert.StatusResolved {
		t.Errorf("Status = %s, want resolved", resolved.Status)
	}
	if want := resolved.ResolvedAt.Sub(*resolved.AcknowledgedAt).Seconds(); *resolved.ResponseTime != want {
		t.Errorf("ResponseTime = %v, want %v", *resolved.ResponseTime, want)
	}

	if ok, err := f.svc.Resolve(ctx, a.ID, 5); err != nil || !ok {
		t.Errorf("second Resolve() = %v, %v", ok, err)
	}
	if ok, err := f.svc.Acknowledge(ctx, a.ID, 5); err != nil || !ok {
		t.Errorf("Acknowledge() after resolve = %v, %v", ok, err)
	}
	final, _ := f.svc.GetAlert(ctx, a.ID)
	if final.Status != alert.StatusResolved {
		t.Errorf("status moved backwards to %s", final.Status)
	}

	if ok, err := f.svc.Acknowledge(ctx, 999, 5); ok || !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Acknowledge(999) = %v, %v; want false, ErrNotFound", ok, err)
	}
	if ok, err := f.svc.Resolve(ctx, 999, 5); ok || !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Resolve(999) = %v, %v; want false, ErrNotFound", ok, err)
	}
}

func TestAlertService_ResolveWithoutAcknowledge(t *testing.T) {
	f := newAlertFixture(t)
	ctx := context.Background()

	a, _ := f.svc.CreateAlert(ctx, motionInput(1))
	f.clock.Advance(42 * time.Second)
	_, _ = f.svc.Resolve(ctx, a.ID, 1)

	got, _ := f.svc.GetAlert(ctx, a.ID)
	if got.ResponseTime == nil || *got.ResponseTime != 42 {
		t.Errorf("ResponseTime = %v, want 42", got.ResponseTime)
	}
}

func TestAlertService_GetActiveAlerts(t *testing.T) {
	f := newAlertFixture(t)
	ctx := context.Background()

	for cam := int64(1); cam <= 4; cam++ {
		in := motionInput(cam)
		if cam == 4 {
			in.Severity = alert.SeverityHigh
		}
		_, _ = f.svc.CreateAlert(ctx, in)
		f.clock.Advance(time.Second)
	}
	_, _ = f.svc.Resolve(ctx, 1, 1)

	all, _ := f.svc.GetActiveAlerts(ctx, alert.ActiveFilter{})
	if len(all) != 3 || all[0].ID != 4 {
		t.Errorf("GetActiveAlerts() = %d alerts, first id %d; want 3 newest first", len(all), all[0].ID)
	}

	high := alert.SeverityHigh
	got, _ := f.svc.GetActiveAlerts(ctx, alert.ActiveFilter{Severity: &high})
	if len(got) != 1 || got[0].Severity != alert.SeverityHigh {
		t.Errorf("severity filter returned %v", got)
	}

	limited, _ := f.svc.GetActiveAlerts(ctx, alert.ActiveFilter{Limit: 2})
	if len(limited) != 2 {
		t.Errorf("limit returned %d alerts, want 2", len(limited))
	}

	bad := alert.Severity("urgent")
	if _, err := f.svc.GetActiveAlerts(ctx, alert.ActiveFilter{Severity: &bad}); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("unknown severity error = %v", err)
	}
}

func TestAlertService_GetStatistics(t *testing.T) {
	f := newAlertFixture(t)
	ctx := context.Background()

	a1, _ := f.svc.CreateAlert(ctx, motionInput(1))
	f.clock.Advance(time.Second)
	_, _ = f.svc.CreateAlert(ctx, motionInput(2))
	f.clock.Advance(9 * time.Second)
	_, _ = f.svc.Resolve(ctx, a1.ID, 1)

	stats, err := f.svc.GetStatistics(ctx, nil, nil)
	if err != nil {
		t.Fatalf("GetStatistics() error = %v", err)
	}

	if stats.TotalAlerts != 2 || stats.UnresolvedAlerts != 1 {
		t.Errorf("total=%d unresolved=%d", stats.TotalAlerts, stats.UnresolvedAlerts)
	}
	sum := 0
	for _, n := range stats.BySeverity {
		sum += n
	}
	if sum != stats.TotalAlerts {
		t.Errorf("by_severity sums to %d, want %d", sum, stats.TotalAlerts)
	}
	if stats.ByCamera["1"] != 1 || stats.ByCamera["2"] != 1 {
		t.Errorf("by_camera = %v", stats.ByCamera)
	}
	if len(stats.ResponseTimes) != 1 || stats.AverageResponseTime != 10 {
		t.Errorf("response times = %v avg %v", stats.ResponseTimes, stats.AverageResponseTime)
	}
	if !stats.DateRange.End.Equal(f.clock.Now()) || !stats.DateRange.Start.Equal(f.clock.Now().AddDate(0, 0, -30)) {
		t.Errorf("date range = %+v", stats.DateRange)
	}

	later := f.clock.Now().Add(time.Hour)
	evenLater := later.Add(time.Hour)
	empty, _ := f.svc.GetStatistics(ctx, &later, &evenLater)
	if empty.TotalAlerts != 0 || empty.AverageResponseTime != 0 {
		t.Errorf("empty window stats = %+v", empty)
	}

	if _, err := f.svc.GetStatistics(ctx, &evenLater, &later); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("inverted range error = %v", err)
	}
}

func TestAlertService_UpdateAndDelete(t *testing.T) {
	f := newAlertFixture(t)
	ctx := context.Background()

	a, _ := f.svc.CreateAlert(ctx, motionInput(1))

	desc := "Person near the loading dock"
	high := alert.SeverityHigh
	updated, err := f.svc.UpdateAlert(ctx, a.ID, alert.Update{Description: &desc, Severity: &high})
	if err != nil {
		t.Fatalf("UpdateAlert() error = %v", err)
	}
	if updated.Description != desc || updated.Severity != alert.SeverityHigh || updated.Status != alert.StatusActive {
		t.Errorf("UpdateAlert() = %+v", updated)
	}

	bad := alert.Severity("urgent")
	if _, err := f.svc.UpdateAlert(ctx, a.ID, alert.Update{Severity: &bad}); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("UpdateAlert() with bad severity error = %v", err)
	}

	if err := f.svc.DeleteAlert(ctx, a.ID); err != nil {
		t.Fatalf("DeleteAlert() error = %v", err)
	}
	if _, err := f.svc.GetAlert(ctx, a.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("GetAlert() after delete error = %v", err)
	}
}

func TestAlertService_CleanupOldAlerts(t *testing.T) {
	f := newAlertFixture(t)
	ctx := context.Background()

	old, _ := f.svc.CreateAlert(ctx, motionInput(1))
	_, _ = f.svc.Resolve(ctx, old.ID, 1)
	_, _ = f.svc.CreateAlert(ctx, motionInput(2))

	f.clock.Advance(31 * 24 * time.Hour)
	fresh, _ := f.svc.CreateAlert(ctx, motionInput(3))
	_, _ = f.svc.Resolve(ctx, fresh.ID, 1)

	n, err := f.svc.CleanupOldAlerts(ctx, 30)
	if err != nil || n != 1 {
		t.Fatalf("CleanupOldAlerts() = %d, %v; want 1", n, err)
	}
	if f.store.Len() != 2 {
		t.Errorf("store holds %d alerts, want 2", f.store.Len())
	}
}

func TestAlertService_CloseWaitsForDelivery(t *testing.T) {
	f := newAlertFixture(t)
	f.dispatcher.Block = make(chan struct{})

	a, _ := f.svc.CreateAlert(context.Background(), motionInput(1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := f.svc.Close(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Close() error = %v, want deadline exceeded", err)
	}

	got, _ := f.svc.GetAlert(context.Background(), a.ID)
	if got.EmailSent {
		t.Error("cancelled delivery marked email as sent")
	}
}

func TestAlertService_PublishesEvents(t *testing.T) {
	f := newAlertFixture(t)
	pub := &testutil.MockPublisher{}
	f.svc.events = pub
	ctx := context.Background()

	a, err := f.svc.CreateAlert(ctx, motionInput(1))
	if err != nil {
		t.Fatalf("CreateAlert() error = %v", err)
	}
	if _, err := f.svc.CreateAlert(ctx, motionInput(1)); !errors.Is(err, apperrors.ErrSuppressed) {
		t.Fatalf("duplicate CreateAlert() error = %v, want suppressed", err)
	}
	f.clock.Advance(time.Minute)
	if _, err := f.svc.Acknowledge(ctx, a.ID, 7); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Acknowledge(ctx, a.ID, 7); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Resolve(ctx, a.ID, 7); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.DeleteAlert(ctx, a.ID); err != nil {
		t.Fatal(err)
	}

	want := []alert.EventType{alert.EventCreated, alert.EventAcknowledged, alert.EventResolved, alert.EventDeleted}
	got := pub.Types()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
