package postgres

import (
	"context"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/pratik-mahalle/watchpost/internal/domain/alert"
	"github.com/pratik-mahalle/watchpost/internal/pkg/errors"
	"github.com/pratik-mahalle/watchpost/migrations"
)

// newTestDB opens an in-memory SQLite database with the schema applied
func newTestDB(t *testing.T) *DB {
	t.Helper()

	raw, err := Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	raw.SetMaxOpenConns(1)
	db := &DB{DB: raw, Driver: "sqlite"}
	t.Cleanup(func() { _ = db.Close() })

	fsys, err := migrations.GetFS("sqlite")
	if err != nil {
		t.Fatalf("GetFS() error = %v", err)
	}
	if _, err := RunMigrations(db, fsys); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	return db
}

func TestRunMigrations_Idempotent(t *testing.T) {
	db := newTestDB(t)
	fsys, _ := migrations.GetFS("sqlite")

	applied, err := RunMigrations(db, fsys)
	if err != nil {
		t.Fatalf("second RunMigrations() error = %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("second run applied %v, want nothing", applied)
	}

	status, err := MigrationStatus(db, fsys)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	for name, ok := range status {
		if !ok {
			t.Errorf("migration %s reported as pending", name)
		}
	}
}

func TestRebind(t *testing.T) {
	pg := &DB{Driver: "postgres"}
	if got := pg.Rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Errorf("Rebind() = %q", got)
	}
	lite := &DB{Driver: "sqlite"}
	if got := lite.Rebind("a = ?"); got != "a = ?" {
		t.Errorf("Rebind() changed a sqlite query: %q", got)
	}
}

func TestAlertStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewAlertStore(newTestDB(t))

	cam := int64(5)
	loc := "Lobby"
	conf := 0.9
	now := time.Date(2026, 2, 3, 4, 5, 6, 7, time.UTC)

	in := &alert.Alert{
		Type:            alert.TypeEmergency,
		Severity:        alert.SeverityCritical,
		Status:          alert.StatusActive,
		Title:           "Emergency detected on camera 5",
		CameraID:        &cam,
		Location:        &loc,
		ConfidenceScore: &conf,
		AIAnalysis: map[string]any{
			"emergency_detected": true,
			"confidence_scores":  map[string]any{"fire": 0.9},
		},
		Coordinates: map[string]float64{"x": 1.5},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := store.Insert(ctx, in)
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if created.ID == 0 {
		t.Fatal("Insert() did not assign an id")
	}

	got, err := store.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, now)
	}
	if got.CameraID == nil || *got.CameraID != 5 || got.Location == nil || *got.Location != "Lobby" {
		t.Errorf("optional fields lost: %+v", got)
	}
	if got.AIAnalysis["confidence_scores"].(map[string]any)["fire"] != 0.9 {
		t.Errorf("AIAnalysis = %v", got.AIAnalysis)
	}
	if got.Coordinates["x"] != 1.5 {
		t.Errorf("Coordinates = %v", got.Coordinates)
	}
}

func TestAlertStore_MutateAndNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewAlertStore(newTestDB(t))
	now := time.Now().UTC()

	created, _ := store.Insert(ctx, &alert.Alert{
		Type: "motion", Severity: alert.SeverityMedium, Status: alert.StatusActive,
		Title: "Motion", CreatedAt: now, UpdatedAt: now,
	})

	updated, err := store.Mutate(ctx, created.ID, func(a *alert.Alert) (bool, error) {
		a.SetDelivered("webhook", true)
		return a.Acknowledge(7, now.Add(time.Minute)), nil
	})
	if err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}
	if updated.Status != alert.StatusAcknowledged || !updated.WebhookSent {
		t.Errorf("Mutate() result = %+v", updated)
	}

	got, _ := store.Get(ctx, created.ID)
	if got.AcknowledgedAt == nil || got.UserID == nil || *got.UserID != 7 {
		t.Errorf("acknowledgement not persisted: %+v", got)
	}

	if _, err := store.Get(ctx, 999); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Get(999) error = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, 999); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Delete(999) error = %v, want ErrNotFound", err)
	}
}

func TestAlertStore_ListAndPrune(t *testing.T) {
	ctx := context.Background()
	store := NewAlertStore(newTestDB(t))
	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	cam := int64(2)

	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		_, _ = store.Insert(ctx, &alert.Alert{
			Type: "motion", Severity: alert.SeverityMedium, Status: alert.StatusActive,
			Title: "Motion", CameraID: &cam, CreatedAt: at, UpdatedAt: at,
		})
	}
	resolvedAt := base.Add(-72 * time.Hour)
	_, _ = store.Insert(ctx, &alert.Alert{
		Type: "motion", Severity: alert.SeverityLow, Status: alert.StatusResolved,
		Title: "Old", CreatedAt: resolvedAt, UpdatedAt: resolvedAt, ResolvedAt: &resolvedAt,
	})

	active, err := store.ListActive(ctx, alert.ActiveFilter{CameraID: &cam, Limit: 2})
	if err != nil {
		t.Fatalf("ListActive() error = %v", err)
	}
	if len(active) != 2 || !active[0].CreatedAt.After(active[1].CreatedAt) {
		t.Errorf("ListActive() = %v, want 2 newest first", active)
	}

	inRange, _ := store.ListCreatedBetween(ctx, base, base.Add(90*time.Minute))
	if len(inRange) != 2 {
		t.Errorf("ListCreatedBetween() returned %d, want 2", len(inRange))
	}

	n, err := store.DeleteResolvedBefore(ctx, base.Add(-24*time.Hour))
	if err != nil || n != 1 {
		t.Errorf("DeleteResolvedBefore() = %d, %v; want 1", n, err)
	}
}

func TestTimestamp_Scan(t *testing.T) {
	want := time.Date(2026, 6, 1, 8, 30, 15, 123456000, time.UTC)

	tests := []struct {
		name      string
		src       any
		wantValid bool
		wantErr   bool
	}{
		{"null", nil, false, false},
		{"timestamptz", want.In(time.FixedZone("CEST", 2*60*60)), true, false},
		{"sqlite text", want.Format(timeLayout), true, false},
		{"sqlite bytes", []byte(want.Format(timeLayout)), true, false},
		{"rfc3339", want.Format(time.RFC3339Nano), true, false},
		{"garbage", "yesterday", false, true},
		{"wrong type", int64(5), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts timestamp
			err := ts.Scan(tt.src)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Scan() error = %v, wantErr %v", err, tt.wantErr)
			}
			if ts.Valid != tt.wantValid {
				t.Fatalf("Valid = %v, want %v", ts.Valid, tt.wantValid)
			}
			if ts.Valid && (!ts.Time.Equal(want) || ts.Time.Location() != time.UTC) {
				t.Errorf("Time = %v, want %v in UTC", ts.Time, want)
			}
			if !ts.Valid && ts.ptr() != nil {
				t.Error("ptr() of a null timestamp is not nil")
			}
		})
	}
}

func TestAlertStore_TimeArg(t *testing.T) {
	at := time.Date(2026, 6, 1, 10, 0, 0, 0, time.FixedZone("CEST", 2*60*60))

	pg := NewAlertStore(&DB{Driver: "postgres"})
	if got, ok := pg.timeArg(at).(time.Time); !ok || !got.Equal(at) || got.Location() != time.UTC {
		t.Errorf("postgres timeArg() = %#v, want UTC time.Time", pg.timeArg(at))
	}

	lite := NewAlertStore(&DB{Driver: "sqlite"})
	if got := lite.timeArg(at); got != "2026-06-01T08:00:00.000000000Z" {
		t.Errorf("sqlite timeArg() = %#v", got)
	}
	if lite.nullTimeArg(nil) != nil || pg.nullTimeArg(nil) != nil {
		t.Error("nullTimeArg(nil) is not nil")
	}
}

func TestMigrations_PostgresTimestamps(t *testing.T) {
	fsys, err := migrations.GetFS("postgres")
	if err != nil {
		t.Fatalf("GetFS() error = %v", err)
	}
	b, err := fs.ReadFile(fsys, "001_create_alerts.sql")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	schema := string(b)
	for _, col := range []string{"created_at", "updated_at", "acknowledged_at", "resolved_at"} {
		if !strings.Contains(schema, col+" TIMESTAMPTZ") {
			t.Errorf("postgres %s is not TIMESTAMPTZ", col)
		}
	}
}
