package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pratik-mahalle/watchpost/internal/domain/alert"
	"github.com/pratik-mahalle/watchpost/internal/pkg/errors"
	"github.com/pratik-mahalle/watchpost/internal/pkg/metrics"
)

// timeLayout is the SQLite column format. It is fixed width so stored
// timestamps sort as text. PostgreSQL uses TIMESTAMPTZ columns instead.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const alertColumns = `id, alert_type, severity, status, title, description, camera_id, location,
	coordinates, confidence_score, detected_objects, biometric_data, ai_analysis, image_path,
	video_path, user_id, created_at, updated_at, acknowledged_at, resolved_at, response_time,
	email_sent, sms_sent, webhook_sent, push_sent`

// AlertStore is a SQL backed alert.Store for SQLite and PostgreSQL
type AlertStore struct {
	db *DB
}

// NewAlertStore creates a SQL alert store
func NewAlertStore(db *DB) *AlertStore {
	return &AlertStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// timeArg converts t into the bind value of the active driver
func (s *AlertStore) timeArg(t time.Time) any {
	if s.db.Driver == "postgres" {
		return t.UTC()
	}
	return t.UTC().Format(timeLayout)
}

func (s *AlertStore) nullTimeArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return s.timeArg(*t)
}

// timestamp scans a TIMESTAMPTZ value or a timeLayout string
type timestamp struct {
	Time  time.Time
	Valid bool
}

// Scan implements sql.Scanner
func (ts *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*ts = timestamp{}
		return nil
	case time.Time:
		*ts = timestamp{Time: v.UTC(), Valid: true}
		return nil
	case string:
		return ts.parse(v)
	case []byte:
		return ts.parse(string(v))
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (ts *timestamp) parse(s string) error {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		if t, err = time.Parse(time.RFC3339Nano, s); err != nil {
			return err
		}
	}
	*ts = timestamp{Time: t.UTC(), Valid: true}
	return nil
}

func (ts timestamp) ptr() *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}

func marshalJSON(v any, isNil bool) (sql.NullString, error) {
	if isNil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func unmarshalJSON(src sql.NullString, dst any) error {
	if !src.Valid || src.String == "" {
		return nil
	}
	dec := json.NewDecoder(strings.NewReader(src.String))
	return dec.Decode(dst)
}

// encoded holds the column values of an alert
type encoded struct {
	cameraID       sql.NullInt64
	userID         sql.NullInt64
	location       sql.NullString
	coordinates    sql.NullString
	detected       sql.NullString
	biometricData  sql.NullString
	aiAnalysis     sql.NullString
	confidence     sql.NullFloat64
	responseTime   sql.NullFloat64
}

func encode(a *alert.Alert) (*encoded, error) {
	e := &encoded{}
	if a.CameraID != nil {
		e.cameraID = sql.NullInt64{Int64: *a.CameraID, Valid: true}
	}
	if a.UserID != nil {
		e.userID = sql.NullInt64{Int64: *a.UserID, Valid: true}
	}
	if a.Location != nil {
		e.location = sql.NullString{String: *a.Location, Valid: true}
	}
	if a.ConfidenceScore != nil {
		e.confidence = sql.NullFloat64{Float64: *a.ConfidenceScore, Valid: true}
	}
	if a.ResponseTime != nil {
		e.responseTime = sql.NullFloat64{Float64: *a.ResponseTime, Valid: true}
	}

	var err error
	if e.coordinates, err = marshalJSON(a.Coordinates, a.Coordinates == nil); err != nil {
		return nil, fmt.Errorf("encode coordinates: %w", err)
	}
	if e.detected, err = marshalJSON(a.DetectedObjects, a.DetectedObjects == nil); err != nil {
		return nil, fmt.Errorf("encode detected objects: %w", err)
	}
	if e.biometricData, err = marshalJSON(a.BiometricData, a.BiometricData == nil); err != nil {
		return nil, fmt.Errorf("encode biometric data: %w", err)
	}
	if e.aiAnalysis, err = marshalJSON(a.AIAnalysis, a.AIAnalysis == nil); err != nil {
		return nil, fmt.Errorf("encode ai analysis: %w", err)
	}
	return e, nil
}

func scanAlert(row rowScanner) (*alert.Alert, error) {
	var (
		a                                         alert.Alert
		e                                         encoded
		createdAt, updatedAt, ackedAt, resolvedAt timestamp
	)
	err := row.Scan(
		&a.ID, &a.Type, &a.Severity, &a.Status, &a.Title, &a.Description, &e.cameraID, &e.location,
		&e.coordinates, &e.confidence, &e.detected, &e.biometricData, &e.aiAnalysis, &a.ImagePath,
		&a.VideoPath, &e.userID, &createdAt, &updatedAt, &ackedAt, &resolvedAt, &e.responseTime,
		&a.EmailSent, &a.SMSSent, &a.WebhookSent, &a.PushSent,
	)
	if err != nil {
		return nil, err
	}

	if e.cameraID.Valid {
		a.CameraID = &e.cameraID.Int64
	}
	if e.userID.Valid {
		a.UserID = &e.userID.Int64
	}
	if e.location.Valid {
		a.Location = &e.location.String
	}
	if e.confidence.Valid {
		a.ConfidenceScore = &e.confidence.Float64
	}
	if e.responseTime.Valid {
		a.ResponseTime = &e.responseTime.Float64
	}
	a.CreatedAt = createdAt.Time
	a.UpdatedAt = updatedAt.Time
	a.AcknowledgedAt = ackedAt.ptr()
	a.ResolvedAt = resolvedAt.ptr()
	if err := unmarshalJSON(e.coordinates, &a.Coordinates); err != nil {
		return nil, fmt.Errorf("decode coordinates: %w", err)
	}
	if err := unmarshalJSON(e.detected, &a.DetectedObjects); err != nil {
		return nil, fmt.Errorf("decode detected objects: %w", err)
	}
	if err := unmarshalJSON(e.biometricData, &a.BiometricData); err != nil {
		return nil, fmt.Errorf("decode biometric data: %w", err)
	}
	if err := unmarshalJSON(e.aiAnalysis, &a.AIAnalysis); err != nil {
		return nil, fmt.Errorf("decode ai analysis: %w", err)
	}
	return &a, nil
}

// Insert stores a new alert and returns it with its allocated id
func (s *AlertStore) Insert(ctx context.Context, a *alert.Alert) (*alert.Alert, error) {
	defer observe("insert", time.Now())

	e, err := encode(a)
	if err != nil {
		return nil, err
	}

	query := s.db.Rebind(`
		INSERT INTO alerts (alert_type, severity, status, title, description, camera_id, location,
			coordinates, confidence_score, detected_objects, biometric_data, ai_analysis, image_path,
			video_path, user_id, created_at, updated_at, acknowledged_at, resolved_at, response_time,
			email_sent, sms_sent, webhook_sent, push_sent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	var id int64
	err = s.db.QueryRowContext(ctx, query,
		a.Type, a.Severity, a.Status, a.Title, a.Description, e.cameraID, e.location,
		e.coordinates, e.confidence, e.detected, e.biometricData, e.aiAnalysis, a.ImagePath,
		a.VideoPath, e.userID, s.timeArg(a.CreatedAt), s.timeArg(a.UpdatedAt),
		s.nullTimeArg(a.AcknowledgedAt), s.nullTimeArg(a.ResolvedAt), e.responseTime,
		a.EmailSent, a.SMSSent, a.WebhookSent, a.PushSent,
	).Scan(&id)
	if err != nil {
		return nil, errors.DatabaseError("Failed to create alert", err)
	}

	stored := a.Clone()
	stored.ID = id
	return stored, nil
}

// Get retrieves an alert by ID
func (s *AlertStore) Get(ctx context.Context, id int64) (*alert.Alert, error) {
	defer observe("get", time.Now())

	row := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT `+alertColumns+` FROM alerts WHERE id = ?`), id)
	a, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("alert %d: %w", id, errors.ErrNotFound)
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get alert", err)
	}
	return a, nil
}

// Mutate reads, changes and writes one alert inside a transaction
func (s *AlertStore) Mutate(ctx context.Context, id int64, fn func(a *alert.Alert) (bool, error)) (*alert.Alert, error) {
	defer observe("mutate", time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.DatabaseError("Failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = ?`
	if s.db.Driver == "postgres" {
		query += " FOR UPDATE"
	}
	a, err := scanAlert(tx.QueryRowContext(ctx, s.db.Rebind(query), id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("alert %d: %w", id, errors.ErrNotFound)
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to load alert", err)
	}

	changed, err := fn(a)
	if err != nil {
		return nil, err
	}
	if !changed {
		return a, nil
	}

	e, err := encode(a)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, s.db.Rebind(`
		UPDATE alerts SET severity = ?, status = ?, title = ?, description = ?, location = ?,
			coordinates = ?, confidence_score = ?, detected_objects = ?, biometric_data = ?,
			ai_analysis = ?, image_path = ?, video_path = ?, user_id = ?, updated_at = ?,
			acknowledged_at = ?, resolved_at = ?, response_time = ?, email_sent = ?, sms_sent = ?,
			webhook_sent = ?, push_sent = ?
		WHERE id = ?
	`),
		a.Severity, a.Status, a.Title, a.Description, e.location,
		e.coordinates, e.confidence, e.detected, e.biometricData,
		e.aiAnalysis, a.ImagePath, a.VideoPath, e.userID, s.timeArg(a.UpdatedAt),
		s.nullTimeArg(a.AcknowledgedAt), s.nullTimeArg(a.ResolvedAt), e.responseTime, a.EmailSent, a.SMSSent,
		a.WebhookSent, a.PushSent,
		a.ID,
	)
	if err != nil {
		return nil, errors.DatabaseError("Failed to update alert", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.DatabaseError("Failed to commit alert update", err)
	}
	return a, nil
}

// Delete removes an alert
func (s *AlertStore) Delete(ctx context.Context, id int64) error {
	defer observe("delete", time.Now())

	result, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM alerts WHERE id = ?"), id)
	if err != nil {
		return errors.DatabaseError("Failed to delete alert", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("Failed to get affected rows", err)
	}
	if rows == 0 {
		return fmt.Errorf("alert %d: %w", id, errors.ErrNotFound)
	}
	return nil
}

// ListActive returns active alerts matching filter, newest first
func (s *AlertStore) ListActive(ctx context.Context, filter alert.ActiveFilter) ([]*alert.Alert, error) {
	defer observe("list_active", time.Now())

	where := []string{"status = ?"}
	args := []interface{}{alert.StatusActive}

	if filter.Severity != nil {
		where = append(where, "severity = ?")
		args = append(args, *filter.Severity)
	}
	if filter.Type != nil {
		where = append(where, "alert_type = ?")
		args = append(args, *filter.Type)
	}
	if filter.CameraID != nil {
		where = append(where, "camera_id = ?")
		args = append(args, *filter.CameraID)
	}

	query := fmt.Sprintf(`SELECT %s FROM alerts WHERE %s ORDER BY created_at DESC, id DESC`,
		alertColumns, strings.Join(where, " AND "))
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	return s.query(ctx, query, args...)
}

// ListCreatedBetween returns alerts created within [start, end]
func (s *AlertStore) ListCreatedBetween(ctx context.Context, start, end time.Time) ([]*alert.Alert, error) {
	defer observe("list_range", time.Now())

	query := `SELECT ` + alertColumns + ` FROM alerts WHERE created_at >= ? AND created_at <= ? ORDER BY created_at DESC, id DESC`
	return s.query(ctx, query, s.timeArg(start), s.timeArg(end))
}

// DeleteResolvedBefore removes resolved alerts resolved before cutoff
func (s *AlertStore) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	defer observe("prune", time.Now())

	result, err := s.db.ExecContext(ctx,
		s.db.Rebind("DELETE FROM alerts WHERE status = ? AND resolved_at IS NOT NULL AND resolved_at < ?"),
		alert.StatusResolved, s.timeArg(cutoff),
	)
	if err != nil {
		return 0, errors.DatabaseError("Failed to prune alerts", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.DatabaseError("Failed to get affected rows", err)
	}
	return int(n), nil
}

func (s *AlertStore) query(ctx context.Context, query string, args ...interface{}) ([]*alert.Alert, error) {
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list alerts", err)
	}
	defer rows.Close()

	alerts := make([]*alert.Alert, 0, 16)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, errors.DatabaseError("Failed to scan alert", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func observe(operation string, start time.Time) {
	metrics.RecordDBQuery(operation, "alerts", time.Since(start))
}
