package alert

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Severity of an alert
type Severity string

// Alert severity levels
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is a known severity
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Status of an alert. Transitions only move forward.
type Status string

// Alert status
const (
	StatusActive       Status = "active"
	StatusAcknowledged Status = "acknowledged"
	StatusResolved     Status = "resolved"
)

// Alert types raised by the pipeline itself. The type is otherwise free-form.
const (
	TypeMotion    = "motion"
	TypeEmergency = "emergency"
	TypeTest      = "test"
)

// Alert represents a security alert raised from a camera detection or an
// operator request
type Alert struct {
	ID              int64              `json:"id"`
	Type            string             `json:"alert_type"`
	Severity        Severity           `json:"severity"`
	Status          Status             `json:"status"`
	Title           string             `json:"title"`
	Description     string             `json:"description,omitempty"`
	CameraID        *int64             `json:"camera_id,omitempty"`
	Location        *string            `json:"location,omitempty"`
	Coordinates     map[string]float64 `json:"coordinates,omitempty"`
	ConfidenceScore *float64           `json:"confidence_score,omitempty"`
	DetectedObjects []map[string]any   `json:"detected_objects,omitempty"`
	BiometricData   map[string]any     `json:"biometric_data,omitempty"`
	AIAnalysis      map[string]any     `json:"ai_analysis,omitempty"`
	ImagePath       string             `json:"image_path,omitempty"`
	VideoPath       string             `json:"video_path,omitempty"`
	UserID          *int64             `json:"user_id,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
	AcknowledgedAt  *time.Time         `json:"acknowledged_at,omitempty"`
	ResolvedAt      *time.Time         `json:"resolved_at,omitempty"`
	ResponseTime    *float64           `json:"response_time,omitempty"`
	EmailSent       bool               `json:"email_sent"`
	SMSSent         bool               `json:"sms_sent"`
	WebhookSent     bool               `json:"webhook_sent"`
	PushSent        bool               `json:"push_sent"`
}

// Acknowledge moves an active alert to acknowledged. It reports false when
// the alert was already acknowledged or resolved, leaving it untouched.
func (a *Alert) Acknowledge(userID int64, at time.Time) bool {
	if a.Status != StatusActive {
		return false
	}
	a.Status = StatusAcknowledged
	a.UserID = &userID
	a.AcknowledgedAt = &at
	rt := at.Sub(a.CreatedAt).Seconds()
	a.ResponseTime = &rt
	a.UpdatedAt = at
	return true
}

// Resolve moves an active or acknowledged alert to resolved. Response time
// is measured from acknowledgement when there was one, otherwise from creation.
func (a *Alert) Resolve(userID int64, at time.Time) bool {
	if a.Status == StatusResolved {
		return false
	}
	from := a.CreatedAt
	if a.AcknowledgedAt != nil {
		from = *a.AcknowledgedAt
	}
	a.Status = StatusResolved
	a.UserID = &userID
	a.ResolvedAt = &at
	rt := at.Sub(from).Seconds()
	a.ResponseTime = &rt
	a.UpdatedAt = at
	return true
}

// SetDelivered records the outcome of one notification channel
func (a *Alert) SetDelivered(channel string, delivered bool) {
	switch channel {
	case "email":
		a.EmailSent = delivered
	case "sms":
		a.SMSSent = delivered
	case "webhook":
		a.WebhookSent = delivered
	case "push":
		a.PushSent = delivered
	}
}

// Clone returns a deep copy so callers never share mutable state with the store
func (a *Alert) Clone() *Alert {
	if a == nil {
		return nil
	}
	c := *a
	c.CameraID = clonePtr(a.CameraID)
	c.Location = clonePtr(a.Location)
	c.ConfidenceScore = clonePtr(a.ConfidenceScore)
	c.UserID = clonePtr(a.UserID)
	c.AcknowledgedAt = clonePtr(a.AcknowledgedAt)
	c.ResolvedAt = clonePtr(a.ResolvedAt)
	c.ResponseTime = clonePtr(a.ResponseTime)
	if a.Coordinates != nil {
		c.Coordinates = make(map[string]float64, len(a.Coordinates))
		for k, v := range a.Coordinates {
			c.Coordinates[k] = v
		}
	}
	c.DetectedObjects = cloneObjects(a.DetectedObjects)
	c.BiometricData = cloneJSONMap(a.BiometricData)
	c.AIAnalysis = cloneJSONMap(a.AIAnalysis)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneObjects(in []map[string]any) []map[string]any {
	if in == nil {
		return nil
	}
	out := make([]map[string]any, len(in))
	for i, m := range in {
		out[i] = cloneJSONMap(m)
	}
	return out
}

func cloneJSONMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneJSONMap(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	case map[string]float64:
		out := make(map[string]float64, len(t))
		for k, f := range t {
			out[k] = f
		}
		return out
	default:
		return v
	}
}

// Input carries the fields accepted by CreateAlert
type Input struct {
	Type            string             `json:"alert_type" validate:"required,max=64"`
	Severity        Severity           `json:"severity" validate:"required,severity"`
	Title           string             `json:"title" validate:"required,max=255"`
	Description     string             `json:"description,omitempty"`
	CameraID        *int64             `json:"camera_id,omitempty"`
	Location        *string            `json:"location,omitempty"`
	Coordinates     map[string]float64 `json:"coordinates,omitempty"`
	DetectedObjects []map[string]any   `json:"detected_objects,omitempty"`
	BiometricData   map[string]any     `json:"biometric_data,omitempty"`
	AIAnalysis      map[string]any     `json:"ai_analysis,omitempty"`
	ImagePath       string             `json:"image_path,omitempty"`
	VideoPath       string             `json:"video_path,omitempty"`
}

// Update carries the editable fields of an alert. Nil fields are left alone.
// Status is deliberately absent; it changes through Acknowledge and Resolve.
type Update struct {
	Description     *string            `json:"description,omitempty"`
	Severity        *Severity          `json:"severity,omitempty"`
	Location        *string            `json:"location,omitempty"`
	Coordinates     map[string]float64 `json:"coordinates,omitempty"`
	DetectedObjects []map[string]any   `json:"detected_objects,omitempty"`
	BiometricData   map[string]any     `json:"biometric_data,omitempty"`
	AIAnalysis      map[string]any     `json:"ai_analysis,omitempty"`
	ImagePath       *string            `json:"image_path,omitempty"`
	VideoPath       *string            `json:"video_path,omitempty"`
}

// Apply writes the non-nil fields of u onto a
func (u Update) Apply(a *Alert, at time.Time) error {
	if u.Severity != nil {
		if !u.Severity.Valid() {
			return fmt.Errorf("unknown severity %q", *u.Severity)
		}
		a.Severity = *u.Severity
	}
	if u.AIAnalysis != nil {
		score, err := ConfidenceFrom(u.AIAnalysis)
		if err != nil {
			return err
		}
		a.AIAnalysis = cloneJSONMap(u.AIAnalysis)
		a.ConfidenceScore = score
	}
	if u.Description != nil {
		a.Description = *u.Description
	}
	if u.Location != nil {
		a.Location = clonePtr(u.Location)
	}
	if u.Coordinates != nil {
		a.Coordinates = u.Coordinates
	}
	if u.DetectedObjects != nil {
		a.DetectedObjects = cloneObjects(u.DetectedObjects)
	}
	if u.BiometricData != nil {
		a.BiometricData = cloneJSONMap(u.BiometricData)
	}
	if u.ImagePath != nil {
		a.ImagePath = *u.ImagePath
	}
	if u.VideoPath != nil {
		a.VideoPath = *u.VideoPath
	}
	a.UpdatedAt = at
	return nil
}

// ActiveFilter narrows GetActiveAlerts. All set fields must match.
type ActiveFilter struct {
	Severity *Severity
	Type     *string
	CameraID *int64
	Limit    int
}

// Matches reports whether a satisfies every set filter field
func (f ActiveFilter) Matches(a *Alert) bool {
	if a.Status != StatusActive {
		return false
	}
	if f.Severity != nil && a.Severity != *f.Severity {
		return false
	}
	if f.Type != nil && a.Type != *f.Type {
		return false
	}
	if f.CameraID != nil && (a.CameraID == nil || *a.CameraID != *f.CameraID) {
		return false
	}
	return true
}

// DateRange is the window statistics were computed over
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Statistics summarises alerts created within a window
type Statistics struct {
	TotalAlerts         int            `json:"total_alerts"`
	BySeverity          map[string]int `json:"by_severity"`
	ByType              map[string]int `json:"by_type"`
	ByStatus            map[string]int `json:"by_status"`
	ByCamera            map[string]int `json:"by_camera"`
	ResponseTimes       []float64      `json:"response_times"`
	AverageResponseTime float64        `json:"average_response_time"`
	UnresolvedAlerts    int            `json:"unresolved_alerts"`
	DateRange           DateRange      `json:"date_range"`
}

// Summarize computes statistics over alerts whose CreatedAt lies in [start, end]
func Summarize(alerts []*Alert, start, end time.Time) *Statistics {
	stats := &Statistics{
		BySeverity:    map[string]int{},
		ByType:        map[string]int{},
		ByStatus:      map[string]int{},
		ByCamera:      map[string]int{},
		ResponseTimes: []float64{},
		DateRange:     DateRange{Start: start, End: end},
	}

	var total float64
	for _, a := range alerts {
		if a.CreatedAt.Before(start) || a.CreatedAt.After(end) {
			continue
		}
		stats.TotalAlerts++
		stats.BySeverity[string(a.Severity)]++
		stats.ByType[a.Type]++
		stats.ByStatus[string(a.Status)]++
		if a.CameraID != nil {
			stats.ByCamera[strconv.FormatInt(*a.CameraID, 10)]++
		}
		if a.ResponseTime != nil {
			stats.ResponseTimes = append(stats.ResponseTimes, *a.ResponseTime)
			total += *a.ResponseTime
		}
		if a.Status == StatusActive {
			stats.UnresolvedAlerts++
		}
	}
	if n := len(stats.ResponseTimes); n > 0 {
		stats.AverageResponseTime = total / float64(n)
	}
	return stats
}

// SuppressionKey identifies alerts that share a cooldown window. Absent
// camera and location are distinct from camera 0 and an empty location.
type SuppressionKey struct {
	Type     string
	CameraID *int64
	Location *string
}

// KeyFor builds the suppression key of an input
func KeyFor(in Input) SuppressionKey {
	return SuppressionKey{Type: in.Type, CameraID: in.CameraID, Location: in.Location}
}

// String renders the canonical form type|cam=<id or ->|loc=<quoted or ->
func (k SuppressionKey) String() string {
	var b strings.Builder
	b.WriteString(strings.ReplaceAll(k.Type, "|", `\|`))
	b.WriteString("|cam=")
	if k.CameraID == nil {
		b.WriteByte('-')
	} else {
		b.WriteString(strconv.FormatInt(*k.CameraID, 10))
	}
	b.WriteString("|loc=")
	if k.Location == nil {
		b.WriteByte('-')
	} else {
		b.WriteString(strconv.Quote(*k.Location))
	}
	return b.String()
}

// ConfidenceFrom returns the highest value of ai["confidence_scores"].
// It is nil when there is no AI payload and 0 when the payload has no scores.
func ConfidenceFrom(ai map[string]any) (*float64, error) {
	if ai == nil {
		return nil, nil
	}
	best := 0.0
	raw, ok := ai["confidence_scores"]
	if !ok || raw == nil {
		return &best, nil
	}

	var values []float64
	switch scores := raw.(type) {
	case map[string]any:
		for name, v := range scores {
			f, ok := toFloat(v)
			if !ok {
				return nil, fmt.Errorf("confidence score %q is not a number", name)
			}
			values = append(values, f)
		}
	case map[string]float64:
		for _, f := range scores {
			values = append(values, f)
		}
	case []any:
		for i, v := range scores {
			f, ok := toFloat(v)
			if !ok {
				return nil, fmt.Errorf("confidence score %d is not a number", i)
			}
			values = append(values, f)
		}
	default:
		return nil, fmt.Errorf("confidence_scores must be an object or array")
	}

	for _, f := range values {
		if math.IsNaN(f) || f < 0 || f > 1 {
			return nil, fmt.Errorf("confidence score %v outside [0,1]", f)
		}
		if f > best {
			best = f
		}
	}
	return &best, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
