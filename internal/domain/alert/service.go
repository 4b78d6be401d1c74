package alert

import (
	"context"
	"time"
)

// Service defines the interface for alert business logic
type Service interface {
	// CreateAlert stores a new alert and starts notification delivery.
	// It returns errors.ErrSuppressed when the key fired within the cooldown.
	CreateAlert(ctx context.Context, in Input) (*Alert, error)

	// GetAlert retrieves an alert by ID
	GetAlert(ctx context.Context, id int64) (*Alert, error)

	// UpdateAlert edits the non-lifecycle fields of an alert
	UpdateAlert(ctx context.Context, id int64, u Update) (*Alert, error)

	// DeleteAlert removes an alert
	DeleteAlert(ctx context.Context, id int64) error

	// Acknowledge and Resolve are idempotent
	Acknowledge(ctx context.Context, id, userID int64) (bool, error)
	Resolve(ctx context.Context, id, userID int64) (bool, error)

	// GetActiveAlerts lists active alerts, newest first
	GetActiveAlerts(ctx context.Context, filter ActiveFilter) ([]*Alert, error)

	// GetStatistics defaults to the configured trailing window
	GetStatistics(ctx context.Context, start, end *time.Time) (*Statistics, error)

	// CleanupOldAlerts prunes resolved alerts past the retention horizon
	CleanupOldAlerts(ctx context.Context, retentionDays int) (int, error)

	// SendTestNotification exercises one channel, or every channel with "all"
	SendTestNotification(ctx context.Context, channel string) (map[string]bool, error)
}

// EventType names a change to an alert
type EventType string

const (
	EventCreated      EventType = "alert_created"
	EventUpdated      EventType = "alert_updated"
	EventAcknowledged EventType = "alert_acknowledged"
	EventResolved     EventType = "alert_resolved"
	EventDeleted      EventType = "alert_deleted"
)

// Event is published after an alert changes. Alert is a snapshot; for
// EventDeleted only its ID is set.
type Event struct {
	Type  EventType `json:"type"`
	Alert *Alert    `json:"alert"`
	At    time.Time `json:"timestamp"`
}

// Publisher receives alert events. Publish must not block.
type Publisher interface {
	Publish(e Event)
}
