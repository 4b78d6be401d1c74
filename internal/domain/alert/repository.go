package alert

import (
	"context"
	"time"
)

// Store defines the interface for alert persistence. Implementations
// return errors wrapping errors.ErrNotFound for unknown ids and hand out
// copies, never their internal records.
type Store interface {
	// Insert allocates the next id and stores the alert
	Insert(ctx context.Context, a *Alert) (*Alert, error)

	// Get retrieves an alert by ID
	Get(ctx context.Context, id int64) (*Alert, error)

	// Mutate runs fn against the stored alert atomically and persists the
	// result. fn reporting false skips the write.
	Mutate(ctx context.Context, id int64, fn func(a *Alert) (bool, error)) (*Alert, error)

	// Delete removes an alert
	Delete(ctx context.Context, id int64) error

	// ListActive returns active alerts matching the filter, newest first
	ListActive(ctx context.Context, filter ActiveFilter) ([]*Alert, error)

	// ListCreatedBetween returns alerts created within [start, end]
	ListCreatedBetween(ctx context.Context, start, end time.Time) ([]*Alert, error)

	// DeleteResolvedBefore removes resolved alerts resolved before cutoff
	DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// CooldownStore records the last time each suppression key fired
type CooldownStore interface {
	// Reserve stamps key with at unless it was stamped within window.
	// The check and the stamp happen as one step.
	Reserve(ctx context.Context, key string, at time.Time, window time.Duration) (bool, error)

	// Release removes the stamp written by Reserve if it is still at
	Release(ctx context.Context, key string, at time.Time) error
}
