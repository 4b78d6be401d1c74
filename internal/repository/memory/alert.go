package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pratik-mahalle/watchpost/internal/domain/alert"
	"github.com/pratik-mahalle/watchpost/internal/pkg/errors"
)

// AlertStore keeps alerts in process. All access goes through mu.
type AlertStore struct {
	mu     sync.RWMutex
	alerts map[int64]*alert.Alert
	nextID int64
}

// NewAlertStore creates an empty alert store
func NewAlertStore() *AlertStore {
	return &AlertStore{
		alerts: make(map[int64]*alert.Alert),
		nextID: 1,
	}
}

// Insert allocates the next id and stores a copy of a
func (s *AlertStore) Insert(ctx context.Context, a *alert.Alert) (*alert.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := a.Clone()
	stored.ID = s.nextID
	s.nextID++
	s.alerts[stored.ID] = stored
	return stored.Clone(), nil
}

// Get retrieves an alert by ID
func (s *AlertStore) Get(ctx context.Context, id int64) (*alert.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.alerts[id]
	if !ok {
		return nil, fmt.Errorf("alert %d: %w", id, errors.ErrNotFound)
	}
	return a.Clone(), nil
}

// Mutate applies fn to a working copy and swaps it in when fn reports a change
func (s *AlertStore) Mutate(ctx context.Context, id int64, fn func(a *alert.Alert) (bool, error)) (*alert.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.alerts[id]
	if !ok {
		return nil, fmt.Errorf("alert %d: %w", id, errors.ErrNotFound)
	}

	working := current.Clone()
	changed, err := fn(working)
	if err != nil {
		return nil, err
	}
	if !changed {
		return current.Clone(), nil
	}
	s.alerts[id] = working
	return working.Clone(), nil
}

// Delete removes an alert
func (s *AlertStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.alerts[id]; !ok {
		return fmt.Errorf("alert %d: %w", id, errors.ErrNotFound)
	}
	delete(s.alerts, id)
	return nil
}

// ListActive returns active alerts matching filter, newest first
func (s *AlertStore) ListActive(ctx context.Context, filter alert.ActiveFilter) ([]*alert.Alert, error) {
	s.mu.RLock()
	var out []*alert.Alert
	for _, a := range s.alerts {
		if filter.Matches(a) {
			out = append(out, a.Clone())
		}
	}
	s.mu.RUnlock()

	sortNewestFirst(out)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// ListCreatedBetween returns alerts created within [start, end]
func (s *AlertStore) ListCreatedBetween(ctx context.Context, start, end time.Time) ([]*alert.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*alert.Alert
	for _, a := range s.alerts {
		if !a.CreatedAt.Before(start) && !a.CreatedAt.After(end) {
			out = append(out, a.Clone())
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// DeleteResolvedBefore removes resolved alerts resolved before cutoff
func (s *AlertStore) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, a := range s.alerts {
		if a.Status == alert.StatusResolved && a.ResolvedAt != nil && a.ResolvedAt.Before(cutoff) {
			delete(s.alerts, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored alerts
func (s *AlertStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.alerts)
}

// sortNewestFirst orders by creation time, breaking ties by id
func sortNewestFirst(alerts []*alert.Alert) {
	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].CreatedAt.Equal(alerts[j].CreatedAt) {
			return alerts[i].ID > alerts[j].ID
		}
		return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
	})
}
