package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// AlertService handles alert API calls
type AlertService struct {
	client *Client
}

// ActiveOptions filters List
type ActiveOptions struct {
	Severity string
	Type     string
	CameraID *int64
	Limit    int
}

// CreateResult is the outcome of Create. Alert is nil when Suppressed.
type CreateResult struct {
	Alert      *Alert `json:"alert,omitempty"`
	Suppressed bool   `json:"suppressed"`
	Reason     string `json:"reason,omitempty"`
}

// List returns active alerts, newest first
func (s *AlertService) List(ctx context.Context, opts *ActiveOptions) ([]Alert, error) {
	query := url.Values{}
	if opts != nil {
		if opts.Severity != "" {
			query.Set("severity", opts.Severity)
		}
		if opts.Type != "" {
			query.Set("alert_type", opts.Type)
		}
		if opts.CameraID != nil {
			query.Set("camera_id", strconv.FormatInt(*opts.CameraID, 10))
		}
		if opts.Limit > 0 {
			query.Set("limit", strconv.Itoa(opts.Limit))
		}
	}
	path := "/api/v1/alerts"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var out struct {
		Alerts []Alert `json:"alerts"`
	}
	if _, err := s.client.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Alerts, nil
}

// Create raises an alert
func (s *AlertService) Create(ctx context.Context, in AlertInput) (*CreateResult, error) {
	var out CreateResult
	if _, err := s.client.do(ctx, http.MethodPost, "/api/v1/alerts", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get returns one alert
func (s *AlertService) Get(ctx context.Context, id int64) (*Alert, error) {
	var out Alert
	if _, err := s.client.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/alerts/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update edits an alert
func (s *AlertService) Update(ctx context.Context, id int64, u AlertUpdate) (*Alert, error) {
	var out Alert
	if _, err := s.client.do(ctx, http.MethodPut, fmt.Sprintf("/api/v1/alerts/%d", id), u, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes an alert
func (s *AlertService) Delete(ctx context.Context, id int64) error {
	_, err := s.client.do(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/alerts/%d", id), nil, nil)
	return err
}

// Acknowledge acknowledges an alert. userID is only needed when the server
// runs without token auth. Acknowledging twice is not an error.
func (s *AlertService) Acknowledge(ctx context.Context, id, userID int64) (*Alert, error) {
	return s.transition(ctx, id, "acknowledge", userID)
}

// Resolve resolves an alert
func (s *AlertService) Resolve(ctx context.Context, id, userID int64) (*Alert, error) {
	return s.transition(ctx, id, "resolve", userID)
}

func (s *AlertService) transition(ctx context.Context, id int64, action string, userID int64) (*Alert, error) {
	body := map[string]int64{}
	if userID > 0 {
		body["user_id"] = userID
	}
	var out struct {
		Alert *Alert `json:"alert"`
	}
	if _, err := s.client.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/alerts/%d/%s", id, action), body, &out); err != nil {
		return nil, err
	}
	return out.Alert, nil
}

// Statistics summarises alerts. Zero times use the server default window.
func (s *AlertService) Statistics(ctx context.Context, start, end time.Time) (*Statistics, error) {
	query := url.Values{}
	if !start.IsZero() {
		query.Set("start", start.UTC().Format(time.RFC3339))
	}
	if !end.IsZero() {
		query.Set("end", end.UTC().Format(time.RFC3339))
	}
	path := "/api/v1/alerts/statistics"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var out Statistics
	if _, err := s.client.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TestNotification exercises one channel, or every channel with "all"
func (s *AlertService) TestNotification(ctx context.Context, channel string) (map[string]bool, error) {
	var out struct {
		Results map[string]bool `json:"results"`
	}
	if _, err := s.client.do(ctx, http.MethodPost, "/api/v1/alerts/test", map[string]string{"channel": channel}, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// Cleanup prunes resolved alerts older than days; 0 uses the server default
func (s *AlertService) Cleanup(ctx context.Context, days int) (int, error) {
	path := "/api/v1/alerts/cleanup"
	if days > 0 {
		path += "?days=" + strconv.Itoa(days)
	}
	var out struct {
		Deleted int `json:"deleted"`
	}
	if _, err := s.client.do(ctx, http.MethodPost, path, nil, &out); err != nil {
		return 0, err
	}
	return out.Deleted, nil
}
