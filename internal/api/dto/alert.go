package dto

import "github.com/pratik-mahalle/watchpost/internal/domain/alert"

// AlertListResponse wraps a list of alerts
type AlertListResponse struct {
	Alerts []*alert.Alert `json:"alerts"`
	Count  int            `json:"count"`
}

// CreateAlertResponse is returned by POST /alerts. Suppressed is true when
// the same alert fired within the cooldown window; Alert is then nil.
type CreateAlertResponse struct {
	Alert      *alert.Alert `json:"alert,omitempty"`
	Suppressed bool         `json:"suppressed"`
	Reason     string       `json:"reason,omitempty"`
}

// LifecycleRequest names the operator when API auth is disabled. With auth
// enabled the token identity wins.
type LifecycleRequest struct {
	UserID int64 `json:"user_id,omitempty" validate:"omitempty,gt=0"`
}

// LifecycleResponse carries the alert after acknowledge or resolve. Repeating
// a transition is a no-op and returns the unchanged alert.
type LifecycleResponse struct {
	Alert *alert.Alert `json:"alert"`
}

// TestNotificationRequest selects the channel to exercise
type TestNotificationRequest struct {
	Channel string `json:"channel" validate:"required,oneof=all email sms webhook push"`
}

// TestNotificationResponse maps each channel to its delivery outcome
type TestNotificationResponse struct {
	Results map[string]bool `json:"results"`
}

// CleanupResponse reports pruned alerts
type CleanupResponse struct {
	Deleted int `json:"deleted"`
}
