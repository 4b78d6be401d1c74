package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/pratik-mahalle/watchpost/internal/api/dto"
	"github.com/pratik-mahalle/watchpost/internal/api/middleware"
	"github.com/pratik-mahalle/watchpost/internal/domain/alert"
	"github.com/pratik-mahalle/watchpost/internal/pkg/errors"
	"github.com/pratik-mahalle/watchpost/internal/pkg/logger"
	"github.com/pratik-mahalle/watchpost/internal/pkg/utils"
	"github.com/pratik-mahalle/watchpost/internal/pkg/validator"
)

// AlertHandler serves the alert routes
type AlertHandler struct {
	service      alert.Service
	logger       *logger.Logger
	validator    *validator.Validator
	defaultLimit int
}

// NewAlertHandler creates the alert handler
func NewAlertHandler(service alert.Service, log *logger.Logger, val *validator.Validator, defaultLimit int) *AlertHandler {
	if defaultLimit <= 0 {
		defaultLimit = 100
	}
	return &AlertHandler{service: service, logger: log, validator: val, defaultLimit: defaultLimit}
}

// List returns active alerts, newest first
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := alert.ActiveFilter{Limit: utils.ParseLimit(r, h.defaultLimit)}
	q := r.URL.Query()
	if s := q.Get("severity"); s != "" {
		sev := alert.Severity(s)
		filter.Severity = &sev
	}
	if t := q.Get("alert_type"); t != "" {
		filter.Type = &t
	}
	cameraID, err := utils.ParseOptionalInt64(r, "camera_id")
	if err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid camera_id"))
		return
	}
	filter.CameraID = cameraID

	alerts, err := h.service.GetActiveAlerts(r.Context(), filter)
	if err != nil {
		writeDomainError(w, h.logger, err, "alerts")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, dto.AlertListResponse{Alerts: alerts, Count: len(alerts)})
}

// Create raises an alert. A suppressed alert is not an error.
func (h *AlertHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in alert.Input
	if !decodeAndValidate(w, r, h.validator, &in) {
		return
	}

	a, err := h.service.CreateAlert(r.Context(), in)
	if err != nil {
		writeDomainError(w, h.logger, err, "alert")
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, dto.CreateAlertResponse{Alert: a})
}

// Get returns one alert
func (h *AlertHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	a, err := h.service.GetAlert(r.Context(), id)
	if err != nil {
		writeDomainError(w, h.logger, err, "Alert")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, a)
}

// Update edits the non-lifecycle fields of an alert
func (h *AlertHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var u alert.Update
	if !decodeAndValidate(w, r, h.validator, &u) {
		return
	}
	a, err := h.service.UpdateAlert(r.Context(), id, u)
	if err != nil {
		writeDomainError(w, h.logger, err, "Alert")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, a)
}

// Delete removes an alert
func (h *AlertHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteAlert(r.Context(), id); err != nil {
		writeDomainError(w, h.logger, err, "Alert")
		return
	}
	utils.WriteSuccessWithMessage(w, http.StatusOK, "Alert deleted successfully", nil)
}

// Acknowledge marks an alert acknowledged by the calling operator
func (h *AlertHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Acknowledge)
}

// Resolve marks an alert resolved by the calling operator
func (h *AlertHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Resolve)
}

func (h *AlertHandler) transition(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id, userID int64) (bool, error)) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req dto.LifecycleRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}
	actor, ok := middleware.GetActorID(r)
	if !ok {
		actor = req.UserID
	}
	if actor <= 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", "user_id is required"))
		return
	}

	if _, err := apply(r.Context(), id, actor); err != nil {
		writeDomainError(w, h.logger, err, "Alert")
		return
	}
	a, err := h.service.GetAlert(r.Context(), id)
	if err != nil {
		writeDomainError(w, h.logger, err, "Alert")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, dto.LifecycleResponse{Alert: a})
}

// Statistics summarises alerts between optional start and end (RFC3339)
func (h *AlertHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	var start, end *time.Time
	var err error
	if start, err = utils.ParseOptionalTime(r, "start"); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid start, expected RFC3339"))
		return
	}
	if end, err = utils.ParseOptionalTime(r, "end"); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid end, expected RFC3339"))
		return
	}

	stats, err := h.service.GetStatistics(r.Context(), start, end)
	if err != nil {
		writeDomainError(w, h.logger, err, "statistics")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, stats)
}

// TestNotification sends a synthetic alert through one or all channels
func (h *AlertHandler) TestNotification(w http.ResponseWriter, r *http.Request) {
	var req dto.TestNotificationRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}
	results, err := h.service.SendTestNotification(r.Context(), req.Channel)
	if err != nil {
		writeDomainError(w, h.logger, err, "notification")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, dto.TestNotificationResponse{Results: results})
}

// Cleanup prunes resolved alerts past the retention horizon
func (h *AlertHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	days := 0
	if d, err := utils.ParseOptionalInt64(r, "days"); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid days"))
		return
	} else if d != nil {
		days = int(*d)
	}
	n, err := h.service.CleanupOldAlerts(r.Context(), days)
	if err != nil {
		writeDomainError(w, h.logger, err, "alerts")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, dto.CleanupResponse{Deleted: n})
}
