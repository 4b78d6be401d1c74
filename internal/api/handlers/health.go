package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/pratik-mahalle/watchpost/internal/pkg/logger"
	"github.com/pratik-mahalle/watchpost/internal/pkg/utils"
)

// Check tests one dependency
type Check func(ctx context.Context) error

// HealthHandler handles health check requests
type HealthHandler struct {
	checks map[string]Check
	logger *logger.Logger
}

// NewHealthHandler creates a health handler. checks are run by Readyz.
func NewHealthHandler(checks map[string]Check, log *logger.Logger) *HealthHandler {
	return &HealthHandler{checks: checks, logger: log}
}

// Healthz reports that the process is up
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz pings every dependency
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"status": "ready"}
	ready := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.WithFields(map[string]interface{}{"dependency": name}).ErrorWithErr(err, "Readiness check failed")
			status[name] = "unavailable"
			ready = false
			continue
		}
		status[name] = "connected"
	}

	if !ready {
		status["status"] = "not_ready"
		utils.WriteJSON(w, http.StatusServiceUnavailable, utils.SuccessResponse{Success: false, Data: status})
		return
	}
	utils.WriteSuccess(w, http.StatusOK, status)
}
