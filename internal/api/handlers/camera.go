package handlers

import (
	"net/http"

	"github.com/pratik-mahalle/watchpost/internal/api/dto"
	"github.com/pratik-mahalle/watchpost/internal/domain/camera"
	"github.com/pratik-mahalle/watchpost/internal/pkg/logger"
	"github.com/pratik-mahalle/watchpost/internal/pkg/utils"
	"github.com/pratik-mahalle/watchpost/internal/pkg/validator"
)

// CameraHandler serves the camera monitor routes
type CameraHandler struct {
	service   camera.Service
	logger    *logger.Logger
	validator *validator.Validator
}

// NewCameraHandler creates the camera handler
func NewCameraHandler(service camera.Service, log *logger.Logger, val *validator.Validator) *CameraHandler {
	return &CameraHandler{service: service, logger: log, validator: val}
}

// List returns every monitor, ordered by camera id
func (h *CameraHandler) List(w http.ResponseWriter, r *http.Request) {
	cams := h.service.List()
	utils.WriteSuccess(w, http.StatusOK, dto.CameraListResponse{Cameras: cams, Count: len(cams)})
}

// Add starts monitoring a camera
func (h *CameraHandler) Add(w http.ResponseWriter, r *http.Request) {
	var cfg camera.Config
	if !decodeAndValidate(w, r, h.validator, &cfg) {
		return
	}
	if err := h.service.AddCamera(r.Context(), cfg); err != nil {
		writeDomainError(w, h.logger, err, "camera")
		return
	}
	st, err := h.service.Status(cfg.ID)
	if err != nil {
		writeDomainError(w, h.logger, err, "Camera")
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, st)
}

// Get returns the status of one monitor
func (h *CameraHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	st, err := h.service.Status(id)
	if err != nil {
		writeDomainError(w, h.logger, err, "Camera")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, st)
}

// Remove stops a monitor and waits until its resources are released
func (h *CameraHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.RemoveCamera(r.Context(), id); err != nil {
		writeDomainError(w, h.logger, err, "Camera")
		return
	}
	utils.WriteSuccessWithMessage(w, http.StatusOK, "Camera stopped", nil)
}
