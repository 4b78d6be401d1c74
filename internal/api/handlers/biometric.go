package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pratik-mahalle/watchpost/internal/api/dto"
	"github.com/pratik-mahalle/watchpost/internal/domain/biometric"
	"github.com/pratik-mahalle/watchpost/internal/pkg/errors"
	"github.com/pratik-mahalle/watchpost/internal/pkg/logger"
	"github.com/pratik-mahalle/watchpost/internal/pkg/utils"
	"github.com/pratik-mahalle/watchpost/internal/pkg/validator"
)

// BiometricHandler serves enrollment, authentication and liveness
type BiometricHandler struct {
	service   biometric.Service
	logger    *logger.Logger
	validator *validator.Validator
}

// NewBiometricHandler creates the biometric handler
func NewBiometricHandler(service biometric.Service, log *logger.Logger, val *validator.Validator) *BiometricHandler {
	return &BiometricHandler{service: service, logger: log, validator: val}
}

func modalityParam(w http.ResponseWriter, r *http.Request) (biometric.Modality, bool) {
	m, ok := biometric.ParseModality(chi.URLParam(r, "modality"))
	if !ok {
		utils.WriteError(w, errors.BadRequest("Unknown modality, expected face, fingerprint or iris"))
	}
	return m, ok
}

// Register enrolls a template
func (h *BiometricHandler) Register(w http.ResponseWriter, r *http.Request) {
	m, ok := modalityParam(w, r)
	if !ok {
		return
	}
	var req dto.RegisterRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}
	res, err := h.service.Register(r.Context(), m, req.UserID, *req.Sample())
	if err != nil {
		writeDomainError(w, h.logger, err, "biometric template")
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, res)
}

// Authenticate matches one modality. A non-match is a 401 carrying the result.
func (h *BiometricHandler) Authenticate(w http.ResponseWriter, r *http.Request) {
	m, ok := modalityParam(w, r)
	if !ok {
		return
	}
	var req dto.AuthenticateRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}
	res, err := h.service.AuthenticateModality(r.Context(), m, *req.Sample(), req.UserID)
	if err != nil {
		writeDomainError(w, h.logger, err, "biometric")
		return
	}
	status := http.StatusOK
	if !res.Success {
		status = http.StatusUnauthorized
	}
	utils.WriteJSON(w, status, utils.SuccessResponse{Success: res.Success, Data: res})
}

// AuthenticateMultiModal fuses every supplied modality
func (h *BiometricHandler) AuthenticateMultiModal(w http.ResponseWriter, r *http.Request) {
	var req dto.MultiModalRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}
	res, err := h.service.Authenticate(r.Context(), req.Domain())
	if err != nil {
		appErr := errors.FromDomain(err, "biometric")
		if errors.Is(err, errors.ErrIdentityMismatch) {
			appErr = appErr.WithDetails(res)
		}
		if appErr.StatusCode >= http.StatusInternalServerError {
			h.logger.ErrorWithErr(err, "Multi-modal authentication failed")
		}
		utils.WriteError(w, appErr)
		return
	}
	status := http.StatusOK
	if !res.Success {
		status = http.StatusUnauthorized
	}
	utils.WriteJSON(w, status, utils.SuccessResponse{Success: res.Success, Data: res})
}

// Liveness runs the liveness gate on an image
func (h *BiometricHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	var req dto.LivenessRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}
	res := h.service.CheckLiveness(r.Context(), biometric.Sample{Data: req.Data})
	if res.Error != "" {
		utils.WriteError(w, errors.BadRequest(res.Error))
		return
	}
	utils.WriteSuccess(w, http.StatusOK, res)
}
