package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pratik-mahalle/watchpost/internal/pkg/errors"
	"github.com/pratik-mahalle/watchpost/internal/pkg/logger"
	"github.com/pratik-mahalle/watchpost/internal/pkg/utils"
	"github.com/pratik-mahalle/watchpost/internal/pkg/validator"
)

// maxBodyBytes bounds request bodies; biometric images are the largest
const maxBodyBytes = 8 << 20

// decodeAndValidate reads a JSON body into dst and validates it. It writes
// the error response and returns false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, val *validator.Validator, dst interface{}) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && err != io.EOF {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return false
	}
	if errs := val.Validate(dst); len(errs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", errs))
		return false
	}
	return true
}

// pathID parses the {id} URL parameter
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		utils.WriteError(w, errors.BadRequest("Invalid id"))
		return 0, false
	}
	return id, true
}

// writeDomainError maps service errors onto HTTP responses
func writeDomainError(w http.ResponseWriter, log *logger.Logger, err error, resource string) {
	if appErr := utils.WriteDomainError(w, err, resource); appErr != nil && appErr.StatusCode >= http.StatusInternalServerError {
		log.ErrorWithErr(err, "Request failed")
	}
}
