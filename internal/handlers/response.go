package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/AnshRaj112/nutrilog-backend/internal/logging"
	"github.com/AnshRaj112/nutrilog-backend/internal/services"
	"github.com/AnshRaj112/nutrilog-backend/internal/validation"
)

const maxBodyBytes = 64 * 1024

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Success bool                     `json:"success"`
	Message string                   `json:"message"`
	Errors  []validation.FieldError `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Success: false, Message: message})
}

// writeServiceError maps service errors to a status; anything unrecognized is
// logged and reported as 500 without details.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidTimezone):
		writeError(w, http.StatusBadRequest, "Invalid timezone")
	case errors.Is(err, services.ErrInvalidDate):
		writeError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
	case errors.Is(err, services.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "amount_ml must be between 1 and 2147483647")
	case errors.Is(err, services.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, context.Canceled):
		logging.Ctx(r.Context()).Warn().Err(err).Msg("request cancelled")
		writeError(w, http.StatusServiceUnavailable, "Request cancelled")
	default:
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeAndValidate reads a JSON body into dst and runs struct validation. It
// writes the 400 itself and returns false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "Request body is required")
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}

	if err := validation.ValidateStruct(dst); err != nil {
		var verr *validation.RequestValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Success: false, Message: verr.Error(), Errors: verr.Fields})
			return false
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}
