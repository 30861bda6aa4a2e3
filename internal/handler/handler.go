package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/kestrelhouse/chorekeep/internal/chore"
	"github.com/kestrelhouse/chorekeep/internal/coordinator"
)

// validate is shared across handlers; validator caches struct metadata.
var validate = validator.New()

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("encode response", "error", err)
	}
}

func errorJSON(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeValid decodes the request body into v and runs struct validation.
func decodeValid(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	if err := validate.Struct(v); err != nil {
		errorJSON(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// writeCoordinatorError maps coordinator and claim errors onto HTTP statuses.
func writeCoordinatorError(w http.ResponseWriter, err error) {
	var ce *chore.ClaimError
	switch {
	case errors.Is(err, coordinator.ErrNotFound):
		errorJSON(w, http.StatusNotFound, err.Error())
	case errors.Is(err, coordinator.ErrInsufficientPoints):
		errorJSON(w, http.StatusConflict, err.Error())
	case errors.As(err, &ce):
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":  ce.Error(),
			"holder": ce.Holder,
		})
	default:
		errorJSON(w, http.StatusInternalServerError, err.Error())
	}
}
