package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/filedock/filedock"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError writes appropriate error response based on error type.
// NotFound is matched before Forbidden; the two are never collapsed.
func HandleError(w http.ResponseWriter, err error) {
	slog.Error("request error", "error", err)

	if errors.Is(err, filedock.ErrInvalidInput) {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid input")
		return
	}

	if errors.Is(err, filedock.ErrUnauthorized) {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}

	if errors.Is(err, filedock.ErrNotFound) {
		WriteError(w, http.StatusNotFound, "not_found", "File not found")
		return
	}

	if errors.Is(err, filedock.ErrForbidden) {
		WriteError(w, http.StatusForbidden, "forbidden", "Operation not permitted")
		return
	}

	if errors.Is(err, filedock.ErrAlreadyConfirmed) {
		WriteError(w, http.StatusConflict, "already_confirmed", "Upload already confirmed")
		return
	}

	if errors.Is(err, filedock.ErrReservationExpired) {
		WriteError(w, http.StatusConflict, "reservation_expired", "Upload reservation expired")
		return
	}

	if errors.Is(err, filedock.ErrConflict) {
		WriteError(w, http.StatusConflict, "conflict", "Conflicting state")
		return
	}

	if errors.Is(err, filedock.ErrUnavailable) {
		WriteError(w, http.StatusServiceUnavailable, "upstream_unavailable", "Backing store unavailable")
		return
	}

	// Default internal error
	WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}
