package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/huelogic/internal/bridge"
	"github.com/nerrad567/huelogic/internal/button"
	"github.com/nerrad567/huelogic/internal/cache"
	"github.com/nerrad567/huelogic/internal/match"
	"github.com/nerrad567/huelogic/internal/snapshot"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest = "bad_request"
	ErrCodeNotFound   = "not_found"
	ErrCodeConflict   = "conflict"
	ErrCodeInternal   = "internal_error"
	ErrCodeBridge     = "bridge_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeConflict writes a 409 error response.
func writeConflict(w http.ResponseWriter, message string) {
	writeError(w, http.StatusConflict, ErrCodeConflict, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDomainError maps domain errors onto HTTP responses. Resolution
// failures keep their suggestion text - the message is the interface
// for a human fixing a typo.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		noMatch    *match.NoMatchError
		ambiguous  *match.AmbiguousMatchError
		validation *button.ValidationError
		dupSlot    *button.DuplicateSlotError
		unresolved *button.UnresolvedReferenceError
		apiErr     *bridge.APIError
	)

	switch {
	case errors.Is(err, cache.ErrNotFound),
		errors.Is(err, bridge.ErrNotFound),
		errors.Is(err, snapshot.ErrSnapshotNotFound),
		errors.Is(err, match.ErrNoCandidates),
		errors.As(err, &noMatch),
		errors.As(err, &unresolved):
		writeNotFound(w, err.Error())

	case errors.As(err, &ambiguous),
		errors.Is(err, snapshot.ErrNoSwitches):
		writeConflict(w, err.Error())

	case errors.As(err, &validation),
		errors.As(err, &dupSlot),
		errors.Is(err, button.ErrUnknownButton),
		errors.Is(err, button.ErrUnsupportedFormat),
		errors.Is(err, button.ErrNoConfiguration):
		writeBadRequest(w, err.Error())

	case errors.Is(err, bridge.ErrUnconfirmed),
		errors.As(err, &apiErr):
		writeError(w, http.StatusBadGateway, ErrCodeBridge, err.Error())

	default:
		writeInternalError(w, err.Error())
	}
}
