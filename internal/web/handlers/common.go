// Package handlers provides HTTP handlers for the web API.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kozaktomas/photo-triage/internal/api"
	"github.com/kozaktomas/photo-triage/internal/constants"
	"github.com/kozaktomas/photo-triage/internal/refstore"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// Store is the part of the reference store the handlers use.
type Store interface {
	Register(refs []refstore.Reference, normalize bool) ([]refstore.Registered, error)
	Snapshot() []refstore.Identity
	Get(name string) (refstore.Identity, bool)
	Names() []string
	Len() int
	Dim() int
}

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, api.ErrorResponse{Status: api.StatusError, Message: message})
}

// decodeJSON reads a size-limited JSON body into dst. An empty body leaves
// dst at its zero value so every field takes its default.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, constants.MaxRequestBodySize)
	err := json.NewDecoder(body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	}
	respondError(w, http.StatusBadRequest, errInvalidRequestBody)
	return false
}

// nonNil keeps empty name lists as [] in JSON.
func nonNil(names []string) []string {
	if names == nil {
		return []string{}
	}
	return names
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
