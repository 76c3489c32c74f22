package handlers

import (
	"net/http"

	"github.com/kozaktomas/photo-triage/internal/api"
)

// HealthHandler reports liveness and the registered identities.
type HealthHandler struct {
	store Store
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store Store) *HealthHandler {
	return &HealthHandler{store: store}
}

// Get handles GET /api/health. It never fails.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, api.HealthResponse{
		Status:  api.StatusOK,
		Persons: nonNil(h.store.Names()),
	})
}
