package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-triage/internal/api"
	"github.com/kozaktomas/photo-triage/internal/refstore"
)

// RefsHandler registers reference embeddings.
type RefsHandler struct {
	store  Store
	logger *slog.Logger
}

// NewRefsHandler creates a new refs handler
func NewRefsHandler(store Store, logger *slog.Logger) *RefsHandler {
	return &RefsHandler{store: store, logger: loggerOrDefault(logger)}
}

// Register handles POST /api/refs/register.
func (h *RefsHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	refs := make([]refstore.Reference, len(req.Persons))
	for i, p := range req.Persons {
		refs[i] = refstore.Reference{Name: p.Name, Embeddings: p.Embeddings}
	}

	registered, err := h.store.Register(refs, req.NormalizeOrDefault())
	if err != nil {
		h.logger.Warn("registration rejected",
			slog.Int("persons", len(req.Persons)),
			slog.String("error", sanitizeForLog(err.Error())))
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	names := make([]string, len(registered))
	for i, reg := range registered {
		names[i] = reg.Name
	}
	total := h.store.Len()

	h.logger.Info("references registered",
		slog.Int("registered", len(names)),
		slog.Int("skipped", len(req.Persons)-len(names)),
		slog.Int("total_persons", total),
		slog.Int("dim", h.store.Dim()))

	respondJSON(w, http.StatusOK, api.RegisterResponse{
		Status:       api.StatusOK,
		Registered:   names,
		TotalPersons: total,
	})
}

// Get handles GET /api/refs/{name}.
func (h *RefsHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	id, ok := h.store.Get(name)
	if !ok {
		respondError(w, http.StatusNotFound, "person not found")
		return
	}
	respondJSON(w, http.StatusOK, api.IdentityResponse{
		Status:      api.StatusOK,
		Name:        id.Name,
		SampleCount: id.SampleCount,
		Dim:         id.Dim(),
	})
}
