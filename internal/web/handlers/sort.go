package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/kozaktomas/photo-triage/internal/api"
	"github.com/kozaktomas/photo-triage/internal/classifier"
)

// SortHandler classifies inbox embeddings against the registered identities.
type SortHandler struct {
	classifier *classifier.Classifier
	logger     *slog.Logger
}

// NewSortHandler creates a new sort handler
func NewSortHandler(store Store, logger *slog.Logger) *SortHandler {
	return &SortHandler{
		classifier: classifier.New(store),
		logger:     loggerOrDefault(logger),
	}
}

// Sort handles POST /api/sort.
func (h *SortHandler) Sort(w http.ResponseWriter, r *http.Request) {
	var req api.SortRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	items := make([]classifier.Item, len(req.Inbox))
	for i, it := range req.Inbox {
		items[i] = classifier.Item{File: it.File, Embedding: it.Embedding}
	}
	opts := classifier.Options{
		Threshold:  req.ThresholdOrDefault(),
		MultiLabel: req.MultiLabel,
	}

	batch, err := h.classifier.Classify(items, opts)
	if err != nil {
		if !errors.Is(err, classifier.ErrNoIdentities) {
			h.logger.Warn("classification rejected", slog.String("error", sanitizeForLog(err.Error())))
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	matched := 0
	for _, a := range batch.Assignments {
		if a.Best != nil {
			matched++
		}
	}
	h.logger.Info("inbox classified",
		slog.Int("items", len(items)),
		slog.Int("matched", matched),
		slog.Int("persons", len(batch.Persons)),
		slog.Float64("threshold", opts.Threshold),
		slog.Bool("multi_label", opts.MultiLabel))

	respondJSON(w, http.StatusOK, api.NewSortResponse(batch))
}
