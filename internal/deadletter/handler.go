package deadletter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"notionmirror/internal/middleware"
)

var ErrNotFound = errors.New("deadletter: not found")

// Handler exposes GET /internal/dead-letters and
// POST /internal/dead-letters/{id}/requeue.
type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)

	letters, err := h.service.List(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list dead letters", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}
	if letters == nil {
		letters = []DeadLetter{}
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]any{
		"data": letters,
		"meta": map[string]int{"count": len(letters)},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) Requeue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)
	id := r.PathValue("id")

	if err := h.service.Requeue(ctx, id); err != nil {
		slog.ErrorContext(ctx, "failed to requeue dead letter", "id", id, "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]any{"data": "dead letter requeued"}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
