package rebuild

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"eventail/internal/middleware"
)

type Handler struct {
	coordinator *Coordinator
}

func NewHandler(c *Coordinator) *Handler {
	return &Handler{coordinator: c}
}

func (h *Handler) Trigger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.coordinator.Trigger(ctx); err != nil {
		if errors.Is(err, ErrAlreadyRunning) {
			h.writeError(ctx, w, "REBUILD_CONFLICT", err.Error(), http.StatusConflict)
			return
		}
		slog.ErrorContext(ctx, "failed to trigger rebuild", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	slog.InfoContext(ctx, "rebuild triggered")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	resp := map[string]string{
		"status": string(StatusStarted),
		"detail": "rebuild running in background",
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.coordinator.Status()); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
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
