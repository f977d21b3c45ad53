package stats

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"eventail/internal/index"
)

type Handler struct {
	handle *index.Handle
	path   string
}

func NewHandler(h *index.Handle, path string) *Handler {
	return &Handler{handle: h, path: path}
}

type StatsResponse struct {
	Count     int    `json:"count"`
	Dimension int    `json:"dimension"`
	Path      string `json:"path"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{Path: h.path}
	if idx := h.handle.Active(); idx != nil {
		s := idx.Stats()
		resp.Count = s.Count
		resp.Dimension = s.Dimension
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}
