package search

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"eventail/internal/adapter/e5"
	"eventail/internal/index"
	"eventail/internal/middleware"
	"eventail/internal/retrieval"
)

const defaultTopK = 5

type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]index.ScoredChunk, error)
}

type Handler struct {
	retriever Retriever
	topK      int
}

func NewHandler(r Retriever, topK int) *Handler {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &Handler{retriever: r, topK: topK}
}

type Result struct {
	Score    float32        `json:"score"`
	Title    string         `json:"title"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

type SearchResponse struct {
	Query   string   `json:"query"`
	Results []Result `json:"results"`
	Count   int      `json:"count"`
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Query string `json:"query"`
		K     int    `json:"k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(ctx, w, "INVALID_ARGUMENT", "invalid request body", http.StatusBadRequest)
		return
	}
	if req.K == 0 {
		req.K = h.topK
	}

	chunks, err := h.retriever.Retrieve(ctx, req.Query, req.K)
	if err != nil {
		h.writeRetrieveError(ctx, w, err)
		return
	}

	results := make([]Result, len(chunks))
	for i, c := range chunks {
		results[i] = toResult(c)
	}

	resp := SearchResponse{Query: req.Query, Results: results, Count: len(results)}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func toResult(c index.ScoredChunk) Result {
	return Result{
		Score:   c.Score,
		Title:   c.Title,
		Content: c.Content,
		Metadata: map[string]any{
			"chunk_id":   c.ChunkID,
			"event_id":   c.EventID,
			"city":       c.City,
			"region":     c.Region,
			"date_start": c.DateStart,
			"date_end":   c.DateEnd,
			"latitude":   c.Latitude,
			"longitude":  c.Longitude,
			"keywords":   c.Keywords,
		},
	}
}

func (h *Handler) writeRetrieveError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, retrieval.ErrInvalidQuery), errors.Is(err, retrieval.ErrInvalidTopK):
		h.writeError(ctx, w, "INVALID_ARGUMENT", err.Error(), http.StatusBadRequest)
	case errors.Is(err, retrieval.ErrIndexEmpty):
		h.writeError(ctx, w, "INDEX_ERROR", "no index is loaded; trigger a rebuild first", http.StatusServiceUnavailable)
	case errors.Is(err, e5.ErrBackendUnavailable):
		slog.ErrorContext(ctx, "embedding backend unavailable", "error", err)
		h.writeError(ctx, w, "BACKEND_UNAVAILABLE", "embedding backend unavailable", http.StatusServiceUnavailable)
	default:
		slog.ErrorContext(ctx, "search failed", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
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
