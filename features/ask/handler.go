package ask

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"eventail/internal/adapter/e5"
	"eventail/internal/adapter/gemini"
	"eventail/internal/middleware"
	"eventail/internal/retrieval"
)

const defaultTopK = 5

type Handler struct {
	service *Service
	topK    int
}

func NewHandler(service *Service, topK int) *Handler {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &Handler{service: service, topK: topK}
}

type ContextChunk struct {
	Score   float32 `json:"score"`
	Title   string  `json:"title"`
	City    string  `json:"city,omitempty"`
	Content string  `json:"content"`
}

type AskResponse struct {
	Question    string         `json:"question"`
	Answer      string         `json:"answer"`
	ContextUsed []ContextChunk `json:"context_used"`
	TokensUsed  gemini.Usage   `json:"tokens_used"`
}

func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Question     string `json:"question"`
		K            int    `json:"k"`
		SystemPrompt string `json:"system_prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(ctx, w, "INVALID_ARGUMENT", "invalid request body", http.StatusBadRequest)
		return
	}
	if req.K == 0 {
		req.K = h.topK
	}

	answer, err := h.service.Ask(ctx, req.Question, req.K, req.SystemPrompt)
	if err != nil {
		h.writeAskError(ctx, w, err)
		return
	}

	used := make([]ContextChunk, len(answer.ContextUsed))
	for i, sc := range answer.ContextUsed {
		used[i] = ContextChunk{Score: sc.Score, Title: sc.Title, City: sc.City, Content: sc.Content}
	}

	resp := AskResponse{
		Question:    req.Question,
		Answer:      answer.Text,
		ContextUsed: used,
		TokensUsed:  answer.Usage,
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) writeAskError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, retrieval.ErrInvalidQuery), errors.Is(err, retrieval.ErrInvalidTopK):
		h.writeError(ctx, w, "INVALID_ARGUMENT", err.Error(), http.StatusBadRequest)
	case errors.Is(err, retrieval.ErrIndexEmpty):
		h.writeError(ctx, w, "INDEX_ERROR", "no index is loaded; trigger a rebuild first", http.StatusServiceUnavailable)
	case errors.Is(err, gemini.ErrTimeout):
		slog.ErrorContext(ctx, "generation timed out", "error", err)
		h.writeError(ctx, w, "GENERATION_TIMEOUT", "generation timed out", http.StatusGatewayTimeout)
	case errors.Is(err, e5.ErrBackendUnavailable), errors.Is(err, gemini.ErrBackendUnavailable):
		slog.ErrorContext(ctx, "backend unavailable", "error", err)
		h.writeError(ctx, w, "BACKEND_UNAVAILABLE", "a backend is unavailable", http.StatusServiceUnavailable)
	default:
		slog.ErrorContext(ctx, "ask failed", "error", err)
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
