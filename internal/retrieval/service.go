package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventail/internal/index"
	"eventail/internal/middleware"
)

const (
	MinTopK = 1
	MaxTopK = 100
)

var (
	ErrInvalidQuery = errors.New("retrieval: query must be non-empty")
	ErrInvalidTopK  = fmt.Errorf("retrieval: k must be between %d and %d", MinTopK, MaxTopK)
	ErrIndexEmpty   = errors.New("retrieval: no index is loaded")
)

type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Service runs the query half of the RAG flow: validate, embed in query
// mode, search the active index snapshot.
type Service struct {
	embedder QueryEmbedder
	handle   *index.Handle
	logger   *QueryLogger
}

func NewService(e QueryEmbedder, h *index.Handle, l *QueryLogger) *Service {
	return &Service{embedder: e, handle: h, logger: l}
}

func (s *Service) Retrieve(ctx context.Context, query string, k int) ([]index.ScoredChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrInvalidQuery
	}
	if k < MinTopK || k > MaxTopK {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTopK, k)
	}

	idx := s.handle.Active()
	if idx == nil {
		return nil, ErrIndexEmpty
	}

	start := time.Now()
	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	results, err := idx.Search(vec, k)
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Log(QueryLogEntry{
			Query:         query,
			TopK:          k,
			NumResults:    len(results),
			Duration:      time.Since(start),
			CorrelationID: middleware.GetCorrelationID(ctx),
		})
	}
	return results, nil
}
