package ask

import (
	"context"
	"log/slog"

	"eventail/internal/adapter/gemini"
	"eventail/internal/index"
)

type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]index.ScoredChunk, error)
}

type Generator interface {
	Generate(ctx context.Context, system, user string) (string, gemini.Usage, error)
}

type Service struct {
	retriever Retriever
	generator Generator
}

func NewService(r Retriever, g Generator) *Service {
	return &Service{retriever: r, generator: g}
}

type Answer struct {
	Text        string
	ContextUsed []index.ScoredChunk
	Usage       gemini.Usage
}

// Ask runs retrieval then generation. A generation failure returns the
// error alone: the retrieved context is not exposed on the error path.
func (s *Service) Ask(ctx context.Context, question string, k int, systemPrompt string) (*Answer, error) {
	if s.generator == nil {
		return nil, gemini.ErrBackendUnavailable
	}

	scored, err := s.retriever.Retrieve(ctx, question, k)
	if err != nil {
		return nil, err
	}

	system, user := BuildPrompt(question, scored, systemPrompt)
	text, usage, err := s.generator.Generate(ctx, system, user)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "answered question",
		"context_chunks", len(scored), "total_tokens", usage.TotalTokens)
	return &Answer{Text: text, ContextUsed: scored, Usage: usage}, nil
}
