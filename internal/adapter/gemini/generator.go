package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

var (
	ErrBackendUnavailable = errors.New("gemini: generation backend unavailable")
	ErrTimeout            = errors.New("gemini: generation timed out")
	ErrEmptyAnswer        = errors.New("gemini: backend returned no candidates")
)

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Generator produces grounded answers from an assembled prompt. Each call
// is stateless: exactly one system message and one user message, no
// conversation history.
type Generator struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

func NewGenerator(ctx context.Context, apiKey, model string, timeout time.Duration) (*Generator, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &Generator{client: client, model: model, timeout: timeout}, nil
}

func (g *Generator) Generate(ctx context.Context, system, user string) (string, Usage, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	m := g.client.GenerativeModel(g.model)
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}

	slog.DebugContext(ctx, "calling generation backend", "model", g.model, "prompt_length", len(user))
	resp, err := m.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", Usage{}, fmt.Errorf("%w after %s", ErrTimeout, g.timeout)
		}
		slog.ErrorContext(ctx, "generation failed", "error", err)
		return "", Usage{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", Usage{}, ErrEmptyAnswer
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}

	var usage Usage
	if resp.UsageMetadata != nil {
		usage = Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return sb.String(), usage, nil
}

func (g *Generator) Close() error {
	return g.client.Close()
}
