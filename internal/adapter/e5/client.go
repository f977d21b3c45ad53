// Package e5 is the client for the embedding inference server. The model
// family (multilingual E5) encodes asymmetrically: texts to be indexed are
// prefixed "passage: " and search queries "query: ", and the two must
// never be mixed. The server returns L2-normalized vectors of a fixed
// dimension, so cosine similarity reduces to a dot product downstream.
package e5

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const (
	passagePrefix = "passage: "
	queryPrefix   = "query: "
)

var (
	ErrBackendUnavailable = errors.New("e5: embedding backend unavailable")
	ErrEmptyInput         = errors.New("e5: texts must be non-empty")
	ErrBadDimension       = errors.New("e5: unexpected embedding dimension")
)

type Client struct {
	baseURL   string
	dimension int
	batchSize int
	client    *http.Client
}

func NewClient(baseURL string, dimension, batchSize int) *Client {
	return &Client{
		baseURL:   baseURL,
		dimension: dimension,
		batchSize: batchSize,
		client:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Dimension() int {
	return c.dimension
}

// EmbedDocuments encodes texts in passage mode. Requests are batched for
// throughput only; results are concatenated in input order and are
// identical to unbatched calls.
func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	prefixed := make([]string, len(texts))
	for i, t := range texts {
		if t == "" {
			return nil, ErrEmptyInput
		}
		prefixed[i] = passagePrefix + t
	}

	vectors := make([][]float32, 0, len(prefixed))
	for start := 0; start < len(prefixed); start += c.batchSize {
		end := start + c.batchSize
		if end > len(prefixed) {
			end = len(prefixed)
		}
		batch, err := c.embed(ctx, prefixed[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// EmbedQuery encodes one search query in query mode.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}
	vectors, err := c.embed(ctx, []string{queryPrefix + text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Ping checks that the backend answers at all; used by the health check.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", ErrBackendUnavailable, resp.StatusCode)
	}
	return nil
}

func (c *Client) embed(ctx context.Context, inputs []string) ([][]float32, error) {
	reqBody := map[string]interface{}{"inputs": inputs}
	jsonBody, _ := json.Marshal(reqBody)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		slog.ErrorContext(ctx, "embedding request failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: status %d", ErrBackendUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("e5: embed request rejected: status %d", resp.StatusCode)
	}

	var vectors [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if len(vectors) != len(inputs) {
		return nil, fmt.Errorf("%w: got %d vectors for %d inputs", ErrBackendUnavailable, len(vectors), len(inputs))
	}
	for _, v := range vectors {
		if len(v) != c.dimension {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrBadDimension, len(v), c.dimension)
		}
	}
	return vectors, nil
}
