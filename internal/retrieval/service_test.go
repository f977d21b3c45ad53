package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"eventail/internal/index"
)

type mockEmbedder struct {
	mock.Mock
}

func (m *mockEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func testHandle(t *testing.T) *index.Handle {
	t.Helper()
	chunks := []index.Chunk{
		{ChunkID: "1-0", EventID: "1", Title: "Festival de jazz", Content: "concerts"},
		{ChunkID: "2-0", EventID: "2", Title: "Exposition photo", Content: "photographie"},
	}
	vectors := [][]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
	}
	idx, err := index.New(chunks, vectors)
	require.NoError(t, err)
	return index.NewHandle(idx)
}

func TestRetrieve(t *testing.T) {
	embedder := new(mockEmbedder)
	embedder.On("EmbedQuery", mock.Anything, "concert de jazz").
		Return([]float32{1, 0, 0, 0}, nil)

	svc := NewService(embedder, testHandle(t), nil)
	results, err := svc.Retrieve(context.Background(), "concert de jazz", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Festival de jazz", results[0].Title)
	embedder.AssertExpectations(t)
}

func TestRetrieve_Validation(t *testing.T) {
	embedder := new(mockEmbedder)
	svc := NewService(embedder, testHandle(t), nil)

	tests := []struct {
		name    string
		query   string
		k       int
		wantErr error
	}{
		{"empty query", "", 5, ErrInvalidQuery},
		{"whitespace query", "   \t", 5, ErrInvalidQuery},
		{"k below minimum", "concert", 0, ErrInvalidTopK},
		{"k above maximum", "concert", 101, ErrInvalidTopK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Retrieve(context.Background(), tt.query, tt.k)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	// Validation fails before any backend call.
	embedder.AssertNotCalled(t, "EmbedQuery")
}

func TestRetrieve_NoIndexLoaded(t *testing.T) {
	embedder := new(mockEmbedder)
	svc := NewService(embedder, index.NewHandle(nil), nil)

	_, err := svc.Retrieve(context.Background(), "concert", 5)
	assert.ErrorIs(t, err, ErrIndexEmpty)
	embedder.AssertNotCalled(t, "EmbedQuery")
}

func TestRetrieve_EmbedderFailure(t *testing.T) {
	embedder := new(mockEmbedder)
	backendErr := errors.New("backend down")
	embedder.On("EmbedQuery", mock.Anything, "concert").Return(nil, backendErr)

	svc := NewService(embedder, testHandle(t), nil)
	_, err := svc.Retrieve(context.Background(), "concert", 5)
	assert.ErrorIs(t, err, backendErr)
}

func TestRetrieve_WritesQueryLog(t *testing.T) {
	embedder := new(mockEmbedder)
	embedder.On("EmbedQuery", mock.Anything, "concert").
		Return([]float32{1, 0, 0, 0}, nil)

	var buf bytes.Buffer
	svc := NewService(embedder, testHandle(t), NewQueryLogger(&buf))

	_, err := svc.Retrieve(context.Background(), "concert", 2)
	require.NoError(t, err)

	var entry QueryLogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "concert", entry.Query)
	assert.Equal(t, 2, entry.TopK)
	assert.Equal(t, 2, entry.NumResults)
	assert.False(t, entry.Timestamp.IsZero())
}
