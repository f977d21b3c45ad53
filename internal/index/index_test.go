package index

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := float32(math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

func testChunks() ([]Chunk, [][]float32) {
	chunks := []Chunk{
		{ChunkID: "c1", EventID: "e1", Title: "Festival de jazz", City: "Toulouse", Region: "Occitanie", Keywords: []string{"jazz", "musique"}, Content: "Festival de jazz en juillet à Toulouse."},
		{ChunkID: "c2", EventID: "e2", Title: "Exposition d'art", City: "Paris", Region: "Île-de-France", Content: "Exposition d'art contemporain à Paris."},
		{ChunkID: "c3", EventID: "e3", Title: "Marché de Noël", City: "Montpellier", Region: "Occitanie", Content: "Marché de Noël sur la place de la Comédie."},
	}
	vectors := [][]float32{
		normalize([]float32{1, 0, 0, 0.1}),
		normalize([]float32{0, 1, 0, 0.1}),
		normalize([]float32{0, 0, 1, 0.1}),
	}
	return chunks, vectors
}

func TestNew_Validation(t *testing.T) {
	chunks, vectors := testChunks()

	tests := []struct {
		name    string
		chunks  []Chunk
		vectors [][]float32
		wantErr error
	}{
		{"Empty", nil, nil, ErrEmpty},
		{"LengthMismatch", chunks, vectors[:2], ErrLengthMismatch},
		{"DimensionMismatch", chunks, [][]float32{{1, 0}, {0, 1}, {0, 0, 1}}, ErrDimensionMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.chunks, tt.vectors)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSearch_OrderAndBounds(t *testing.T) {
	chunks, vectors := testChunks()
	idx, err := New(chunks, vectors)
	require.NoError(t, err)

	// Query closest to the first vector.
	query := normalize([]float32{1, 0.2, 0, 0.1})

	results, err := idx.Search(query, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "c1", results[0].Chunk.ChunkID)
	assert.Greater(t, results[0].Score, results[1].Score)

	// k larger than index size returns everything, not an error.
	all, err := idx.Search(query, 100)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = idx.Search(query, 0)
	assert.ErrorIs(t, err, ErrInvalidK)

	_, err = idx.Search([]float32{1, 0}, 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestSearch_TiesKeepInsertionOrder(t *testing.T) {
	v := normalize([]float32{1, 1, 0, 0})
	chunks := []Chunk{
		{ChunkID: "first", Content: "a"},
		{ChunkID: "second", Content: "b"},
	}
	// Identical vectors: scores tie exactly, earlier-inserted must win.
	idx, err := New(chunks, [][]float32{v, v})
	require.NoError(t, err)

	results, err := idx.Search(v, 2)
	require.NoError(t, err)
	assert.Equal(t, "first", results[0].Chunk.ChunkID)
	assert.Equal(t, "second", results[1].Chunk.ChunkID)
	assert.Equal(t, results[0].Score, results[1].Score)
}

func TestAdd_ExtendsWithoutReordering(t *testing.T) {
	chunks, vectors := testChunks()
	idx, err := New(chunks[:2], vectors[:2])
	require.NoError(t, err)

	require.NoError(t, idx.Add(chunks[2:], vectors[2:]))
	assert.Equal(t, 3, idx.Stats().Count)

	err = idx.Add([]Chunk{{ChunkID: "bad"}}, [][]float32{{1, 0}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestCreate_Idempotent(t *testing.T) {
	chunks, vectors := testChunks()

	a, err := New(chunks, vectors)
	require.NoError(t, err)
	b, err := New(chunks, vectors)
	require.NoError(t, err)

	assert.Equal(t, a.Stats(), b.Stats())
}

func TestClone_IsIndependent(t *testing.T) {
	chunks, vectors := testChunks()
	idx, err := New(chunks, vectors)
	require.NoError(t, err)

	clone := idx.Clone()
	extra := Chunk{ChunkID: "c4", Content: "extra"}
	require.NoError(t, clone.Add([]Chunk{extra}, [][]float32{normalize([]float32{1, 1, 1, 1})}))

	assert.Equal(t, 3, idx.Stats().Count)
	assert.Equal(t, 4, clone.Stats().Count)
}
