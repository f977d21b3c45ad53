package index

import (
	"sort"
)

// Index is a flat inner-product index over L2-normalized vectors.
// For normalized vectors the inner product equals cosine similarity,
// so higher score means closer.
//
// An Index serving queries is treated as immutable: Search takes no
// locks, and Add must only ever run on an instance that is not yet
// installed in a Handle. The rebuild pipeline clones the active index,
// extends the clone, and swaps it in.
type Index struct {
	dim     int
	vectors []float32 // row-major, len == dim * len(chunks)
	chunks  []Chunk
}

// New builds an index from parallel slices of chunks and vectors.
func New(chunks []Chunk, vectors [][]float32) (*Index, error) {
	if len(chunks) == 0 {
		return nil, ErrEmpty
	}
	if len(chunks) != len(vectors) {
		return nil, ErrLengthMismatch
	}

	dim := len(vectors[0])
	idx := &Index{dim: dim}
	if err := idx.Add(chunks, vectors); err != nil {
		return nil, err
	}
	return idx, nil
}

// Add appends chunks and their vectors, preserving insertion order.
// It must not be called on the instance currently installed for serving.
func (x *Index) Add(chunks []Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return ErrLengthMismatch
	}
	for _, v := range vectors {
		if len(v) != x.dim {
			return ErrDimensionMismatch
		}
	}

	for i := range chunks {
		x.chunks = append(x.chunks, chunks[i])
		x.vectors = append(x.vectors, vectors[i]...)
	}
	return nil
}

// Search returns the k most similar chunks to the query vector, highest
// score first. Ties keep insertion order (earlier-indexed chunk wins).
// If k exceeds the index size, all chunks are returned.
func (x *Index) Search(query []float32, k int) ([]ScoredChunk, error) {
	if k < 1 {
		return nil, ErrInvalidK
	}
	if len(query) != x.dim {
		return nil, ErrDimensionMismatch
	}

	n := len(x.chunks)
	scores := make([]float32, n)
	for i := 0; i < n; i++ {
		row := x.vectors[i*x.dim : (i+1)*x.dim]
		var s float32
		for j, q := range query {
			s += row[j] * q
		}
		scores[i] = s
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	// Stable sort so equal scores keep insertion order.
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if k > n {
		k = n
	}
	results := make([]ScoredChunk, 0, k)
	for _, i := range order[:k] {
		results = append(results, ScoredChunk{Chunk: x.chunks[i], Score: scores[i]})
	}
	return results, nil
}

func (x *Index) Stats() Stats {
	return Stats{Count: len(x.chunks), Dimension: x.dim}
}

// Clone returns a deep copy safe to Add to while the original serves.
func (x *Index) Clone() *Index {
	c := &Index{
		dim:     x.dim,
		vectors: make([]float32, len(x.vectors)),
		chunks:  make([]Chunk, len(x.chunks)),
	}
	copy(c.vectors, x.vectors)
	copy(c.chunks, x.chunks)
	return c
}
