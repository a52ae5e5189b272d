// Package vector provides the in-memory corpus index: normalized chunk
// embeddings with exact inner-product search.
package vector

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/hyperjump/kotae/internal/models"
)

// ErrNotReady is returned by Search before the first successful Replace.
// Callers treat it as the defined "no documents loaded" state, not a fault.
var ErrNotReady = errors.New("vector index not built")

// ErrEmptyCorpus is returned when Replace is called with no chunks.
// Ingestion rejects empty corpora earlier; this is the last line of defense.
var ErrEmptyCorpus = errors.New("empty corpus")

// Result is a single search hit. Score is the inner product of the query and
// chunk vectors, which equals cosine similarity since both are L2-normalized.
type Result struct {
	Score float64
	Chunk models.Chunk
}

// Index holds the current corpus: a chunk list and the parallel matrix of
// normalized embedding vectors (chunk i corresponds to vector i). The whole
// corpus is replaced on each ingestion; readers never observe a half-built
// state because both slices swap in under one write lock.
type Index struct {
	mu      sync.RWMutex
	dim     int
	chunks  []models.Chunk
	vectors [][]float32
}

// NewIndex returns an empty index. Its dimension is undefined until the first
// successful Replace.
func NewIndex() *Index {
	return &Index{}
}

// Replace validates the new corpus and atomically swaps it in, discarding any
// previous contents. Vectors must all share one dimension and be parallel to
// chunks. The caller builds and normalizes everything off to the side first;
// Replace only validates and publishes.
func (x *Index) Replace(chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) == 0 {
		return ErrEmptyCorpus
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d vs %d", len(chunks), len(vectors))
	}
	dim := len(vectors[0])
	if dim == 0 {
		return fmt.Errorf("zero-dimension embedding vector")
	}
	for i, vec := range vectors {
		if len(vec) != dim {
			return fmt.Errorf("vector %d dimension mismatch: got %d, expected %d", i, len(vec), dim)
		}
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.dim = dim
	x.chunks = chunks
	x.vectors = vectors
	return nil
}

// Search returns up to topK chunks ranked by descending inner product with
// query. The search is exact (brute force); at this corpus scale there is no
// need for approximate structures. Ties keep original chunk order, so results
// are deterministic for a fixed corpus and query. Returns ErrNotReady before
// the first Replace.
func (x *Index) Search(query []float32, topK int) ([]Result, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.dim == 0 {
		return nil, ErrNotReady
	}
	if len(query) != x.dim {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), x.dim)
	}
	if topK <= 0 {
		return nil, nil
	}

	results := make([]Result, len(x.chunks))
	for i, vec := range x.vectors {
		var dot float64
		for j := 0; j < x.dim; j++ {
			dot += float64(query[j]) * float64(vec[j])
		}
		results[i] = Result{Score: dot, Chunk: x.chunks[i]}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

// Size returns the number of chunks in the current corpus.
func (x *Index) Size() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.chunks)
}

// Dimensions returns the embedding dimension, or 0 before the first Replace.
func (x *Index) Dimensions() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.dim
}
