package index

import (
	"fmt"
	"sort"
	"sync"
)

// Chunk is a contiguous span of extracted text from one uploaded file.
// Source is the original filename (basename) the span came from.
type Chunk struct {
	Source  string
	Text    string
	Ordinal int
}

// SearchResult pairs a chunk with its relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Index is an in-memory brute-force cosine-similarity index.
// Reads may proceed concurrently with each other; Add and Reset take the
// write lock, so a Search never observes a partially mutated index.
type Index struct {
	mu       sync.RWMutex
	embedder Embedder
	chunks   []Chunk
	vectors  [][]float64
}

// New creates an empty index over the given embedder.
func New(embedder Embedder) *Index {
	return &Index{embedder: embedder}
}

// Add embeds and indexes the given chunks. All chunks are embedded before
// any is published, so a failed call adds nothing.
func (ix *Index) Add(chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	vectors := make([][]float64, len(chunks))
	for i, c := range chunks {
		vec, err := ix.embedder.Embed(c.Text)
		if err != nil {
			return fmt.Errorf("embed chunk %d of %s: %w", c.Ordinal, c.Source, err)
		}
		vectors[i] = vec
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.chunks = append(ix.chunks, chunks...)
	ix.vectors = append(ix.vectors, vectors...)
	return nil
}

// Search returns up to k chunks ordered by relevance score descending.
// The result set may be empty.
func (ix *Index) Search(query string, k int) ([]SearchResult, error) {
	if k <= 0 {
		k = 10
	}
	qvec, err := ix.embedder.Embed(query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	results := make([]SearchResult, 0, len(ix.chunks))
	for i := range ix.vectors {
		score := dot(ix.vectors[i], qvec)
		if score <= 0 {
			continue
		}
		results = append(results, SearchResult{Chunk: ix.chunks[i], Score: score})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.chunks)
}

// Reset drops every indexed chunk in one swap.
func (ix *Index) Reset() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.chunks = nil
	ix.vectors = nil
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
