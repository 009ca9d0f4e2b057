// Package index provides an in-memory similarity index over text chunks.
//
// An index reflects exactly one ingestion batch. It is never merged or
// updated in place: a new batch builds a new index that replaces the old
// one wholesale.
package index

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/raphaelgruber/ragweb/internal/models"
)

// DefaultK is the number of chunks retrieved per query unless overridden.
const DefaultK = 3

// Embedder is the slice of the embedding provider the index depends on.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Result is one retrieved chunk with its similarity score.
type Result struct {
	Chunk models.Chunk
	Score float64
}

type entry struct {
	chunk  models.Chunk
	vector []float32
}

// Index answers k-nearest-neighbor queries over embedded chunks.
type Index struct {
	embedder Embedder
	entries  []entry
}

// Build embeds all chunks in one batch call and constructs an index over
// them. An empty chunk list yields no index and no error.
func Build(ctx context.Context, embedder Embedder, chunks []models.Chunk) (*Index, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}

	entries := make([]entry, len(chunks))
	for i := range chunks {
		entries[i] = entry{chunk: chunks[i], vector: vectors[i]}
	}
	return &Index{embedder: embedder, entries: entries}, nil
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Query embeds the query text and returns the k most similar chunks,
// ranked by cosine similarity. k is clamped to the number of available
// chunks; k <= 0 uses DefaultK.
func (ix *Index) Query(ctx context.Context, query string, k int) ([]Result, error) {
	if k <= 0 {
		k = DefaultK
	}
	if k > len(ix.entries) {
		k = len(ix.entries)
	}

	qv, err := ix.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results := make([]Result, len(ix.entries))
	for i, e := range ix.entries {
		results[i] = Result{Chunk: e.chunk, Score: cosine(qv, e.vector)}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results[:k], nil
}

// cosine computes cosine similarity. Mismatched or zero vectors score 0.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
