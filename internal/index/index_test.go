package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/ragweb/internal/models"
)

// fakeEmbedder maps known texts to fixed vectors so ranking is
// deterministic without a live embedding provider.
type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.EmbedQuery(context.Background(), t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func TestBuild_EmptyChunks(t *testing.T) {
	ix, err := Build(context.Background(), &fakeEmbedder{}, nil)
	require.NoError(t, err)
	assert.Nil(t, ix)
}

func TestQuery_RankedByCosineSimilarity(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"cats":      {1, 0, 0},
		"dogs":      {0, 1, 0},
		"kittens":   {0.9, 0.1, 0},
		"the query": {1, 0.05, 0},
	}}

	chunks := []models.Chunk{
		{Text: "dogs", URL: "https://a"},
		{Text: "cats", URL: "https://b"},
		{Text: "kittens", URL: "https://c"},
	}

	ix, err := Build(context.Background(), emb, chunks)
	require.NoError(t, err)
	require.Equal(t, 3, ix.Len())

	results, err := ix.Query(context.Background(), "the query", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "cats", results[0].Chunk.Text)
	assert.Equal(t, "kittens", results[1].Chunk.Text)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestQuery_KClampedToChunkCount(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{}}
	chunks := []models.Chunk{
		{Text: "only", URL: "https://solo", Title: "Solo"},
		{Text: "two", URL: "https://solo", Title: "Solo"},
	}

	ix, err := Build(context.Background(), emb, chunks)
	require.NoError(t, err)

	results, err := ix.Query(context.Background(), "anything", 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	// Every result carries the source document's metadata.
	for _, r := range results {
		assert.Equal(t, "https://solo", r.Chunk.URL)
		assert.Equal(t, "Solo", r.Chunk.Title)
	}
}

func TestQuery_DefaultK(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{}}
	var chunks []models.Chunk
	for i := 0; i < 5; i++ {
		chunks = append(chunks, models.Chunk{Text: "chunk", URL: "https://x"})
	}

	ix, err := Build(context.Background(), emb, chunks)
	require.NoError(t, err)

	results, err := ix.Query(context.Background(), "q", 0)
	require.NoError(t, err)
	assert.Len(t, results, DefaultK)
}
