package search

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semaphoric/vecmig/ai"
	"github.com/semaphoric/vecmig/ai/mock"
	"github.com/semaphoric/vecmig/cache"
	"github.com/semaphoric/vecmig/chunk"
	"github.com/semaphoric/vecmig/core"
)

// fakeVectors ranks stored documents by cosine similarity in memory,
// mirroring the SQL path of the real store.
type fakeVectors struct {
	docs      []*core.VectorDocument
	searchErr error
}

func (f *fakeVectors) Upsert(ctx context.Context, doc *core.VectorDocument) error {
	f.docs = append(f.docs, doc)
	return nil
}

func (f *fakeVectors) UpsertBatch(ctx context.Context, docs []*core.VectorDocument) error {
	f.docs = append(f.docs, docs...)
	return nil
}

func (f *fakeVectors) Exists(ctx context.Context, sourceTable, sourceID string, chunkIndex int, model string) (bool, error) {
	return false, nil
}

func (f *fakeVectors) Search(ctx context.Context, vector []float32, limit int, minSimilarity float32, tables []string) ([]*core.ScoredDocument, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}

	allowed := make(map[string]bool, len(tables))
	for _, t := range tables {
		allowed[t] = true
	}

	var scored []*core.ScoredDocument
	for _, doc := range f.docs {
		if len(allowed) > 0 && !allowed[doc.SourceTable] {
			continue
		}
		sim := core.CosineSimilarity(vector, doc.Vector)
		if minSimilarity > 0 && sim < minSimilarity {
			continue
		}
		scored = append(scored, &core.ScoredDocument{Document: doc, Similarity: sim})
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func (f *fakeVectors) Close() error { return nil }

func doc(table, id string, vector []float32) *core.VectorDocument {
	return &core.VectorDocument{
		SourceTable:    table,
		SourceID:       id,
		TotalChunks:    1,
		Content:        "content of " + id,
		Vector:         vector,
		EmbeddingModel: "mock-embedder",
	}
}

// fixedVector builds an embed stub that always returns the given vector so
// similarities against the stored vectors are known analytically.
func fixedVector(vector []float32) func(ctx context.Context, text string) (*ai.Embedding, error) {
	return func(ctx context.Context, text string) (*ai.Embedding, error) {
		return &ai.Embedding{Vector: vector, Tokens: 1, Model: "mock-embedder"}, nil
	}
}

func TestSearcher_RanksBySimilarity(t *testing.T) {
	vectors := &fakeVectors{}
	// Query embeds to (1, 0); stored vectors have known cosine similarity:
	// exact match 1.0, 45 degrees ~0.707, orthogonal 0.0.
	vectors.docs = []*core.VectorDocument{
		doc("articles", "orthogonal", []float32{0, 1}),
		doc("articles", "diagonal", []float32{0.7071, 0.7071}),
		doc("articles", "exact", []float32{1, 0}),
	}

	embedder := mock.NewEmbedder()
	embedder.EmbedTextFunc = fixedVector([]float32{1, 0})

	s, err := NewSearcher(vectors, embedder)
	require.NoError(t, err)

	results, err := s.Search(context.Background(), Query{Text: "find me"})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "exact", results[0].Document.SourceID)
	assert.Equal(t, "diagonal", results[1].Document.SourceID)
	assert.Equal(t, "orthogonal", results[2].Document.SourceID)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-4)
	assert.InDelta(t, 0.7071, results[1].Similarity, 1e-3)
	assert.InDelta(t, 0.0, results[2].Similarity, 1e-4)
}

func TestSearcher_MinSimilarity(t *testing.T) {
	vectors := &fakeVectors{docs: []*core.VectorDocument{
		doc("articles", "orthogonal", []float32{0, 1}),
		doc("articles", "exact", []float32{1, 0}),
	}}

	embedder := mock.NewEmbedder()
	embedder.EmbedTextFunc = fixedVector([]float32{1, 0})

	s, err := NewSearcher(vectors, embedder)
	require.NoError(t, err)

	results, err := s.Search(context.Background(), Query{Text: "find me", MinSimilarity: 0.5})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "exact", results[0].Document.SourceID)
}

func TestSearcher_ZeroThresholdKeepsNegativeScores(t *testing.T) {
	vectors := &fakeVectors{docs: []*core.VectorDocument{
		doc("articles", "opposite", []float32{-1, 0}),
		doc("articles", "exact", []float32{1, 0}),
	}}

	embedder := mock.NewEmbedder()
	embedder.EmbedTextFunc = fixedVector([]float32{1, 0})

	s, err := NewSearcher(vectors, embedder)
	require.NoError(t, err)

	// With no threshold set, anti-correlated documents still come back.
	results, err := s.Search(context.Background(), Query{Text: "find me"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "opposite", results[1].Document.SourceID)
	assert.InDelta(t, -1.0, results[1].Similarity, 1e-4)
}

func TestSearcher_Limit(t *testing.T) {
	vectors := &fakeVectors{docs: []*core.VectorDocument{
		doc("articles", "a", []float32{1, 0}),
		doc("articles", "b", []float32{0.9, 0.1}),
		doc("articles", "c", []float32{0.8, 0.2}),
	}}

	embedder := mock.NewEmbedder()
	embedder.EmbedTextFunc = fixedVector([]float32{1, 0})

	s, err := NewSearcher(vectors, embedder)
	require.NoError(t, err)

	results, err := s.Search(context.Background(), Query{Text: "find me", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearcher_TableFilter(t *testing.T) {
	vectors := &fakeVectors{docs: []*core.VectorDocument{
		doc("articles", "a", []float32{1, 0}),
		doc("comments", "b", []float32{1, 0}),
	}}

	embedder := mock.NewEmbedder()
	embedder.EmbedTextFunc = fixedVector([]float32{1, 0})

	s, err := NewSearcher(vectors, embedder)
	require.NoError(t, err)

	results, err := s.Search(context.Background(), Query{Text: "find me", Tables: []string{"comments"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "comments", results[0].Document.SourceTable)
}

func TestSearcher_EmptyQuery(t *testing.T) {
	s, err := NewSearcher(&fakeVectors{}, mock.NewEmbedder())
	require.NoError(t, err)

	_, err = s.Search(context.Background(), Query{})
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSearcher_RequiresDependencies(t *testing.T) {
	_, err := NewSearcher(nil, mock.NewEmbedder())
	assert.ErrorIs(t, err, ErrVectorRepositoryRequired)

	_, err = NewSearcher(&fakeVectors{}, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestSearcher_CacheIsReadOnly(t *testing.T) {
	vectors := &fakeVectors{docs: []*core.VectorDocument{
		doc("articles", "a", []float32{1, 0}),
	}}

	text := "cached query"
	hash := core.HashContent(chunk.Normalize(text))

	c := cache.New(nil)
	require.NoError(t, c.Set(context.Background(), &core.CacheEntry{
		ContentHash: hash,
		Vector:      []float32{1, 0},
	}))

	embedder := mock.NewEmbedder()
	s, err := NewSearcher(vectors, embedder, WithCache(c))
	require.NoError(t, err)

	// Cached query text never reaches the provider.
	_, err = s.Search(context.Background(), Query{Text: text})
	require.NoError(t, err)
	assert.Equal(t, 0, embedder.CallCount())

	// Uncached query text does, and is not written back.
	_, err = s.Search(context.Background(), Query{Text: "novel query"})
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.CallCount())
	assert.Equal(t, 1, c.Len())
}
