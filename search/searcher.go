// Copyright 2025 Semaphoric Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package search

import (
	"context"
	"log/slog"

	"github.com/semaphoric/vecmig/ai"
	"github.com/semaphoric/vecmig/cache"
	"github.com/semaphoric/vecmig/chunk"
	"github.com/semaphoric/vecmig/core"
	"github.com/semaphoric/vecmig/storage"
)

// DefaultLimit is the number of results returned when the query does not
// set one.
const DefaultLimit = 10

// Query describes one similarity search.
type Query struct {
	// Text is embedded and compared against stored vectors.
	Text string

	// Limit caps the number of results. Zero means DefaultLimit.
	Limit int

	// MinSimilarity discards results scoring below it when positive. Zero
	// disables the threshold entirely, keeping even anti-correlated hits.
	MinSimilarity float32

	// Tables restricts results to these source tables. Empty means all.
	Tables []string
}

// Searcher embeds query text and runs cosine similarity search against the
// vector store. Query embeddings are read through the migration cache when
// one is attached, but never written back: query text is arbitrary and would
// crowd out the corpus entries the cache exists for.
type Searcher struct {
	vectors  storage.VectorRepository
	embedder ai.Embedder
	cache    *cache.Cache
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithCache attaches an embedding cache for query lookups.
func WithCache(c *cache.Cache) Option {
	return func(s *Searcher) {
		s.cache = c
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(vectors storage.VectorRepository, embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if vectors == nil {
		return nil, ErrVectorRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		vectors:  vectors,
		embedder: embedder,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Search embeds the query text and returns the most similar documents in
// descending similarity order.
func (s *Searcher) Search(ctx context.Context, query Query) ([]*core.ScoredDocument, error) {
	if query.Text == "" {
		return nil, ErrEmptyQuery
	}
	if query.Limit <= 0 {
		query.Limit = DefaultLimit
	}

	vector, err := s.queryVector(ctx, query.Text)
	if err != nil {
		return nil, err
	}

	results, err := s.vectors.Search(ctx, vector, query.Limit, query.MinSimilarity, query.Tables)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("search complete",
		"limit", query.Limit,
		"minSimilarity", query.MinSimilarity,
		"results", len(results))
	return results, nil
}

// queryVector resolves the embedding for the query text, consulting the
// cache read-only when one is attached.
func (s *Searcher) queryVector(ctx context.Context, text string) ([]float32, error) {
	normalized := chunk.Normalize(text)

	if s.cache != nil {
		entry, err := s.cache.Get(ctx, core.HashContent(normalized))
		if err != nil {
			s.logger.Warn("cache lookup failed", "err", err)
		} else if entry != nil {
			return entry.Vector, nil
		}
	}

	emb, err := s.embedder.EmbedText(ctx, normalized)
	if err != nil {
		return nil, err
	}
	return emb.Vector, nil
}
