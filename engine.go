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


package vecmig

import (
	"context"
	"log/slog"

	"github.com/semaphoric/vecmig/ai"
	"github.com/semaphoric/vecmig/ai/openai"
	"github.com/semaphoric/vecmig/cache"
	"github.com/semaphoric/vecmig/checkpoint"
	"github.com/semaphoric/vecmig/core"
	"github.com/semaphoric/vecmig/migrate"
	"github.com/semaphoric/vecmig/search"
	"github.com/semaphoric/vecmig/storage/badger"
	"github.com/semaphoric/vecmig/storage/postgres"
)

// Engine wires the source database, vector store, embedding provider,
// tiered cache and checkpoint store into one handle the CLI drives.
type Engine struct {
	sourceStore    *postgres.Store
	vectorStore    *postgres.Store
	cacheBackend   *badger.Backend
	embeddingCache *cache.Cache
	embedder       ai.Embedder
	checkpoints    *checkpoint.Store
	logger         *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	aiConfig *ai.Config
	logger   *slog.Logger
}

// WithAIConfig sets the embedding provider configuration.
// Default is ai.DefaultConfig().
func WithAIConfig(config *ai.Config) EngineOption {
	return func(o *engineOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewEngine connects to the source and vector databases, opens the durable
// cache tier and constructs the embedding client. When sourceURL and
// vectorURL are the same the connection pool is shared.
//
// cacheDir may be empty for an in-process-only cache, checkpointPath names
// the JSON file that carries run state across interruptions.
func NewEngine(ctx context.Context, sourceURL, vectorURL, cacheDir, checkpointPath string, opts ...EngineOption) (*Engine, error) {
	options := &engineOptions{
		aiConfig: ai.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	embedder, err := openai.NewEmbedder(options.aiConfig)
	if err != nil {
		return nil, err
	}

	vectorStore, err := postgres.New(ctx, vectorURL, options.aiConfig.Dimension)
	if err != nil {
		return nil, err
	}

	sourceStore := vectorStore
	if sourceURL != "" && sourceURL != vectorURL {
		sourceStore, err = postgres.New(ctx, sourceURL, options.aiConfig.Dimension)
		if err != nil {
			vectorStore.Close()
			return nil, err
		}
	}

	var backend *badger.Backend
	cacheOpts := []cache.Option{cache.WithLogger(options.logger)}
	embeddingCache := cache.New(nil, cacheOpts...)
	if cacheDir != "" {
		backend, err = badger.OpenBackend(cacheDir, false)
		if err != nil {
			if sourceStore != vectorStore {
				sourceStore.Close()
			}
			vectorStore.Close()
			return nil, err
		}
		embeddingCache = cache.New(badger.NewCacheRepository(backend), cacheOpts...)
	}

	return &Engine{
		sourceStore:    sourceStore,
		vectorStore:    vectorStore,
		cacheBackend:   backend,
		embeddingCache: embeddingCache,
		embedder:       embedder,
		checkpoints:    checkpoint.NewStore(checkpointPath),
		logger:         options.logger,
	}, nil
}

// Init creates the vector store schema. Idempotent.
func (e *Engine) Init(ctx context.Context) error {
	return e.vectorStore.Init(ctx)
}

// NewMigrator builds a migrator over the engine's wiring.
func (e *Engine) NewMigrator(config migrate.Config, opts ...migrate.Option) (*migrate.Migrator, error) {
	opts = append([]migrate.Option{migrate.WithLogger(e.logger)}, opts...)
	return migrate.NewMigrator(e.sourceStore, e.vectorStore, e.embedder, e.embeddingCache, e.checkpoints, config, opts...)
}

// NewSearcher builds a searcher over the engine's wiring.
func (e *Engine) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	opts = append([]search.Option{
		search.WithCache(e.embeddingCache),
		search.WithLogger(e.logger),
	}, opts...)
	return search.NewSearcher(e.vectorStore, e.embedder, opts...)
}

// Cache returns the tiered embedding cache.
func (e *Engine) Cache() *cache.Cache {
	return e.embeddingCache
}

// Snapshot returns the checkpointed progress of the current or last run,
// or nil when no checkpoint exists.
func (e *Engine) Snapshot() *Snapshot {
	if !e.checkpoints.Exists() {
		return nil
	}

	state := e.checkpoints.Load()
	snap := &Snapshot{
		Tables:    make(map[string]core.TableProgress, len(state.Tables)),
		Stats:     state.Stats,
		UpdatedAt: state.UpdatedAt,
	}
	for name, prog := range state.Tables {
		snap.Tables[name] = *prog
	}
	return snap
}

// Close releases all connections and the cache backend.
func (e *Engine) Close() error {
	if e.sourceStore != e.vectorStore {
		if err := e.sourceStore.Close(); err != nil {
			e.logger.Error("error closing source store", "err", err)
		}
	}
	if err := e.vectorStore.Close(); err != nil {
		e.logger.Error("error closing vector store", "err", err)
	}
	if e.cacheBackend != nil {
		if err := e.cacheBackend.Close(); err != nil {
			e.logger.Error("error closing cache backend", "err", err)
			return err
		}
	}
	return nil
}
