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


package migrate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/semaphoric/vecmig/ai"
	"github.com/semaphoric/vecmig/cache"
	"github.com/semaphoric/vecmig/checkpoint"
	"github.com/semaphoric/vecmig/chunk"
	"github.com/semaphoric/vecmig/core"
	"github.com/semaphoric/vecmig/storage"
)

// Migrator moves records from relational source tables into the vector
// store: extract, chunk, embed (through the cache), upsert. Progress is
// checkpointed after every batch so an interrupted run resumes where it
// stopped instead of starting over.
type Migrator struct {
	config      Config
	source      storage.SourceRepository
	vectors     storage.VectorRepository
	embedder    ai.Embedder
	cache       *cache.Cache
	checkpoints *checkpoint.Store
	pool        *ants.Pool
	progressOut io.Writer
	logger      *slog.Logger
}

// Option configures a Migrator.
type Option func(*Migrator) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Migrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		m.logger = logger
		return nil
	}
}

// WithProgressWriter sets where per-table progress lines are written.
// Default is os.Stderr.
func WithProgressWriter(w io.Writer) Option {
	return func(m *Migrator) error {
		if w == nil {
			w = io.Discard
		}
		m.progressOut = w
		return nil
	}
}

// NewMigrator creates a new migrator.
func NewMigrator(
	source storage.SourceRepository,
	vectors storage.VectorRepository,
	embedder ai.Embedder,
	embeddingCache *cache.Cache,
	checkpoints *checkpoint.Store,
	config Config,
	opts ...Option,
) (*Migrator, error) {
	if source == nil {
		return nil, ErrSourceRepositoryRequired
	}
	if vectors == nil {
		return nil, ErrVectorRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if embeddingCache == nil {
		return nil, ErrCacheRequired
	}
	if checkpoints == nil {
		return nil, ErrCheckpointStoreRequired
	}

	config.normalize()

	pool, err := ants.NewPool(config.Workers)
	if err != nil {
		return nil, err
	}

	m := &Migrator{
		config:      config,
		source:      source,
		vectors:     vectors,
		embedder:    embedder,
		cache:       embeddingCache,
		checkpoints: checkpoints,
		pool:        pool,
		progressOut: os.Stderr,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(m); optErr != nil {
			m.Release()
			return nil, optErr
		}
	}

	return m, nil
}

// Run migrates every spec'd table in order. The checkpoint is saved after
// each batch and once more on exit, so a canceled run loses at most one
// batch of bookkeeping (the vector writes themselves are idempotent and
// re-runs classify them as already existing).
//
// Returns ErrInterrupted when the context is canceled; the returned state
// is valid in every case and reflects all work that was accounted.
func (m *Migrator) Run(ctx context.Context, specs []core.SourceSpec) (*checkpoint.State, error) {
	if len(specs) == 0 {
		return nil, ErrNoSpecs
	}

	state := m.checkpoints.Load()
	start := time.Now()

	var tableFailures int
	for _, spec := range specs {
		err := m.runTable(ctx, spec, state)
		if errors.Is(err, ErrInterrupted) {
			if saveErr := m.checkpoints.Save(state); saveErr != nil {
				m.logger.Error("failed to save checkpoint on interrupt", "err", saveErr)
			}
			m.logSummary(state, time.Since(start))
			return state, ErrInterrupted
		}
		if err != nil {
			// Table-local failure: log and move on to the next table.
			m.logger.Error("table migration failed", "table", spec.Table, "err", err)
			tableFailures++
		}
	}

	if err := m.checkpoints.Save(state); err != nil {
		m.logger.Error("failed to save checkpoint", "err", err)
	}

	if tableFailures == 0 && state.AllComplete() {
		if err := m.checkpoints.Clear(); err != nil {
			m.logger.Warn("failed to clear checkpoint", "err", err)
		}
	}

	m.logSummary(state, time.Since(start))
	return state, nil
}

// Release releases the worker pool.
// The migrator should not be used after calling Release.
func (m *Migrator) Release() {
	if m.pool != nil {
		m.pool.Release()
	}
}

func (m *Migrator) runTable(ctx context.Context, spec core.SourceSpec, state *checkpoint.State) error {
	prog := state.Table(spec.Table)

	total, err := m.source.Count(ctx, spec)
	if err != nil {
		return fmt.Errorf("failed to count %s: %w", spec.Table, err)
	}
	prog.Total = total

	if prog.Complete() {
		m.logger.Info("table already migrated", "table", spec.Table, "total", prog.Total)
		return nil
	}

	m.logger.Info("migrating table",
		"table", spec.Table,
		"total", prog.Total,
		"resumeAt", prog.Processed)

	tracker := NewProgressTracker(m.progressOut, spec.Table, prog.Total, m.config.ReportInterval)
	tracker.Start(prog.Processed)

	for prog.Processed < prog.Total {
		if ctx.Err() != nil {
			return ErrInterrupted
		}

		records, err := m.source.FetchPage(ctx, spec, prog.Processed, m.config.BatchSize)
		if err != nil {
			return fmt.Errorf("failed to fetch page at offset %d: %w", prog.Processed, err)
		}
		if len(records) == 0 {
			break
		}

		batch := m.processBatch(ctx, records, spec)
		if ctx.Err() != nil {
			// A canceled batch is not accounted. Its completed upserts are
			// idempotent and resurface as alreadyExists on resume.
			return ErrInterrupted
		}

		prog.Processed += len(records)
		prog.Migrated += batch.migrated
		prog.Failed += batch.failed
		prog.Skipped += batch.skipped
		prog.AlreadyExists += batch.alreadyExists

		state.Stats.TotalMigrated += batch.migrated
		state.Stats.TotalFailed += batch.failed
		state.Stats.TotalSkipped += batch.skipped
		state.Stats.TotalAlreadyExists += batch.alreadyExists
		state.Stats.TokensUsed += batch.tokens
		state.Stats.EstimatedCost += float64(batch.tokens) / 1000.0 * m.config.CostPer1KTokens

		if err := m.checkpoints.Save(state); err != nil {
			m.logger.Warn("failed to save checkpoint", "table", spec.Table, "err", err)
		}

		tracker.Increment(len(records))

		if prog.Processed < prog.Total {
			if err := sleepCtx(ctx, m.config.BatchDelay); err != nil {
				return ErrInterrupted
			}
		}
	}

	tracker.Finish()
	m.logger.Info("table migration finished",
		"table", spec.Table,
		"migrated", prog.Migrated,
		"failed", prog.Failed,
		"skipped", prog.Skipped,
		"alreadyExists", prog.AlreadyExists,
		"elapsed", tracker.Elapsed())
	return nil
}

// batchResult accumulates per-record outcomes for one batch. Counters are
// merged into the checkpoint only after the whole batch completes.
type batchResult struct {
	mu            sync.Mutex
	migrated      int
	failed        int
	skipped       int
	alreadyExists int
	tokens        int
}

func (r *batchResult) add(out outcome, tokens int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch out {
	case outcomeMigrated:
		r.migrated++
	case outcomeFailed:
		r.failed++
	case outcomeSkipped:
		r.skipped++
	case outcomeAlreadyExists:
		r.alreadyExists++
	}
	r.tokens += tokens
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeAlreadyExists
	outcomeMigrated
	outcomeFailed
)

func (m *Migrator) processBatch(ctx context.Context, records []*core.SourceRecord, spec core.SourceSpec) *batchResult {
	res := &batchResult{}

	var wg sync.WaitGroup
	for _, record := range records {
		record := record
		wg.Add(1)
		err := m.pool.Submit(func() {
			defer wg.Done()
			out, tokens := m.processRecord(ctx, record, spec)
			res.add(out, tokens)
		})
		if err != nil {
			wg.Done()
			m.logger.Error("failed to submit record", "table", spec.Table, "id", record.ID, "err", err)
			res.add(outcomeFailed, 0)
		}
	}
	wg.Wait()

	return res
}

// processRecord runs the full pipeline for one source record. A record
// with any failed chunk counts as failed; otherwise any newly written
// chunk makes it migrated; otherwise any deduplicated chunk makes it
// alreadyExists. Failures never propagate past the record.
func (m *Migrator) processRecord(ctx context.Context, record *core.SourceRecord, spec core.SourceSpec) (outcome, int) {
	content := extractContent(*record, spec)
	if len(content) < m.config.MinContentLength {
		return outcomeSkipped, 0
	}

	title := extractTitle(*record, spec)
	metadata := extractMetadata(*record, spec)
	chunks := chunk.Build(spec.Table, record.ID, title, content, metadata, spec.ChunkSize)

	var migrated, existing, tokens int
	for _, c := range chunks {
		exists, err := m.vectors.Exists(ctx, c.SourceTable, c.SourceID, c.Index, m.embedder.Model())
		if err != nil {
			m.logger.Error("existence check failed",
				"table", c.SourceTable, "id", c.SourceID, "chunk", c.Index, "err", err)
			return outcomeFailed, tokens
		}
		if exists {
			existing++
			continue
		}

		emb, used, err := m.embedChunk(ctx, c)
		tokens += used
		if err != nil {
			m.logger.Error("embedding failed",
				"table", c.SourceTable, "id", c.SourceID, "chunk", c.Index, "err", err)
			return outcomeFailed, tokens
		}

		doc := &core.VectorDocument{
			SourceTable:    c.SourceTable,
			SourceID:       c.SourceID,
			ChunkIndex:     c.Index,
			TotalChunks:    c.Total,
			Title:          c.Title,
			Content:        c.Text,
			Metadata:       c.Metadata,
			Vector:         emb.Vector,
			EmbeddingModel: emb.Model,
		}

		err = RetryWithBackoff(ctx, func() error {
			return m.vectors.Upsert(ctx, doc)
		}, m.config.MaxRetries, m.config.RetryDelay)
		if err != nil {
			m.logger.Error("vector upsert failed",
				"table", c.SourceTable, "id", c.SourceID, "chunk", c.Index, "err", err)
			return outcomeFailed, tokens
		}
		migrated++
	}

	switch {
	case migrated > 0:
		return outcomeMigrated, tokens
	case existing > 0:
		return outcomeAlreadyExists, tokens
	default:
		return outcomeSkipped, tokens
	}
}

// embedChunk resolves a chunk's vector through the cache, calling the
// provider only on a full miss. Placeholder vectors are never cached.
func (m *Migrator) embedChunk(ctx context.Context, c core.Chunk) (*ai.Embedding, int, error) {
	entry, err := m.cache.Get(ctx, c.ContentHash)
	if err != nil {
		m.logger.Warn("cache lookup failed", "hash", c.ContentHash, "err", err)
	} else if entry != nil {
		return &ai.Embedding{Vector: entry.Vector, Model: m.embedder.Model()}, 0, nil
	}

	emb, err := m.embedder.EmbedText(ctx, c.Text)
	if err != nil {
		return nil, 0, err
	}

	if emb.Model != ai.PlaceholderModel {
		cacheErr := m.cache.Set(ctx, &core.CacheEntry{
			ContentHash: c.ContentHash,
			Vector:      emb.Vector,
			TokenCount:  emb.Tokens,
		})
		if cacheErr != nil {
			m.logger.Warn("cache store failed", "hash", c.ContentHash, "err", cacheErr)
		}
	}

	return emb, emb.Tokens, nil
}

func (m *Migrator) logSummary(state *checkpoint.State, elapsed time.Duration) {
	m.logger.Info("migration summary",
		"tables", len(state.Tables),
		"migrated", state.Stats.TotalMigrated,
		"failed", state.Stats.TotalFailed,
		"skipped", state.Stats.TotalSkipped,
		"alreadyExists", state.Stats.TotalAlreadyExists,
		"tokens", state.Stats.TokensUsed,
		"estimatedCost", fmt.Sprintf("$%.4f", state.Stats.EstimatedCost),
		"elapsed", elapsed.Round(time.Millisecond))
}
