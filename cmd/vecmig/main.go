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


package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	vecmig "github.com/semaphoric/vecmig"
	"github.com/semaphoric/vecmig/ai"
	vcache "github.com/semaphoric/vecmig/cache"
	"github.com/semaphoric/vecmig/checkpoint"
	"github.com/semaphoric/vecmig/migrate"
	"github.com/semaphoric/vecmig/search"
	"github.com/semaphoric/vecmig/storage/badger"
)

func main() {
	app := &cli.App{
		Name:   "vecmig",
		Usage:  "Migrate relational content into a vector store and search it",
		Before: setup,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Create the vector store schema",
				Action: initCommand,
				Flags:  connectionFlags(),
			},
			{
				Name:   "migrate",
				Usage:  "Migrate source tables into the vector store",
				Action: migrateCommand,
				Flags: append(connectionFlags(),
					&cli.StringFlag{
						Name:     "specs",
						Aliases:  []string{"s"},
						Usage:    "Path to the JSON file describing source tables",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:    "table",
						Aliases: []string{"t"},
						Usage:   "Migrate only these tables (default: all spec'd tables)",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of source rows fetched per page",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent records per batch",
						Value: 10,
					},
					&cli.IntFlag{
						Name:  "min-content-length",
						Usage: "Skip records with less normalized content than this",
						Value: 16,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for storage writes",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
					&cli.DurationFlag{
						Name:  "batch-delay",
						Usage: "Pause between batches to throttle provider load",
						Value: 200 * time.Millisecond,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N records",
						Value: 100,
					},
					&cli.Float64Flag{
						Name:  "cost-per-1k",
						Usage: "Estimated provider cost per 1000 tokens",
						Value: 0.0001,
					},
				),
			},
			{
				Name:      "search",
				Usage:     "Search migrated documents by semantic similarity",
				ArgsUsage: "<query text>",
				Action:    searchCommand,
				Flags: append(connectionFlags(),
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of results",
						Value:   10,
					},
					&cli.Float64Flag{
						Name:  "min-similarity",
						Usage: "Discard results below this cosine similarity",
					},
					&cli.StringSliceFlag{
						Name:    "table",
						Aliases: []string{"t"},
						Usage:   "Restrict results to these source tables",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print results as JSON",
					},
				),
			},
			{
				Name:   "status",
				Usage:  "Show checkpointed migration progress",
				Action: statusCommand,
				Flags: []cli.Flag{
					checkpointFlag(),
				},
			},
			{
				Name:   "clean-cache",
				Usage:  "Delete cached embeddings that have not been used recently",
				Action: cleanCacheCommand,
				Flags: []cli.Flag{
					cacheDirFlag(),
					&cli.DurationFlag{
						Name:  "older-than",
						Usage: "Delete entries unused for longer than this",
						Value: 30 * 24 * time.Hour,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func connectionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "source-url",
			Usage:   "Source database connection string (defaults to vector-url)",
			EnvVars: []string{"VECMIG_SOURCE_URL"},
		},
		&cli.StringFlag{
			Name:     "vector-url",
			Usage:    "Vector store connection string",
			EnvVars:  []string{"VECMIG_VECTOR_URL", "DATABASE_URL"},
			Required: true,
		},
		cacheDirFlag(),
		checkpointFlag(),
		&cli.StringFlag{
			Name:    "embedding-host",
			Usage:   "Embedding service host URL",
			EnvVars: []string{"VECMIG_EMBEDDING_HOST"},
			Value:   "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Embedding model name",
			EnvVars: []string{"VECMIG_EMBEDDING_MODEL"},
			Value:   "embeddinggemma",
		},
		&cli.StringFlag{
			Name:    "embedding-token",
			Usage:   "Embedding service API token",
			EnvVars: []string{"VECMIG_EMBEDDING_TOKEN"},
		},
		&cli.IntFlag{
			Name:    "embedding-dimension",
			Usage:   "Embedding vector dimension",
			EnvVars: []string{"VECMIG_EMBEDDING_DIMENSION"},
			Value:   768,
		},
		&cli.BoolFlag{
			Name:  "allow-placeholder",
			Usage: "Write tagged placeholder vectors when the provider is down",
		},
	}
}

func cacheDirFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "cache-dir",
		Usage:   "Directory for the durable embedding cache (empty: in-process only)",
		EnvVars: []string{"VECMIG_CACHE_DIR"},
	}
}

func checkpointFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "checkpoint",
		Usage:   "Path to the checkpoint file",
		EnvVars: []string{"VECMIG_CHECKPOINT"},
		Value:   ".vecmig-checkpoint.json",
	}
}

func newEngine(ctx context.Context, c *cli.Context) (*vecmig.Engine, error) {
	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("embedding-host")),
		ai.WithModel(c.String("embedding-model")),
		ai.WithToken(c.String("embedding-token")),
		ai.WithDimension(c.Int("embedding-dimension")),
		ai.WithPlaceholderFallback(c.Bool("allow-placeholder")),
	)
	aiConfig.Normalize()
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid embedding configuration: %w", err)
	}

	return vecmig.NewEngine(ctx,
		c.String("source-url"),
		c.String("vector-url"),
		c.String("cache-dir"),
		c.String("checkpoint"),
		vecmig.WithAIConfig(aiConfig),
	)
}

func initCommand(c *cli.Context) error {
	ctx := c.Context

	engine, err := newEngine(ctx, c)
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.Init(ctx); err != nil {
		return fmt.Errorf("schema initialization failed: %w", err)
	}

	fmt.Fprintln(os.Stderr, "vector store schema ready")
	return nil
}

func migrateCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	specs, err := migrate.LoadSpecs(c.String("specs"))
	if err != nil {
		return err
	}
	specs, err = migrate.FilterSpecs(specs, c.StringSlice("table"))
	if err != nil {
		return err
	}

	engine, err := newEngine(ctx, c)
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.Init(ctx); err != nil {
		return fmt.Errorf("schema initialization failed: %w", err)
	}

	migrator, err := engine.NewMigrator(migrate.Config{
		BatchSize:        c.Int("batch-size"),
		Workers:          c.Int("workers"),
		MinContentLength: c.Int("min-content-length"),
		MaxRetries:       c.Int("max-retries"),
		RetryDelay:       c.Duration("retry-delay"),
		BatchDelay:       c.Duration("batch-delay"),
		ReportInterval:   c.Int("report-interval"),
		CostPer1KTokens:  c.Float64("cost-per-1k"),
	})
	if err != nil {
		return err
	}
	defer migrator.Release()

	_, err = migrator.Run(ctx, specs)
	if errors.Is(err, migrate.ErrInterrupted) {
		// The checkpoint is saved; the next run resumes where this one stopped.
		fmt.Fprintln(os.Stderr, "\ninterrupted, checkpoint saved")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	ctx := c.Context

	queryText := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if queryText == "" {
		return fmt.Errorf("query text is required")
	}

	engine, err := newEngine(ctx, c)
	if err != nil {
		return err
	}
	defer engine.Close()

	searcher, err := engine.NewSearcher()
	if err != nil {
		return err
	}

	results, err := searcher.Search(ctx, search.Query{
		Text:          queryText,
		Limit:         c.Int("limit"),
		MinSimilarity: float32(c.Float64("min-similarity")),
		Tables:        c.StringSlice("table"),
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if c.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("no results")
		return nil
	}

	for i, r := range results {
		doc := r.Document
		fmt.Printf("%d. [%.4f] %s/%s", i+1, r.Similarity, doc.SourceTable, doc.SourceID)
		if doc.TotalChunks > 1 {
			fmt.Printf(" (chunk %d/%d)", doc.ChunkIndex+1, doc.TotalChunks)
		}
		fmt.Println()
		if doc.Title != "" {
			fmt.Printf("   %s\n", doc.Title)
		}
		fmt.Printf("   %s\n\n", excerpt(doc.Content, 200))
	}
	return nil
}

func statusCommand(c *cli.Context) error {
	store := checkpoint.NewStore(c.String("checkpoint"))
	if !store.Exists() {
		fmt.Println("no checkpoint: nothing in progress")
		return nil
	}

	state := store.Load()
	fmt.Printf("checkpoint updated %s\n\n", state.UpdatedAt.Format(time.RFC3339))
	for name, prog := range state.Tables {
		fmt.Printf("%s: %d/%d (%.1f%%) migrated=%d failed=%d skipped=%d alreadyExists=%d\n",
			name, prog.Processed, prog.Total, prog.Percent(),
			prog.Migrated, prog.Failed, prog.Skipped, prog.AlreadyExists)
	}
	fmt.Printf("\ntokens used: %d (estimated cost $%.4f)\n",
		state.Stats.TokensUsed, state.Stats.EstimatedCost)
	return nil
}

func cleanCacheCommand(c *cli.Context) error {
	dir := c.String("cache-dir")
	if dir == "" {
		return fmt.Errorf("cache-dir is required")
	}

	backend, err := badger.OpenBackend(dir, false)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer backend.Close()

	embeddingCache := vcache.New(badger.NewCacheRepository(backend))
	deleted, err := embeddingCache.CleanOlderThan(c.Context, c.Duration("older-than"))
	if err != nil {
		return fmt.Errorf("cache cleanup failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "deleted %d cache entries\n", deleted)
	return nil
}

func excerpt(text string, max int) string {
	if len(text) <= max {
		return text
	}
	cut := strings.LastIndex(text[:max], " ")
	if cut <= 0 {
		cut = max
	}
	return text[:cut] + "..."
}

func setup(c *cli.Context) error {
	// A .env file is optional; flags and real env vars win.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "err", err)
	}

	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
