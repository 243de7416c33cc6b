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


package openai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"github.com/semaphoric/vecmig/ai"
	"github.com/semaphoric/vecmig/core"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder implements ai.Embedder against OpenAI-compatible embedding APIs.
// Input is truncated to the provider limit, failed calls are retried with a
// rate-limit-aware backoff, and token usage is estimated per input.
type Embedder struct {
	config  *ai.Config
	embedFn func(ctx context.Context, texts []string) ([][]float32, error)
	encoder *tiktoken.Tiktoken
	logger  *slog.Logger
}

// newEmbedder is an internal constructor that returns the concrete type.
func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken(config.Token),
		openai.WithEmbeddingModel(config.Model),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	// The embeddings client does not surface provider usage counts, so token
	// consumption is estimated with the cl100k tokenizer.
	encoder, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}

	return &Embedder{
		config:  config,
		embedFn: embedder.EmbedDocuments,
		encoder: encoder,
		logger:  slog.Default().With("component", "openai-embedder"),
	}, nil
}

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// Model returns the configured embedding model identifier.
func (e *Embedder) Model() string {
	return e.config.Model
}

// EmbedText generates an embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) (*ai.Embedding, error) {
	results, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// EmbedTexts generates embeddings for multiple texts in one provider call.
// Oversized inputs are silently truncated. After all attempts are exhausted
// the error is returned unless the placeholder degraded mode is enabled, in
// which case deterministic vectors tagged ai.PlaceholderModel are returned.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([]*ai.Embedding, error) {
	truncated := make([]string, len(texts))
	for i, text := range texts {
		truncated[i] = truncate(text, e.config.MaxInputChars)
	}

	vectors, err := e.callWithRetry(ctx, truncated)
	if err != nil {
		if !e.config.AllowPlaceholder {
			return nil, err
		}

		e.logger.Warn("all provider attempts failed, writing placeholder vectors",
			"count", len(truncated), "err", err)
		results := make([]*ai.Embedding, len(truncated))
		for i, text := range truncated {
			results[i] = &ai.Embedding{
				Vector: placeholderVector(text, e.config.Dimension),
				Model:  ai.PlaceholderModel,
			}
		}
		return results, nil
	}

	if len(vectors) != len(truncated) {
		return nil, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(truncated), len(vectors))
	}

	results := make([]*ai.Embedding, len(vectors))
	for i, vec := range vectors {
		results[i] = &ai.Embedding{
			// Unit-length vectors keep cosine ordering stable in the store.
			Vector: core.NormalizeVector(vec),
			Tokens: e.countTokens(truncated[i]),
			Model:  e.config.Model,
		}
	}
	return results, nil
}

// callWithRetry attempts the provider call up to MaxAttempts times.
// Rate-limit signals wait RateLimitDelay scaled by the attempt number; other
// transient errors wait the fixed TransientDelay. Non-retryable errors
// surface immediately.
func (e *Embedder) callWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr *ai.ProviderError

	for attempt := 1; attempt <= e.config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		vectors, err := e.embedFn(ctx, texts)
		if err == nil {
			if attempt > 1 {
				e.logger.Debug("provider call succeeded after retry", "attempt", attempt)
			}
			return vectors, nil
		}

		lastErr = classifyError(err)
		if !lastErr.Transient {
			return nil, lastErr
		}

		if attempt == e.config.MaxAttempts {
			break
		}

		delay := e.config.TransientDelay
		if lastErr.RateLimited {
			delay = e.config.RateLimitDelay * time.Duration(attempt)
		}
		e.logger.Debug("provider call failed, will retry",
			"attempt", attempt, "maxAttempts", e.config.MaxAttempts,
			"rateLimited", lastErr.RateLimited, "delay", delay, "err", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return nil, fmt.Errorf("embedding failed after %d attempts: %w", e.config.MaxAttempts, lastErr)
}

// countTokens estimates the token count of one input text.
func (e *Embedder) countTokens(text string) int {
	if e.encoder == nil {
		// Rough heuristic used when no tokenizer is available.
		return (len(text) + 3) / 4
	}
	return len(e.encoder.Encode(text, nil, nil))
}

// truncate cuts text to at most maxChars bytes without splitting a rune.
func truncate(text string, maxChars int) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}
	cut := maxChars
	for cut > 0 && !isRuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
