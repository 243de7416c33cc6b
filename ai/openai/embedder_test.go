package openai

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/semaphoric/vecmig/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEmbedder(t *testing.T, cfg *ai.Config, fn func(ctx context.Context, texts []string) ([][]float32, error)) *Embedder {
	t.Helper()
	require.NoError(t, cfg.Validate())
	return &Embedder{
		config:  cfg,
		embedFn: fn,
		logger:  slog.Default(),
	}
}

func TestEmbedTexts_Success(t *testing.T) {
	cfg := ai.NewConfig(ai.WithModel("test-model"))
	e := testEmbedder(t, cfg, func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{1, 0, 0}
		}
		return out, nil
	})

	results, err := e.EmbedTexts(context.Background(), []string{"hello", "world"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "test-model", results[0].Model)
	assert.Greater(t, results[0].Tokens, 0, "token estimate must be positive")
}

func TestEmbedTexts_NormalizesVectors(t *testing.T) {
	cfg := ai.NewConfig()
	e := testEmbedder(t, cfg, func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{3, 4, 0}}, nil
	})

	results, err := e.EmbedTexts(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.InDelta(t, 0.6, results[0].Vector[0], 1e-6)
	assert.InDelta(t, 0.8, results[0].Vector[1], 1e-6)
}

func TestEmbedTexts_Truncation(t *testing.T) {
	cfg := ai.NewConfig(ai.WithMaxInputChars(10))
	var seen []string
	e := testEmbedder(t, cfg, func(ctx context.Context, texts []string) ([][]float32, error) {
		seen = texts
		return [][]float32{{1}}, nil
	})

	_, err := e.EmbedTexts(context.Background(), []string{"0123456789ABCDEF"})
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, "0123456789", seen[0], "oversized input is truncated, not rejected")
}

func TestTruncate_RuneBoundary(t *testing.T) {
	// "héllo" — the é is two bytes; cutting inside it must back off.
	s := "h\xc3\xa9llo"
	assert.Equal(t, "h", truncate(s, 2))
	assert.Equal(t, "h\xc3\xa9", truncate(s, 3))
	assert.Equal(t, s, truncate(s, 100))
}

func TestCallWithRetry_AttemptLimit(t *testing.T) {
	cfg := ai.NewConfig(
		ai.WithMaxAttempts(3),
		ai.WithTransientDelay(time.Millisecond),
		ai.WithRateLimitDelay(2*time.Millisecond),
	)
	attempts := 0
	e := testEmbedder(t, cfg, func(ctx context.Context, texts []string) ([][]float32, error) {
		attempts++
		return nil, errors.New("503 service unavailable")
	})

	_, err := e.EmbedTexts(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.Equal(t, 3, attempts, "must not exceed the configured attempt limit")
	assert.True(t, ai.IsTransient(err))
}

func TestCallWithRetry_RateLimitBacksOffLonger(t *testing.T) {
	transientDelay := 5 * time.Millisecond
	rateLimitDelay := 40 * time.Millisecond
	cfg := ai.NewConfig(
		ai.WithMaxAttempts(2),
		ai.WithTransientDelay(transientDelay),
		ai.WithRateLimitDelay(rateLimitDelay),
	)

	measure := func(errMsg string) time.Duration {
		var stamps []time.Time
		e := testEmbedder(t, cfg, func(ctx context.Context, texts []string) ([][]float32, error) {
			stamps = append(stamps, time.Now())
			return nil, errors.New(errMsg)
		})
		_, err := e.EmbedTexts(context.Background(), []string{"x"})
		require.Error(t, err)
		require.Len(t, stamps, 2)
		return stamps[1].Sub(stamps[0])
	}

	transientWait := measure("connection reset by peer")
	rateLimitWait := measure("429 too many requests")

	assert.Greater(t, rateLimitWait, transientWait,
		"rate-limit wait must be strictly longer than the transient wait")
	assert.GreaterOrEqual(t, rateLimitWait, rateLimitDelay)
}

func TestCallWithRetry_NonRetryableFailsFast(t *testing.T) {
	cfg := ai.NewConfig(ai.WithMaxAttempts(5))
	attempts := 0
	e := testEmbedder(t, cfg, func(ctx context.Context, texts []string) ([][]float32, error) {
		attempts++
		return nil, errors.New("401 invalid api key")
	})

	_, err := e.EmbedTexts(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.Equal(t, 1, attempts, "non-retryable errors must not be retried")
	assert.False(t, ai.IsTransient(err))
}

func TestCallWithRetry_ContextCanceled(t *testing.T) {
	cfg := ai.NewConfig(ai.WithMaxAttempts(10), ai.WithTransientDelay(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	e := testEmbedder(t, cfg, func(ctx context.Context, texts []string) ([][]float32, error) {
		cancel()
		return nil, errors.New("timeout")
	})

	_, err := e.EmbedTexts(ctx, []string{"x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmbedTexts_PlaceholderFallback(t *testing.T) {
	cfg := ai.NewConfig(
		ai.WithMaxAttempts(2),
		ai.WithTransientDelay(time.Millisecond),
		ai.WithDimension(16),
		ai.WithPlaceholderFallback(true),
	)
	e := testEmbedder(t, cfg, func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("503 service unavailable")
	})

	results, err := e.EmbedTexts(context.Background(), []string{"some text"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, ai.PlaceholderModel, results[0].Model, "degraded vectors must be distinguishable")
	assert.Len(t, results[0].Vector, 16)
	assert.Zero(t, results[0].Tokens)

	// Deterministic across calls for the same text.
	again, err := e.EmbedTexts(context.Background(), []string{"some text"})
	require.NoError(t, err)
	assert.Equal(t, results[0].Vector, again[0].Vector)
}

func TestClassifyError(t *testing.T) {
	rl := classifyError(errors.New("HTTP 429 Too Many Requests"))
	assert.True(t, rl.RateLimited)
	assert.True(t, rl.Transient)

	tr := classifyError(errors.New("dial tcp: connection refused"))
	assert.True(t, tr.Transient)
	assert.False(t, tr.RateLimited)

	fatal := classifyError(errors.New("model not found"))
	assert.False(t, fatal.Transient)
}
