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


package ai

import (
	"errors"
	"strings"
	"time"
)

// Config holds configuration for the embedding provider client.
type Config struct {
	// Host is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for a local OpenAI-compatible server
	Host string

	// Model is the model identifier to use for text embeddings.
	// Example: "embeddinggemma", "text-embedding-3-small"
	Model string

	// Token is the API credential. "none" works for local services that
	// don't require authentication.
	Token string

	// Dimension is the embedding dimension the provider returns.
	// Used to size placeholder vectors in degraded mode.
	Dimension int

	// MaxInputChars is the provider's maximum input size. Longer input is
	// silently truncated before submission, never rejected.
	MaxInputChars int

	// MaxAttempts is the maximum number of attempts per provider call.
	MaxAttempts int

	// RateLimitDelay is the base wait after a rate-limit signal; the actual
	// wait increases with the attempt number.
	RateLimitDelay time.Duration

	// TransientDelay is the fixed wait after other transient errors.
	TransientDelay time.Duration

	// AllowPlaceholder enables the degraded mode: after all attempts are
	// exhausted a deterministic placeholder vector tagged PlaceholderModel
	// is returned instead of an error, so a long migration is not halted by
	// one unreachable stretch. Off by default.
	AllowPlaceholder bool
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithHost sets the embedding service host URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithModel sets the embedding model identifier.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

// WithToken sets the API credential.
func WithToken(token string) ConfigOption {
	return func(c *Config) {
		c.Token = token
	}
}

// WithDimension sets the embedding dimension.
func WithDimension(dim int) ConfigOption {
	return func(c *Config) {
		c.Dimension = dim
	}
}

// WithMaxInputChars sets the provider input truncation limit.
func WithMaxInputChars(n int) ConfigOption {
	return func(c *Config) {
		c.MaxInputChars = n
	}
}

// WithMaxAttempts sets the maximum attempts per provider call.
func WithMaxAttempts(n int) ConfigOption {
	return func(c *Config) {
		c.MaxAttempts = n
	}
}

// WithRateLimitDelay sets the base wait after a rate-limit signal.
func WithRateLimitDelay(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.RateLimitDelay = d
	}
}

// WithTransientDelay sets the wait after non-rate-limit transient errors.
func WithTransientDelay(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.TransientDelay = d
	}
}

// WithPlaceholderFallback enables or disables the degraded placeholder mode.
func WithPlaceholderFallback(enabled bool) ConfigOption {
	return func(c *Config) {
		c.AllowPlaceholder = enabled
	}
}

// DefaultConfig returns a Config with sensible defaults for local
// OpenAI-compatible services.
func DefaultConfig() *Config {
	return &Config{
		Host:           "http://localhost:11434/v1",
		Model:          "embeddinggemma",
		Token:          "none",
		Dimension:      768,
		MaxInputChars:  8000,
		MaxAttempts:    3,
		RateLimitDelay: 5 * time.Second,
		TransientDelay: 1 * time.Second,
	}
}

// NewConfig creates a Config with the default values and applies the provided
// options. This is the recommended way to create a Config with custom settings.
//
// Example:
//
//	cfg := ai.NewConfig(
//	    ai.WithHost("http://localhost:11434/v1"),
//	    ai.WithModel("text-embedding-3-small"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It automatically adds the /v1 suffix to the host if missing, which is
// required by most OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	if c.Host != "" && !strings.HasSuffix(c.Host, "/v1") {
		c.Host = strings.TrimSuffix(c.Host, "/")
		c.Host = c.Host + "/v1"
	}
	if c.Token == "" {
		c.Token = "none"
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.Host == "" {
		return errors.New("ai config: Host is required")
	}
	if c.Model == "" {
		return errors.New("ai config: Model is required")
	}
	if c.Dimension <= 0 {
		return errors.New("ai config: Dimension must be positive")
	}
	if c.MaxInputChars <= 0 {
		return errors.New("ai config: MaxInputChars must be positive")
	}
	if c.MaxAttempts <= 0 {
		return errors.New("ai config: MaxAttempts must be positive")
	}
	if c.RateLimitDelay <= 0 || c.TransientDelay <= 0 {
		return errors.New("ai config: retry delays must be positive")
	}
	return nil
}
