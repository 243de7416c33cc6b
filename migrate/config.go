package migrate

import "time"

// Config holds configuration for a migration run.
type Config struct {
	// BatchSize is the number of source rows fetched per page.
	BatchSize int

	// Workers bounds how many records of one batch are processed
	// concurrently. Batches themselves run sequentially so checkpoint
	// semantics stay simple.
	Workers int

	// MinContentLength is the minimum normalized content length worth
	// embedding; shorter records are classified skipped.
	MinContentLength int

	// MaxRetries is the maximum number of attempts for vector-store writes
	// and source fetches. Provider retries are configured separately on the
	// embedding client.
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff on storage retries.
	RetryDelay time.Duration

	// BatchDelay throttles the provider request rate between batches,
	// independent of the provider's own rate limiting.
	BatchDelay time.Duration

	// ReportInterval is how often to report progress (number of records).
	ReportInterval int

	// CostPer1KTokens converts token usage into an estimated cost.
	CostPer1KTokens float64
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:        100,
		Workers:          10,
		MinContentLength: 16,
		MaxRetries:       3,
		RetryDelay:       1 * time.Second,
		BatchDelay:       200 * time.Millisecond,
		ReportInterval:   100,
		CostPer1KTokens:  0.0001,
	}
}

// normalize replaces zero or negative fields with their defaults so a
// partially filled Config behaves predictably.
func (c *Config) normalize() {
	def := DefaultConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = def.BatchSize
	}
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.MinContentLength < 0 {
		c.MinContentLength = def.MinContentLength
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = def.MaxRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = def.RetryDelay
	}
	if c.BatchDelay < 0 {
		c.BatchDelay = def.BatchDelay
	}
	if c.ReportInterval <= 0 {
		c.ReportInterval = def.ReportInterval
	}
	if c.CostPer1KTokens < 0 {
		c.CostPer1KTokens = 0
	}
}
