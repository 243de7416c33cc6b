package migrate

import "errors"

var (
	// ErrInterrupted signals that the run stopped on a cancellation signal
	// after saving a resumable checkpoint. It is not a failure: the CLI maps
	// it to a clean exit with the checkpoint left in place.
	ErrInterrupted = errors.New("migration interrupted, checkpoint saved")

	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrNoSpecs indicates the run was started without any source specs.
	ErrNoSpecs = errors.New("at least one source spec is required")

	// Constructor dependency errors
	ErrSourceRepositoryRequired = errors.New("source repository is required")
	ErrVectorRepositoryRequired = errors.New("vector repository is required")
	ErrEmbedderRequired         = errors.New("embedder is required")
	ErrCacheRequired            = errors.New("embedding cache is required")
	ErrCheckpointStoreRequired  = errors.New("checkpoint store is required")
)
