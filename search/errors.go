package search

import "errors"

var (
	// ErrEmptyQuery indicates the query text was empty.
	ErrEmptyQuery = errors.New("query text cannot be empty")

	// Constructor dependency errors
	ErrVectorRepositoryRequired = errors.New("vector repository is required")
	ErrEmbedderRequired         = errors.New("embedder is required")
)
