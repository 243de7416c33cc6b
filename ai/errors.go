package ai

import (
	"errors"
	"fmt"
)

// ProviderError classifies a failed embedding provider call.
// RateLimited errors are a subset of Transient ones; both are retried, but
// rate limits back off far longer.
type ProviderError struct {
	Err         error
	Transient   bool
	RateLimited bool
}

func (e *ProviderError) Error() string {
	switch {
	case e.RateLimited:
		return fmt.Sprintf("embedding provider rate limited: %v", e.Err)
	case e.Transient:
		return fmt.Sprintf("transient embedding provider error: %v", e.Err)
	default:
		return fmt.Sprintf("embedding provider error: %v", e.Err)
	}
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a retryable provider error.
func IsTransient(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Transient
	}
	return false
}

// IsRateLimited reports whether err is a provider rate-limit signal.
func IsRateLimited(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.RateLimited
	}
	return false
}
