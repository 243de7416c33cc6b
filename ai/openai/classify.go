package openai

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/semaphoric/vecmig/ai"
)

// rateLimitMarkers identify provider rate-limit responses. The underlying
// client flattens HTTP errors into strings, so matching is textual.
var rateLimitMarkers = []string{
	"429",
	"rate limit",
	"rate_limit",
	"too many requests",
}

// transientMarkers identify retryable non-rate-limit failures: provider 5xx
// responses, timeouts and connection drops.
var transientMarkers = []string{
	"500",
	"502",
	"503",
	"504",
	"timeout",
	"timed out",
	"connection refused",
	"connection reset",
	"temporarily unavailable",
	"unexpected eof",
	"server error",
}

// classifyError maps a raw provider error onto the retry taxonomy.
func classifyError(err error) *ai.ProviderError {
	msg := strings.ToLower(err.Error())

	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return &ai.ProviderError{Err: err, Transient: true, RateLimited: true}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ai.ProviderError{Err: err, Transient: true}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &ai.ProviderError{Err: err, Transient: true}
	}

	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return &ai.ProviderError{Err: err, Transient: true}
		}
	}

	return &ai.ProviderError{Err: err}
}
