package llm

import (
	"errors"
	"strings"
)

// Sentinel errors for completion calls.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrExhausted indicates a completion failed after all retry attempts.
	// The last underlying cause is wrapped alongside it.
	ErrExhausted = errors.New("completion attempts exhausted")

	// ErrRateLimited indicates the upstream service rejected the call due
	// to rate limiting. Retryable with backoff.
	ErrRateLimited = errors.New("rate limited")
)

// isRateLimitError inspects an upstream error and reports whether it is a
// rate-limit rejection. The providers do not expose typed errors for this,
// so classification is by message, same as the upstream SDKs log them.
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate_limit") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "429") ||
		strings.Contains(msg, "too many requests")
}
