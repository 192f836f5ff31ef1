package client

import (
	"errors"
	"fmt"
)

// ErrCircuitOpen is returned when the circuit breaker rejects a request
// without issuing it.
var ErrCircuitOpen = errors.New("circuit breaker open for store API")

// AuthError is returned when a login is rejected, or when a request keeps
// failing with 401 after the access token has been renewed once. It is fatal
// to the current operation and never retried.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Message)
}

// HTTPError represents an HTTP error response that is neither an
// authentication failure nor a rate limit. It is surfaced to the caller
// unmodified, with status and body intact.
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.URL)
}

// IsNotFound returns true if the error represents a 404 response.
func (e *HTTPError) IsNotFound() bool {
	return e.StatusCode == 404
}

// RateLimitError represents a 429 response. The transport handles these
// internally by backing off and retrying; callers only ever see one if the
// surrounding context is cancelled while waiting.
type RateLimitError struct {
	RetryAfter int // seconds
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %d seconds", e.RetryAfter)
}
