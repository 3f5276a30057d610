// Package clients provides the instrumented HTTP client used by notification
// channels that deliver over HTTP APIs.
package clients

import "errors"

// Client errors describe delivery infrastructure failures. Channels translate
// them into notification errors.
var (
	// ErrCircuitOpen is returned while the destination's breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrMaxRetriesExceeded wraps the last error after all attempts failed.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)
