package votehub

import (
	"errors"
	"fmt"
)

// ErrUpstreamUnavailable reports that the provider could not be reached or
// kept failing after the retry budget was spent.
var ErrUpstreamUnavailable = errors.New("votehub: upstream polls provider unavailable")

// APIError is a non-2xx response from the provider.
type APIError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
}

// Retryable reports whether the status is worth another attempt.
func (e *APIError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
