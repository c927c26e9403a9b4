package llm

import (
	"errors"
	"fmt"
)

// ErrAPIKeyMissing is returned when a client is constructed without the
// credential its provider requires.
var ErrAPIKeyMissing = errors.New("api key missing")

// ErrEmptyResponse is returned when a provider answers with no usable content,
// for example when the completion was blocked by safety filters.
var ErrEmptyResponse = errors.New("empty response from provider")

// RateLimitError indicates the provider rejected the call due to rate or
// quota limits.
type RateLimitError struct {
	Message string
}

// NewRateLimitError creates a new rate limit error.
func NewRateLimitError(message string) *RateLimitError {
	return &RateLimitError{Message: message}
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded: %s", e.Message)
}
