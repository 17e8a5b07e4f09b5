package llm

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrRateLimited matches provider responses with HTTP 429.
	ErrRateLimited = errors.New("llm: rate limited")
	// ErrUnauthorized matches provider responses with HTTP 401 or 403.
	ErrUnauthorized = errors.New("llm: unauthorized")
	// ErrEmptyResponse is returned when the provider answered without text.
	ErrEmptyResponse = errors.New("llm: empty response")
	// ErrUnavailable is returned while the circuit breaker is open.
	ErrUnavailable = errors.New("llm: provider unavailable")
)

// StatusError carries the HTTP status a provider SDK reported.
type StatusError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	}
	return false
}

func withStatus(provider string, status int, err error) error {
	if status == 0 {
		return err
	}
	return &StatusError{Provider: provider, StatusCode: status, Err: err}
}
