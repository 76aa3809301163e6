package source

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is matched by a *StatusError carrying 404.
	ErrNotFound = errors.New("not found")
	// ErrRateLimited is returned once rate-limit waits are exhausted or
	// would exceed the configured maximum backoff.
	ErrRateLimited = errors.New("rate limited")
)

// StatusError is a non-success response from the issue tracker.
type StatusError struct {
	StatusCode int
	Method     string
	URL        string
	Message    string
}

func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}

	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, msg)
}

func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	}

	return false
}

// Temporary reports whether retrying the same request may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError
}
