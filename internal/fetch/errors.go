package fetch

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the payload does not exist.
	ErrNotFound = errors.New("payload not found")

	// ErrRateLimited indicates the remote side refused the request rate.
	ErrRateLimited = errors.New("payload source rate limit exceeded")

	// ErrTooLarge indicates the payload exceeded the configured size limit.
	ErrTooLarge = errors.New("payload too large")
)

// StatusError is an unexpected HTTP status from a payload source.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
}

// IsNotFound returns true if the error indicates a missing payload.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == 404
	}
	return false
}
