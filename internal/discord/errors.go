package discord

import (
	"errors"
	"fmt"
)

// APIError is a non-2xx response from the Discord API.
type APIError struct {
	Status     int
	Code       int
	Message    string
	RetryAfter float64 // seconds, only set on rate limit responses
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("discord: %s (status %d)", e.Message, e.Status)
	}
	return fmt.Sprintf("discord: status %d", e.Status)
}

// Auth reports whether the error means the token is invalid or lacks access.
// These failures apply to every subsequent request, so callers abort the run
// instead of retrying per file.
func (e *APIError) Auth() bool {
	return e.Status == 401 || e.Status == 403
}

// IsAuthError reports whether err wraps an authentication failure.
func IsAuthError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Auth()
}
