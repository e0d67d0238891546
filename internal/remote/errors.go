package remote

import (
	"errors"
	"fmt"
)

// ErrUnauthorized indicates the access token is missing, invalid or expired
var ErrUnauthorized = errors.New("remote rejected the access token")

// ErrNotFound indicates the server does not know the requested object
var ErrNotFound = errors.New("remote object not found")

// ErrRateLimited indicates the API rate limit was exceeded
var ErrRateLimited = errors.New("remote API rate limit exceeded")

// ServerError represents a 5xx error from the remote API
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("remote server error: HTTP %d", e.StatusCode)
}

// IsRetryable reports whether the request may succeed if repeated.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var serverErr *ServerError
	return errors.As(err, &serverErr)
}
