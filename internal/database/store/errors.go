package store

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no visible saved item.
	ErrNotFound = errors.New("saved item not found")

	// ErrInvalidURL is returned when a URL cannot be used as a saved item key.
	ErrInvalidURL = errors.New("invalid item URL")
)
