package recordings

import "errors"

var (
	// ErrNotFound is returned for an unknown camera or recording id.
	ErrNotFound = errors.New("not found")

	// ErrInvalidRange is returned when a query range ends before it starts.
	ErrInvalidRange = errors.New("invalid time range")

	// ErrStorageUnavailable wraps any failure or timeout of the segment store.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
