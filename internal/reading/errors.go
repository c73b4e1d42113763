package reading

import "errors"

// Sentinel errors for sensor reading storage.
var (
	// ErrNotFound indicates no reading matched the query.
	ErrNotFound = errors.New("reading: not found")

	// ErrStorage indicates the underlying database operation failed.
	ErrStorage = errors.New("reading: storage failure")

	// ErrCacheMiss indicates the latest-reading cache has no entry.
	ErrCacheMiss = errors.New("reading: cache miss")
)
