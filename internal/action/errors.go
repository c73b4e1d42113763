package action

import "errors"

// Sentinel errors for action storage.
var (
	// ErrStorage indicates the underlying database operation failed.
	ErrStorage = errors.New("action: storage failure")

	// ErrInvalid indicates the action record is missing required fields.
	ErrInvalid = errors.New("action: invalid record")
)
