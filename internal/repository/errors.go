package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrVersionConflict indicates the row changed between read and write.
	ErrVersionConflict = errors.New("repository: version conflict")
)
