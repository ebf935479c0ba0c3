package storage

import "errors"

// Sentinel kinds for storage errors.
var (
	ErrNotFound        = errors.New("match not found")
	ErrDuplicateAction = errors.New("duplicate client action id")
	ErrSequenceGap     = errors.New("event sequence gap")
)
