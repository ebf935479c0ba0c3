package broadcast

import "errors"

// Sentinel kinds for hub errors.
var (
	ErrStopped      = errors.New("broadcast hub is stopped")
	ErrUnknownMatch = errors.New("no room for match")
)
