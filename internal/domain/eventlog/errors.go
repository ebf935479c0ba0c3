package eventlog

import "errors"

// Sentinel kinds for event log errors.
var (
	ErrUnknownMatch  = errors.New("unknown match")
	ErrNothingToUndo = errors.New("nothing to undo in current set")
)
