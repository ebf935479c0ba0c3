package service

import "errors"

// Sentinel kinds for match service errors. The HTTP layer translates these
// with errors.Is; everything else wraps them with %w.
var (
	// ErrValidation marks malformed input: unknown team, bad mode,
	// non-positive thresholds. Never retried.
	ErrValidation = errors.New("invalid input")

	// ErrMatchNotFound marks an unknown match id.
	ErrMatchNotFound = errors.New("match not found")

	// ErrInvalidState marks an operation that is not legal in the match's
	// current status, e.g. scoring a COMPLETED match.
	ErrInvalidState = errors.New("operation not allowed in current match status")

	// ErrStateConflict marks an operation that is legal in general but
	// inconsistent with current flags, e.g. completing a set with no
	// pending completion candidate.
	ErrStateConflict = errors.New("operation conflicts with current match state")

	// ErrNothingToUndo is the benign no-op: undo with no unretracted
	// points in the active set. Surfaced as informational, not a failure.
	ErrNothingToUndo = errors.New("nothing to undo in current set")

	// ErrPersistence marks a failed or timed-out storage write. The
	// in-memory aggregate is rolled back; the caller may retry with the
	// same action id.
	ErrPersistence = errors.New("persistence failed")

	// ErrConcurrencyConflict marks a mutation rejected because another
	// mutation for the same match was in flight. The caller should retry.
	ErrConcurrencyConflict = errors.New("another mutation in flight for this match")
)
