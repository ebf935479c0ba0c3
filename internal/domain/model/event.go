// Package model contains domain models passed between layers.
package model

import "time"

// EventKind discriminates entries in the per-match score event log.
type EventKind string

const (
	// EventPoint awards one point to a team in the active set.
	EventPoint EventKind = "POINT"
	// EventRetraction undoes a prior point without deleting it; the
	// retracted event stays in the log for audit.
	EventRetraction EventKind = "RETRACTION"
	// Lifecycle markers keep the sequence number in step with every
	// state transition so snapshots are versioned by one counter.
	EventMatchStarted   EventKind = "MATCH_STARTED"
	EventSetCompleted   EventKind = "SET_COMPLETED"
	EventMatchCompleted EventKind = "MATCH_COMPLETED"
	EventMatchCancelled EventKind = "MATCH_CANCELLED"
)

// ScoreEvent is an immutable log entry. Events are never mutated or deleted;
// undo appends a compensating EventRetraction instead.
type ScoreEvent struct {
	MatchID   string    `json:"match_id"`
	Sequence  uint64    `json:"sequence_number"` // monotonic per match, starts at 1
	Kind      EventKind `json:"kind"`
	SetNumber int       `json:"set_number"`
	Team      int       `json:"team,omitempty"` // 1 or 2 for POINT events
	// Retracts is the sequence number of the point a RETRACTION undoes.
	Retracts    uint64    `json:"retracts,omitempty"`
	SubmittedBy string    `json:"submitted_by,omitempty"` // referee session id
	ActionID    string    `json:"action_id,omitempty"`    // client idempotency token
	Timestamp   time.Time `json:"timestamp"`
}
