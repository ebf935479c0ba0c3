// Package eventlog keeps the per-match append-only sequence of score events.
// It is the source of truth for the current set score and for undo; durable
// persistence of the entries is delegated to the storage collaborator.
package eventlog

import (
	"context"
	"sync"
	"time"

	"github.com/okian/matchpoint/internal/domain/model"
)

// Log holds one append-only event sequence per match id.
//
// Sequence numbers are assigned here, start at 1, and are strictly
// increasing with no gaps. Undo never removes entries; it appends a
// compensating RETRACTION marker so the audit trail survives replay.
type Log struct {
	mu      sync.RWMutex
	matches map[string]*matchLog
}

type matchLog struct {
	events []model.ScoreEvent
	// byAction maps a client action id to the index of the point event it
	// produced, for idempotent retry absorption.
	byAction map[string]int
}

// New creates an empty log.
func New() *Log {
	return &Log{matches: make(map[string]*matchLog)}
}

// Register creates the sequence for a match id. Idempotent.
func (l *Log) Register(matchID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.matches[matchID]; !ok {
		l.matches[matchID] = &matchLog{byAction: make(map[string]int)}
	}
}

// Replay seeds a match log from persisted events, e.g. after restart.
// Events must already be in sequence order.
func (l *Log) Replay(matchID string, events []model.ScoreEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ml := &matchLog{
		events:   append([]model.ScoreEvent(nil), events...),
		byAction: make(map[string]int),
	}
	for i, e := range ml.events {
		if e.Kind == model.EventPoint && e.ActionID != "" {
			ml.byAction[e.ActionID] = i
		}
	}
	l.matches[matchID] = ml
}

// AppendPoint records a point for team in setNumber and assigns the next
// sequence number. If actionID was already used for this match the existing
// event is returned with replayed=true and nothing is appended.
func (l *Log) AppendPoint(_ context.Context, matchID string, setNumber, team int, submittedBy, actionID string) (model.ScoreEvent, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ml, ok := l.matches[matchID]
	if !ok {
		return model.ScoreEvent{}, false, ErrUnknownMatch
	}
	if actionID != "" {
		if i, seen := ml.byAction[actionID]; seen {
			return ml.events[i], true, nil
		}
	}
	e := model.ScoreEvent{
		MatchID:     matchID,
		Sequence:    uint64(len(ml.events)) + 1,
		Kind:        model.EventPoint,
		SetNumber:   setNumber,
		Team:        team,
		SubmittedBy: submittedBy,
		ActionID:    actionID,
		Timestamp:   time.Now().UTC(),
	}
	ml.events = append(ml.events, e)
	if actionID != "" {
		ml.byAction[actionID] = len(ml.events) - 1
	}
	return e, false, nil
}

// AppendMarker records a lifecycle transition (start, set completed, match
// completed, cancelled) so the sequence number versions every state change.
func (l *Log) AppendMarker(_ context.Context, matchID string, kind model.EventKind, setNumber int, submittedBy string) (model.ScoreEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ml, ok := l.matches[matchID]
	if !ok {
		return model.ScoreEvent{}, ErrUnknownMatch
	}
	e := model.ScoreEvent{
		MatchID:     matchID,
		Sequence:    uint64(len(ml.events)) + 1,
		Kind:        kind,
		SetNumber:   setNumber,
		SubmittedBy: submittedBy,
		Timestamp:   time.Now().UTC(),
	}
	ml.events = append(ml.events, e)
	return e, nil
}

// UndoLast retracts the most recent unretracted point of setNumber by
// appending a RETRACTION marker referencing it. Points from earlier sets are
// frozen; ErrNothingToUndo is returned when the active set has none left.
func (l *Log) UndoLast(_ context.Context, matchID string, setNumber int, submittedBy string) (model.ScoreEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ml, ok := l.matches[matchID]
	if !ok {
		return model.ScoreEvent{}, ErrUnknownMatch
	}
	target, ok := lastUnretracted(ml.events, setNumber)
	if !ok {
		return model.ScoreEvent{}, ErrNothingToUndo
	}
	e := model.ScoreEvent{
		MatchID:     matchID,
		Sequence:    uint64(len(ml.events)) + 1,
		Kind:        model.EventRetraction,
		SetNumber:   setNumber,
		Team:        target.Team,
		Retracts:    target.Sequence,
		SubmittedBy: submittedBy,
		Timestamp:   time.Now().UTC(),
	}
	ml.events = append(ml.events, e)
	return e, nil
}

// CurrentSetScore folds all unretracted point events of setNumber into a
// score pair. This fold is the single source of truth for the active score.
func (l *Log) CurrentSetScore(_ context.Context, matchID string, setNumber int) (team1, team2 int, err error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ml, ok := l.matches[matchID]
	if !ok {
		return 0, 0, ErrUnknownMatch
	}
	retracted := make(map[uint64]struct{})
	for _, e := range ml.events {
		if e.Kind == model.EventRetraction {
			retracted[e.Retracts] = struct{}{}
		}
	}
	for _, e := range ml.events {
		if e.Kind != model.EventPoint || e.SetNumber != setNumber {
			continue
		}
		if _, gone := retracted[e.Sequence]; gone {
			continue
		}
		switch e.Team {
		case 1:
			team1++
		case 2:
			team2++
		}
	}
	return team1, team2, nil
}

// LastSequence returns the highest sequence number committed for the match,
// zero when the log is empty.
func (l *Log) LastSequence(matchID string) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ml, ok := l.matches[matchID]
	if !ok {
		return 0
	}
	return uint64(len(ml.events))
}

// Events returns a copy of the match's full event sequence for persistence
// and audit.
func (l *Log) Events(matchID string) []model.ScoreEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ml, ok := l.matches[matchID]
	if !ok {
		return nil
	}
	return append([]model.ScoreEvent(nil), ml.events...)
}

// TruncateAfter discards events with sequence numbers above seq. Used only
// to roll back entries whose storage write failed; committed history is
// never truncated.
func (l *Log) TruncateAfter(matchID string, seq uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ml, ok := l.matches[matchID]
	if !ok {
		return
	}
	if uint64(len(ml.events)) <= seq {
		return
	}
	for _, e := range ml.events[seq:] {
		if e.Kind == model.EventPoint && e.ActionID != "" {
			delete(ml.byAction, e.ActionID)
		}
	}
	ml.events = ml.events[:seq]
}

// lastUnretracted scans backwards for the newest point of setNumber that no
// retraction references.
func lastUnretracted(events []model.ScoreEvent, setNumber int) (model.ScoreEvent, bool) {
	retracted := make(map[uint64]struct{})
	for _, e := range events {
		if e.Kind == model.EventRetraction {
			retracted[e.Retracts] = struct{}{}
		}
	}
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		if e.Kind != model.EventPoint || e.SetNumber != setNumber {
			continue
		}
		if _, gone := retracted[e.Sequence]; gone {
			continue
		}
		return e, true
	}
	return model.ScoreEvent{}, false
}
