package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/matchpoint/internal/domain/model"
)

// MemoryStore implements Store with in-process maps. It enforces the same
// contract a relational store would: gapless event sequences per match and a
// uniqueness constraint on (matchID, actionID) as a second line of defense
// behind the event log's own idempotency check.
type MemoryStore struct {
	mu      sync.RWMutex
	matches map[string]*model.Match
	events  map[string][]model.ScoreEvent
	actions map[string]map[string]struct{} // matchID -> seen action ids

	writeDelay time.Duration
	failWrites error
}

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithWriteDelay makes every write sleep, for exercising persistence
// timeouts in tests.
func WithWriteDelay(d time.Duration) Option {
	return func(s *MemoryStore) {
		if d > 0 {
			s.writeDelay = d
		}
	}
}

// WithFailingWrites makes every SaveMatch return err, for exercising the
// all-or-nothing rollback path in tests.
func WithFailingWrites(err error) Option {
	return func(s *MemoryStore) {
		s.failWrites = err
	}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		matches: make(map[string]*model.Match),
		events:  make(map[string][]model.ScoreEvent),
		actions: make(map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SaveMatch writes the match row and appends newEvents atomically.
func (s *MemoryStore) SaveMatch(ctx context.Context, m *model.Match, newEvents []model.ScoreEvent) error {
	if s.writeDelay > 0 {
		select {
		case <-time.After(s.writeDelay):
		case <-ctx.Done():
			return fmt.Errorf("save match %s: %w", m.ID, ctx.Err())
		}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("save match %s: %w", m.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWrites != nil {
		return fmt.Errorf("save match %s: %w", m.ID, s.failWrites)
	}

	// Validate the whole batch before touching state so a rejected write
	// leaves nothing behind.
	next := uint64(len(s.events[m.ID])) + 1
	for _, e := range newEvents {
		if e.Sequence != next {
			return fmt.Errorf("save match %s: event %d: %w", m.ID, e.Sequence, ErrSequenceGap)
		}
		next++
		if e.Kind == model.EventPoint && e.ActionID != "" {
			if _, seen := s.actions[m.ID][e.ActionID]; seen {
				return fmt.Errorf("save match %s: action %s: %w", m.ID, e.ActionID, ErrDuplicateAction)
			}
		}
	}

	s.matches[m.ID] = m.Clone()
	s.events[m.ID] = append(s.events[m.ID], newEvents...)
	for _, e := range newEvents {
		if e.Kind == model.EventPoint && e.ActionID != "" {
			if s.actions[m.ID] == nil {
				s.actions[m.ID] = make(map[string]struct{})
			}
			s.actions[m.ID][e.ActionID] = struct{}{}
		}
	}
	return nil
}

// LoadMatch returns the match row and its full event sequence.
func (s *MemoryStore) LoadMatch(_ context.Context, matchID string) (*model.Match, []model.ScoreEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[matchID]
	if !ok {
		return nil, nil, fmt.Errorf("load match %s: %w", matchID, ErrNotFound)
	}
	return m.Clone(), append([]model.ScoreEvent(nil), s.events[matchID]...), nil
}

// ListMatches returns all persisted matches.
func (s *MemoryStore) ListMatches(_ context.Context) ([]*model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Match, 0, len(s.matches))
	for _, m := range s.matches {
		out = append(out, m.Clone())
	}
	return out, nil
}

// SetFailWrites toggles write failure at runtime so a healthy store can be
// made to fail mid-test and recover again.
func (s *MemoryStore) SetFailWrites(err error) {
	s.mu.Lock()
	s.failWrites = err
	s.mu.Unlock()
}

// EventCount reports how many events are persisted for a match.
func (s *MemoryStore) EventCount(matchID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events[matchID])
}
