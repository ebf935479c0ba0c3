// Package service owns the authoritative match aggregates and orchestrates
// the rule engine, the score event log, the storage collaborator, and the
// broadcast hub. It is the single writer for any given match id.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/matchpoint/internal/adapters/storage"
	"github.com/okian/matchpoint/internal/domain/eventlog"
	"github.com/okian/matchpoint/internal/domain/model"
	"github.com/okian/matchpoint/internal/domain/rules"
	"github.com/okian/matchpoint/pkg/logger"
	"github.com/okian/matchpoint/pkg/metrics"
)

// Default match configuration, overridable per match and via options.
const (
	defaultPointsToWin    = 11
	defaultTotalSets      = 3
	defaultPersistTimeout = 3 * time.Second
)

// Publisher is how committed snapshots reach subscribers. Satisfied by the
// broadcast hub.
type Publisher interface {
	Publish(matchID string, snap model.Snapshot)
}

// Service implements the match state store.
type Service struct {
	mu      sync.RWMutex
	matches map[string]*matchEntry
	started bool

	log   *eventlog.Log
	store storage.Store
	hub   Publisher

	persistTimeout time.Duration
	pointsToWin    int
	totalSets      int
	mode           model.ScoringMode

	logger logger.Logger
	now    func() time.Time
}

// matchEntry serializes mutations per match. op is held for the whole
// mutation (TryLock, rejection on contention); stateMu only guards the
// aggregate pointer swap so readers never block behind a storage write.
type matchEntry struct {
	op      sync.Mutex
	stateMu sync.RWMutex
	m       *model.Match
}

func (e *matchEntry) current() *model.Match {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.m
}

func (e *matchEntry) swap(m *model.Match) {
	e.stateMu.Lock()
	e.m = m
	e.stateMu.Unlock()
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		matches:        make(map[string]*matchEntry),
		persistTimeout: defaultPersistTimeout,
		pointsToWin:    defaultPointsToWin,
		totalSets:      defaultTotalSets,
		mode:           model.WinByTwo,
		now:            func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes collaborators and recovers persisted matches.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("match")
	}
	if s.store == nil {
		s.store = storage.NewMemoryStore()
	}
	s.log = eventlog.New()

	persisted, err := s.store.ListMatches(ctx)
	if err != nil {
		return fmt.Errorf("recover matches: %w", err)
	}
	for _, m := range persisted {
		_, events, err := s.store.LoadMatch(ctx, m.ID)
		if err != nil {
			return fmt.Errorf("recover match %s: %w", m.ID, err)
		}
		s.log.Replay(m.ID, events)
		s.matches[m.ID] = &matchEntry{m: m}
		if s.hub != nil {
			s.hub.Publish(m.ID, m.Snapshot(s.now()))
		}
	}

	s.started = true
	metrics.UpdateActiveMatches(len(s.matches))
	s.logger.Info(ctx, "match service started", logger.Int("recovered", len(s.matches)))
	return nil
}

// Stop marks the service stopped. Aggregates stay queryable.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "match service stopped")
}

// MatchSpec is the creation request from the scheduling collaborator.
type MatchSpec struct {
	ID             string
	TournamentID   string
	Team1          model.Team
	Team2          model.Team
	Mode           model.ScoringMode
	PointsToWinSet int
	TotalSets      int
}

// CreateMatch registers a SCHEDULED match and primes its broadcast room with
// the initial snapshot.
func (s *Service) CreateMatch(ctx context.Context, spec MatchSpec) (model.Snapshot, error) {
	if spec.Mode == "" {
		spec.Mode = s.mode
	}
	if spec.PointsToWinSet == 0 {
		spec.PointsToWinSet = s.pointsToWin
	}
	if spec.TotalSets == 0 {
		spec.TotalSets = s.totalSets
	}
	switch {
	case !spec.Mode.Valid():
		return model.Snapshot{}, fmt.Errorf("scoring mode %q: %w", spec.Mode, ErrValidation)
	case spec.PointsToWinSet <= 0:
		return model.Snapshot{}, fmt.Errorf("points to win %d: %w", spec.PointsToWinSet, ErrValidation)
	case spec.TotalSets <= 0 || spec.TotalSets%2 == 0:
		// Best-of-N needs an odd N: an even count can end in a set tie
		// with no set left to decide it.
		return model.Snapshot{}, fmt.Errorf("total sets %d must be a positive odd count: %w", spec.TotalSets, ErrValidation)
	case spec.Team1.Name == "" || spec.Team2.Name == "":
		return model.Snapshot{}, fmt.Errorf("team names required: %w", ErrValidation)
	}
	if spec.ID == "" {
		spec.ID = uuid.NewString()
	}

	m := &model.Match{
		ID:             spec.ID,
		TournamentID:   spec.TournamentID,
		Teams:          [2]model.Team{spec.Team1, spec.Team2},
		Status:         model.StatusScheduled,
		Mode:           spec.Mode,
		PointsToWinSet: spec.PointsToWinSet,
		TotalSets:      spec.TotalSets,
		CurrentSet:     1,
	}

	s.mu.Lock()
	if _, exists := s.matches[spec.ID]; exists {
		s.mu.Unlock()
		return model.Snapshot{}, fmt.Errorf("match %s already exists: %w", spec.ID, ErrStateConflict)
	}
	entry := &matchEntry{m: m}
	s.matches[spec.ID] = entry
	s.mu.Unlock()

	s.log.Register(spec.ID)
	if err := s.persist(ctx, m, nil); err != nil {
		s.mu.Lock()
		delete(s.matches, spec.ID)
		s.mu.Unlock()
		return model.Snapshot{}, err
	}

	snap := m.Snapshot(s.now())
	if s.hub != nil {
		s.hub.Publish(spec.ID, snap)
	}
	metrics.UpdateActiveMatches(s.count())
	s.logger.Info(ctx, "match created",
		logger.String("match_id", spec.ID),
		logger.String("mode", string(spec.Mode)),
	)
	return snap, nil
}

// StartMatch transitions SCHEDULED to IN_PROGRESS and stamps the start time.
// Calling it on an already running match is a no-op returning current state.
func (s *Service) StartMatch(ctx context.Context, matchID, submittedBy string) (model.Snapshot, error) {
	return s.mutate(ctx, matchID, func(cur *model.Match) (*model.Match, []model.ScoreEvent, error) {
		switch cur.Status {
		case model.StatusInProgress:
			return nil, nil, nil // duplicate start, benign
		case model.StatusScheduled:
		default:
			return nil, nil, fmt.Errorf("start %s match: %w", cur.Status, ErrInvalidState)
		}
		ev, err := s.log.AppendMarker(ctx, matchID, model.EventMatchStarted, cur.CurrentSet, submittedBy)
		if err != nil {
			return nil, nil, err
		}
		next := cur.Clone()
		next.Status = model.StatusInProgress
		t := s.now()
		next.StartedAt = &t
		next.LastSequence = ev.Sequence
		return next, []model.ScoreEvent{ev}, nil
	})
}

// RecordPoint awards a point to team (1 or 2). A retried action id is
// absorbed idempotently: replayed is true and the state is exactly what the
// original attempt produced. A point on a SCHEDULED match starts it first.
func (s *Service) RecordPoint(ctx context.Context, matchID string, team int, submittedBy, actionID string) (snap model.Snapshot, replayed bool, err error) {
	if team != 1 && team != 2 {
		return model.Snapshot{}, false, fmt.Errorf("scoring team %d: %w", team, ErrValidation)
	}
	snap, err = s.mutate(ctx, matchID, func(cur *model.Match) (*model.Match, []model.ScoreEvent, error) {
		if cur.Status.Terminal() {
			return nil, nil, fmt.Errorf("record point on %s match: %w", cur.Status, ErrInvalidState)
		}
		next := cur.Clone()
		var events []model.ScoreEvent

		if cur.Status == model.StatusScheduled {
			started, err := s.log.AppendMarker(ctx, matchID, model.EventMatchStarted, cur.CurrentSet, submittedBy)
			if err != nil {
				return nil, nil, err
			}
			next.Status = model.StatusInProgress
			t := s.now()
			next.StartedAt = &t
			events = append(events, started)
		}

		ev, dup, err := s.log.AppendPoint(ctx, matchID, cur.CurrentSet, team, submittedBy, actionID)
		if err != nil {
			return nil, nil, err
		}
		if dup {
			replayed = true
			metrics.RecordDuplicateAction()
			return nil, nil, nil // same resulting state as the original attempt
		}

		s1, s2, err := s.log.CurrentSetScore(ctx, matchID, cur.CurrentSet)
		if err != nil {
			return nil, nil, err
		}
		next.Score1, next.Score2 = s1, s2
		next.LastSequence = ev.Sequence
		next.SetCompletionCandidate = rules.IsSetComplete(s1, s2, next.PointsToWinSet, next.Mode)
		events = append(events, ev)
		metrics.RecordPointScored()
		return next, events, nil
	})
	return snap, replayed, err
}

// UndoLastPoint retracts the most recent point of the active set and refolds
// the score. Completed sets are frozen; undo never crosses a set boundary.
func (s *Service) UndoLastPoint(ctx context.Context, matchID, submittedBy string) (model.Snapshot, error) {
	return s.mutate(ctx, matchID, func(cur *model.Match) (*model.Match, []model.ScoreEvent, error) {
		if cur.Status != model.StatusInProgress {
			return nil, nil, fmt.Errorf("undo on %s match: %w", cur.Status, ErrInvalidState)
		}
		ev, err := s.log.UndoLast(ctx, matchID, cur.CurrentSet, submittedBy)
		if err != nil {
			if errors.Is(err, eventlog.ErrNothingToUndo) {
				return nil, nil, fmt.Errorf("match %s: %w", matchID, ErrNothingToUndo)
			}
			return nil, nil, err
		}
		s1, s2, err := s.log.CurrentSetScore(ctx, matchID, cur.CurrentSet)
		if err != nil {
			return nil, nil, err
		}
		next := cur.Clone()
		next.Score1, next.Score2 = s1, s2
		next.LastSequence = ev.Sequence
		next.SetCompletionCandidate = rules.IsSetComplete(s1, s2, next.PointsToWinSet, next.Mode)
		metrics.RecordUndo()
		return next, []model.ScoreEvent{ev}, nil
	})
}

// CompleteSet archives the active score into the set history and either
// advances to the next set or, when a team has a best-of-N majority,
// completes the match. Guarded by the completion candidate flag so a set
// cannot be closed prematurely.
func (s *Service) CompleteSet(ctx context.Context, matchID, submittedBy string) (model.Snapshot, error) {
	return s.mutate(ctx, matchID, func(cur *model.Match) (*model.Match, []model.ScoreEvent, error) {
		if cur.Status != model.StatusInProgress {
			return nil, nil, fmt.Errorf("complete set on %s match: %w", cur.Status, ErrInvalidState)
		}
		if !cur.SetCompletionCandidate {
			return nil, nil, fmt.Errorf("set %d not complete yet: %w", cur.CurrentSet, ErrStateConflict)
		}

		setDone, err := s.log.AppendMarker(ctx, matchID, model.EventSetCompleted, cur.CurrentSet, submittedBy)
		if err != nil {
			return nil, nil, err
		}
		next := cur.Clone()
		next.CompletedSets = append(next.CompletedSets, model.SetResult{
			SetNumber:  cur.CurrentSet,
			Team1Score: cur.Score1,
			Team2Score: cur.Score2,
		})
		next.Score1, next.Score2 = 0, 0
		next.SetCompletionCandidate = false
		next.LastSequence = setDone.Sequence
		events := []model.ScoreEvent{setDone}
		metrics.RecordSetCompleted()

		won1, won2 := next.SetsWon()
		if rules.IsMatchComplete(won1, won2, next.TotalSets) {
			matchDone, err := s.log.AppendMarker(ctx, matchID, model.EventMatchCompleted, cur.CurrentSet, submittedBy)
			if err != nil {
				return nil, nil, err
			}
			next.Status = model.StatusCompleted
			next.LastSequence = matchDone.Sequence
			events = append(events, matchDone)
			metrics.RecordMatchCompleted()
		} else {
			next.CurrentSet++
		}
		return next, events, nil
	})
}

// CompleteMatch is the explicit referee override: it forces IN_PROGRESS to
// COMPLETED regardless of the completion candidate flag, archiving any
// in-flight set score first.
func (s *Service) CompleteMatch(ctx context.Context, matchID, submittedBy string) (model.Snapshot, error) {
	return s.mutate(ctx, matchID, func(cur *model.Match) (*model.Match, []model.ScoreEvent, error) {
		if cur.Status != model.StatusInProgress {
			return nil, nil, fmt.Errorf("complete %s match: %w", cur.Status, ErrInvalidState)
		}
		ev, err := s.log.AppendMarker(ctx, matchID, model.EventMatchCompleted, cur.CurrentSet, submittedBy)
		if err != nil {
			return nil, nil, err
		}
		next := cur.Clone()
		if cur.Score1 > 0 || cur.Score2 > 0 {
			next.CompletedSets = append(next.CompletedSets, model.SetResult{
				SetNumber:  cur.CurrentSet,
				Team1Score: cur.Score1,
				Team2Score: cur.Score2,
			})
		}
		next.Status = model.StatusCompleted
		next.Score1, next.Score2 = 0, 0
		next.SetCompletionCandidate = false
		next.LastSequence = ev.Sequence
		metrics.RecordMatchCompleted()
		return next, []model.ScoreEvent{ev}, nil
	})
}

// CancelMatch moves a SCHEDULED or IN_PROGRESS match to CANCELLED.
func (s *Service) CancelMatch(ctx context.Context, matchID, submittedBy string) (model.Snapshot, error) {
	return s.mutate(ctx, matchID, func(cur *model.Match) (*model.Match, []model.ScoreEvent, error) {
		if cur.Status.Terminal() {
			return nil, nil, fmt.Errorf("cancel %s match: %w", cur.Status, ErrInvalidState)
		}
		ev, err := s.log.AppendMarker(ctx, matchID, model.EventMatchCancelled, cur.CurrentSet, submittedBy)
		if err != nil {
			return nil, nil, err
		}
		next := cur.Clone()
		next.Status = model.StatusCancelled
		next.SetCompletionCandidate = false
		next.LastSequence = ev.Sequence
		metrics.RecordMatchCancelled()
		return next, []model.ScoreEvent{ev}, nil
	})
}

// Snapshot returns the current read model for a match.
func (s *Service) Snapshot(_ context.Context, matchID string) (model.Snapshot, error) {
	e, err := s.entry(matchID)
	if err != nil {
		return model.Snapshot{}, err
	}
	return e.current().Snapshot(s.now()), nil
}

// ListMatches returns snapshots for every known match, ordered by id.
func (s *Service) ListMatches(_ context.Context) []model.Snapshot {
	s.mu.RLock()
	entries := make([]*matchEntry, 0, len(s.matches))
	for _, e := range s.matches {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]model.Snapshot, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.current().Snapshot(s.now()))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MatchID < out[j].MatchID })
	return out
}

// Events returns a copy of the match's committed event log for audit. The
// log may briefly run ahead of the aggregate while a mutation is persisting;
// entries above the committed sequence are withheld since a failed write
// would roll them back.
func (s *Service) Events(_ context.Context, matchID string) ([]model.ScoreEvent, error) {
	e, err := s.entry(matchID)
	if err != nil {
		return nil, err
	}
	committed := e.current().LastSequence
	events := s.log.Events(matchID)
	if uint64(len(events)) > committed {
		events = events[:committed]
	}
	return events, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	entries := make([]*matchEntry, 0, len(s.matches))
	for _, e := range s.matches {
		entries = append(entries, e)
	}
	started := s.started
	s.mu.RUnlock()

	byStatus := make(map[model.Status]int)
	for _, e := range entries {
		byStatus[e.current().Status]++
	}
	return map[string]interface{}{
		"started":     started,
		"matches":     len(entries),
		"scheduled":   byStatus[model.StatusScheduled],
		"in_progress": byStatus[model.StatusInProgress],
		"completed":   byStatus[model.StatusCompleted],
		"cancelled":   byStatus[model.StatusCancelled],
	}
}

// mutate runs one serialized mutation against a match. The mutation function
// returns the replacement aggregate and the events to persist with it, or
// nil for a benign no-op. On persistence failure both the event log and the
// aggregate keep their pre-mutation value.
func (s *Service) mutate(ctx context.Context, matchID string, fn func(cur *model.Match) (*model.Match, []model.ScoreEvent, error)) (model.Snapshot, error) {
	e, err := s.entry(matchID)
	if err != nil {
		return model.Snapshot{}, err
	}
	if !e.op.TryLock() {
		return model.Snapshot{}, fmt.Errorf("match %s: %w", matchID, ErrConcurrencyConflict)
	}
	defer e.op.Unlock()

	cur := e.current()
	next, events, err := fn(cur)
	if err != nil {
		// Entries above the committed sequence, if any, were never
		// persisted; drop them.
		s.log.TruncateAfter(matchID, cur.LastSequence)
		return model.Snapshot{}, err
	}
	if next == nil {
		return cur.Snapshot(s.now()), nil
	}

	if err := s.persist(ctx, next, events); err != nil {
		// All-or-nothing: discard the uncommitted log entries too.
		s.log.TruncateAfter(matchID, cur.LastSequence)
		return model.Snapshot{}, err
	}

	e.swap(next)
	snap := next.Snapshot(s.now())
	if s.hub != nil {
		s.hub.Publish(matchID, snap)
	}
	return snap, nil
}

// persist writes the aggregate and its new events through the storage
// collaborator under a bounded timeout.
func (s *Service) persist(ctx context.Context, m *model.Match, events []model.ScoreEvent) error {
	pctx, cancel := context.WithTimeout(ctx, s.persistTimeout)
	defer cancel()

	start := time.Now()
	err := s.store.SaveMatch(pctx, m, events)
	metrics.RecordPersistLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordPersistError()
		s.logger.Error(ctx, "storage write failed",
			logger.String("match_id", m.ID),
			logger.Error(err),
		)
		return fmt.Errorf("save match %s: %w: %s", m.ID, ErrPersistence, err)
	}
	return nil
}

func (s *Service) entry(matchID string) (*matchEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.matches[matchID]
	if !ok {
		return nil, fmt.Errorf("match %s: %w", matchID, ErrMatchNotFound)
	}
	return e, nil
}

func (s *Service) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matches)
}
