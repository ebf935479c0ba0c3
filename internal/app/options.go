package service

import (
	"time"

	"github.com/okian/matchpoint/internal/adapters/storage"
	"github.com/okian/matchpoint/internal/domain/model"
	"github.com/okian/matchpoint/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistence collaborator. Defaults to the in-memory
// store when unset.
func WithStore(st storage.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithPublisher sets the broadcast hub committed snapshots are pushed
// through.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.hub = p
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPersistTimeout bounds each storage write.
func WithPersistTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.persistTimeout = d
		}
	}
}

// WithDefaultPointsToWin sets the per-set point threshold used when a match
// spec leaves it zero.
func WithDefaultPointsToWin(points int) Option {
	return func(s *Service) {
		if points > 0 {
			s.pointsToWin = points
		}
	}
}

// WithDefaultTotalSets sets the best-of-N set count used when a match spec
// leaves it zero. Best-of-N requires an odd count; even values are ignored.
func WithDefaultTotalSets(sets int) Option {
	return func(s *Service) {
		if sets > 0 && sets%2 == 1 {
			s.totalSets = sets
		}
	}
}

// WithDefaultScoringMode sets the scoring mode used when a match spec leaves
// it empty.
func WithDefaultScoringMode(mode model.ScoringMode) Option {
	return func(s *Service) {
		if mode.Valid() {
			s.mode = mode
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
