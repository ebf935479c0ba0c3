// Package storage defines the persistence contract for match state and the
// append-only score event table. The service treats the store as an external
// collaborator: every mutation is written through it atomically before the
// in-memory aggregate is updated.
package storage

import (
	"context"

	"github.com/okian/matchpoint/internal/domain/model"
)

// Store provides durable read/write access to match state.
type Store interface {
	// SaveMatch writes the match row and appends newEvents in one
	// transaction. The write either commits fully or not at all; on error
	// the caller rolls back its in-memory state.
	SaveMatch(ctx context.Context, m *model.Match, newEvents []model.ScoreEvent) error

	// LoadMatch returns the match row and its full event sequence.
	// Returns ErrNotFound for unknown ids.
	LoadMatch(ctx context.Context, matchID string) (*model.Match, []model.ScoreEvent, error)

	// ListMatches returns all persisted matches.
	ListMatches(ctx context.Context) ([]*model.Match, error)
}
