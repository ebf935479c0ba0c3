// Package reconcile serves resync for clients that missed pushes: dropped
// connections, late joiners, and polling-only clients all converge on the
// same contract instead of replaying the event log themselves.
package reconcile

import (
	"context"
	"time"

	"github.com/okian/matchpoint/internal/domain/model"
)

const defaultPollInterval = 2 * time.Second

// SnapshotSource provides the authoritative current snapshot for a match.
type SnapshotSource interface {
	Snapshot(ctx context.Context, matchID string) (model.Snapshot, error)
}

// Reconciler answers "am I current?" for any client holding a sequence
// number.
type Reconciler struct {
	source       SnapshotSource
	pollInterval time.Duration
}

// Option applies a configuration option to the Reconciler.
type Option func(*Reconciler)

// WithPollInterval sets the interval hint returned to polling fallback
// clients.
func WithPollInterval(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.pollInterval = d
		}
	}
}

// New creates a Reconciler over the given snapshot source.
func New(source SnapshotSource, opts ...Option) *Reconciler {
	r := &Reconciler{
		source:       source,
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile compares the caller's last known sequence with the store's
// current one. When they match, changed is false and the caller can keep its
// state; otherwise the full current snapshot is returned.
func (r *Reconciler) Reconcile(ctx context.Context, matchID string, lastKnown uint64) (snap model.Snapshot, changed bool, err error) {
	snap, err = r.source.Snapshot(ctx, matchID)
	if err != nil {
		return model.Snapshot{}, false, err
	}
	return snap, snap.Sequence != lastKnown, nil
}

// PollInterval is the recommended fixed interval for polling fallback
// clients. Push-capable clients use Reconcile only after detecting a
// sequence gap.
func (r *Reconciler) PollInterval() time.Duration {
	return r.pollInterval
}
