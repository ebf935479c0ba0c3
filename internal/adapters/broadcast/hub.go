// Package broadcast fans out ordered match snapshots to subscribed
// connections, one room per match id. Delivery is best-effort and
// non-blocking per subscriber: a slow or gone subscriber never stalls the
// mutation path or delivery to others; dropped snapshots are recovered
// through the reconciler.
package broadcast

import (
	"context"
	"sync"

	"github.com/okian/matchpoint/internal/domain/model"
	"github.com/okian/matchpoint/pkg/logger"
	"github.com/okian/matchpoint/pkg/metrics"
)

const defaultRoomBuffer = 16

// Hub owns the per-match rooms. It has an explicit Start/Stop lifecycle so
// there is no hidden process-wide broadcaster.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]*room
	buffer  int
	started bool
	logger  logger.Logger
}

type room struct {
	mu      sync.Mutex
	last    model.Snapshot
	hasLast bool
	subs    map[string]*subscriber
}

type subscriber struct {
	ch      chan model.Snapshot
	lastSeq uint64
}

// NewHub creates a hub with configuration options.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		rooms:  make(map[string]*room),
		buffer: defaultRoomBuffer,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Start marks the hub ready for subscriptions.
func (h *Hub) Start(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.logger == nil {
		h.logger = logger.Get().Named("broadcast")
	}
	h.started = true
	h.logger.Debug(ctx, "broadcast hub started")
}

// Stop tears down every room and closes all subscriber channels. Publish and
// Subscribe become no-ops afterwards.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.started {
		return
	}
	for _, r := range h.rooms {
		r.mu.Lock()
		for id, sub := range r.subs {
			close(sub.ch)
			delete(r.subs, id)
		}
		r.mu.Unlock()
	}
	h.rooms = make(map[string]*room)
	h.started = false
	metrics.UpdateSubscriberCount(0)
}

// Subscribe registers connID in the match's room and returns the current
// snapshot immediately so the new subscriber need not wait for the next
// event, plus the channel future snapshots arrive on.
func (h *Hub) Subscribe(matchID, connID string) (model.Snapshot, <-chan model.Snapshot, error) {
	h.mu.Lock()
	if !h.started {
		h.mu.Unlock()
		return model.Snapshot{}, nil, ErrStopped
	}
	r, ok := h.rooms[matchID]
	if !ok {
		h.mu.Unlock()
		return model.Snapshot{}, nil, ErrUnknownMatch
	}
	h.mu.Unlock()

	r.mu.Lock()
	if !r.hasLast {
		r.mu.Unlock()
		return model.Snapshot{}, nil, ErrUnknownMatch
	}
	sub := &subscriber{
		ch:      make(chan model.Snapshot, h.buffer),
		lastSeq: r.last.Sequence,
	}
	r.subs[connID] = sub
	last := r.last
	r.mu.Unlock()

	metrics.UpdateSubscriberCount(h.subscriberCount())
	return last, sub.ch, nil
}

// Unsubscribe removes the connection from the room. No-op when already gone.
func (h *Hub) Unsubscribe(matchID, connID string) {
	h.mu.RLock()
	r, ok := h.rooms[matchID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	r.mu.Lock()
	if sub, live := r.subs[connID]; live {
		close(sub.ch)
		delete(r.subs, connID)
	}
	r.mu.Unlock()
	metrics.UpdateSubscriberCount(h.subscriberCount())
}

// Publish delivers snap to every subscriber in the match's room. The room is
// created on first publish; the match service primes it with the initial
// snapshot when a match is registered.
//
// Per connection, delivered sequence numbers are monotonically
// non-decreasing; a snapshot older than the subscriber's last delivery is
// skipped rather than reordered.
func (h *Hub) Publish(matchID string, snap model.Snapshot) {
	h.mu.Lock()
	if !h.started {
		h.mu.Unlock()
		return
	}
	r, ok := h.rooms[matchID]
	if !ok {
		r = &room{subs: make(map[string]*subscriber)}
		h.rooms[matchID] = r
	}
	h.mu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = snap
	r.hasLast = true
	for connID, sub := range r.subs {
		if snap.Sequence < sub.lastSeq {
			continue
		}
		select {
		case sub.ch <- snap:
			sub.lastSeq = snap.Sequence
			metrics.RecordBroadcastSent()
		default:
			// Buffer full: drop and let the subscriber resync. Never
			// surfaced to the publisher.
			metrics.RecordBroadcastDropped()
			if h.logger != nil {
				h.logger.Debug(context.Background(), "dropped snapshot for slow subscriber",
					logger.String("match_id", matchID),
					logger.String("conn_id", connID),
				)
			}
		}
	}
}

// RoomSize reports the number of live subscriptions for a match.
func (h *Hub) RoomSize(matchID string) int {
	h.mu.RLock()
	r, ok := h.rooms[matchID]
	h.mu.RUnlock()
	if !ok {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// subscriberCount sums subscriptions across rooms. Callers must not hold
// room locks.
func (h *Hub) subscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, r := range h.rooms {
		r.mu.Lock()
		total += len(r.subs)
		r.mu.Unlock()
	}
	return total
}
