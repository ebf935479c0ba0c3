package broadcast

import "github.com/okian/matchpoint/pkg/logger"

// Option applies a configuration option to the Hub.
type Option func(*Hub)

// WithRoomBuffer sets the per-subscriber channel buffer. When a subscriber
// falls this many snapshots behind, further deliveries to it are dropped
// until it drains or resyncs.
func WithRoomBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithLogger sets a custom logger for the hub.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}
