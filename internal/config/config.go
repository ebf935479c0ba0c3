// Package config defines service configuration structures and loading hooks.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// RoomBufferSize bounds each subscriber's snapshot channel; slower
	// subscribers get drops and resync.
	RoomBufferSize int `koanf:"room_buffer_size"`

	// PersistTimeoutMS bounds each storage write.
	PersistTimeoutMS int `koanf:"persist_timeout_ms"`

	// PollIntervalMS is the recommended interval for polling fallback
	// clients, surfaced in sync responses.
	PollIntervalMS int `koanf:"poll_interval_ms"`

	// DefaultPointsToWin is the per-set point threshold used when a match
	// is created without one.
	DefaultPointsToWin int `koanf:"default_points_to_win"`

	// DefaultTotalSets is the best-of-N set count used when a match is
	// created without one.
	DefaultTotalSets int `koanf:"default_total_sets"`

	// DefaultScoringMode is GOLDEN_POINT or WIN_BY_TWO.
	DefaultScoringMode string `koanf:"default_scoring_mode"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":9080",
		RoomBufferSize:     16,
		PersistTimeoutMS:   3000,
		PollIntervalMS:     2000,
		DefaultPointsToWin: 11,
		DefaultTotalSets:   3,
		DefaultScoringMode: "WIN_BY_TWO",
	}
}
