package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if MATCHPOINT_CONFIG is set
//  3. env (prefix MATCHPOINT_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("MATCHPOINT_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrLoadConfig, err)
		}
	}

	// Environment variables: MATCHPOINT_ADDR, MATCHPOINT_ROOM_BUFFER_SIZE, ...
	// Keys keep underscores to match the koanf tags on the struct.
	envProvider := env.Provider("MATCHPOINT_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "matchpoint_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrLoadConfig, err)
	}

	switch {
	case cfg.Addr == "":
		return nil, fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case cfg.DefaultScoringMode != "GOLDEN_POINT" && cfg.DefaultScoringMode != "WIN_BY_TWO":
		return nil, fmt.Errorf("%w: unknown scoring mode %q", ErrInvalidConfig, cfg.DefaultScoringMode)
	case cfg.DefaultPointsToWin <= 0:
		return nil, fmt.Errorf("%w: default_points_to_win must be positive", ErrInvalidConfig)
	case cfg.DefaultTotalSets <= 0 || cfg.DefaultTotalSets%2 == 0:
		return nil, fmt.Errorf("%w: default_total_sets must be a positive odd number", ErrInvalidConfig)
	}
	return &cfg, nil
}
