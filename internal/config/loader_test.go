package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/matchpoint/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLoadDefaults(t *testing.T) {
	Convey("Given no file and no environment overrides", t, func() {
		ctx := context.Background()

		Convey("When the configuration is loaded", func() {
			cfg, err := config.Load(ctx)

			Convey("Then the defaults apply", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":9080")
				So(cfg.LogLevel, ShouldEqual, "info")
				So(cfg.RoomBufferSize, ShouldEqual, 16)
				So(cfg.PersistTimeoutMS, ShouldEqual, 3000)
				So(cfg.PollIntervalMS, ShouldEqual, 2000)
				So(cfg.DefaultPointsToWin, ShouldEqual, 11)
				So(cfg.DefaultTotalSets, ShouldEqual, 3)
				So(cfg.DefaultScoringMode, ShouldEqual, "WIN_BY_TWO")
			})
		})
	})
}

func TestLoadLayering(t *testing.T) {
	Convey("Given a YAML file with overrides", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "config.yaml")
		yaml := "addr: \":7070\"\ndefault_points_to_win: 15\n"
		So(os.WriteFile(path, []byte(yaml), 0o600), ShouldBeNil)
		t.Setenv("MATCHPOINT_CONFIG", path)

		Convey("When the configuration is loaded", func() {
			cfg, err := config.Load(ctx)

			Convey("Then file values win over defaults", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":7070")
				So(cfg.DefaultPointsToWin, ShouldEqual, 15)
				So(cfg.DefaultTotalSets, ShouldEqual, 3)
			})
		})

		Convey("When the environment also overrides", func() {
			t.Setenv("MATCHPOINT_ADDR", ":6060")
			t.Setenv("MATCHPOINT_DEFAULT_SCORING_MODE", "GOLDEN_POINT")
			cfg, err := config.Load(ctx)

			Convey("Then env wins over the file", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":6060")
				So(cfg.DefaultScoringMode, ShouldEqual, "GOLDEN_POINT")
				So(cfg.DefaultPointsToWin, ShouldEqual, 15)
			})
		})
	})

	Convey("Given a config file that does not exist", t, func() {
		t.Setenv("MATCHPOINT_CONFIG", "/nonexistent/config.yaml")
		_, err := config.Load(context.Background())

		Convey("Then loading fails", func() {
			So(errors.Is(err, config.ErrLoadConfig), ShouldBeTrue)
		})
	})
}

func TestLoadValidation(t *testing.T) {
	Convey("Given invalid environment values", t, func() {
		ctx := context.Background()

		Convey("When the scoring mode is unknown", func() {
			t.Setenv("MATCHPOINT_DEFAULT_SCORING_MODE", "RALLY")
			_, err := config.Load(ctx)
			So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("When the point threshold is non-positive", func() {
			t.Setenv("MATCHPOINT_DEFAULT_POINTS_TO_WIN", "0")
			_, err := config.Load(ctx)
			So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("When the set count is non-positive", func() {
			t.Setenv("MATCHPOINT_DEFAULT_TOTAL_SETS", "-1")
			_, err := config.Load(ctx)
			So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("When the set count is even", func() {
			t.Setenv("MATCHPOINT_DEFAULT_TOTAL_SETS", "4")
			_, err := config.Load(ctx)
			So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}
