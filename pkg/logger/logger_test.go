package logger_test

import (
	"testing"

	"github.com/okian/matchpoint/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInitAndGet(t *testing.T) {
	Convey("Given an initialized logger", t, func() {
		So(logger.Init(), ShouldBeNil)

		Convey("Then the global logger is available and nameable", func() {
			log := logger.Get()
			So(log, ShouldNotBeNil)
			So(log.Named("sub"), ShouldNotBeNil)
			So(logger.Named("other"), ShouldNotBeNil)
		})

		Convey("And sync never fails", func() {
			So(logger.Sync(), ShouldBeNil)
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given the known level names", t, func() {
		for _, level := range []string{"debug", "info", "WARN", "warning", "Error", ""} {
			So(logger.SetLevelString(level), ShouldBeNil)
		}

		Convey("Then an unknown name is rejected", func() {
			So(logger.SetLevelString("loud"), ShouldNotBeNil)
		})
	})
}

func TestFields(t *testing.T) {
	Convey("Given the field constructors", t, func() {
		So(logger.String("k", "v").Value, ShouldEqual, "v")
		So(logger.Int("k", 3).Value, ShouldEqual, 3)
		So(logger.Uint64("k", 9).Value, ShouldEqual, uint64(9))
		So(logger.Bool("k", true).Value, ShouldEqual, true)
		So(logger.Any("k", []int{1}).Key, ShouldEqual, "k")
	})
}
