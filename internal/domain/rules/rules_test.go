package rules_test

import (
	"testing"

	"github.com/okian/matchpoint/internal/domain/model"
	"github.com/okian/matchpoint/internal/domain/rules"
	. "github.com/smartystreets/goconvey/convey"
)

func TestIsSetComplete(t *testing.T) {
	Convey("Given a set played to 11 under golden point", t, func() {
		Convey("Then reaching the threshold ends the set regardless of margin", func() {
			So(rules.IsSetComplete(11, 9, 11, model.GoldenPoint), ShouldBeTrue)
			So(rules.IsSetComplete(11, 10, 11, model.GoldenPoint), ShouldBeTrue)
			So(rules.IsSetComplete(10, 11, 11, model.GoldenPoint), ShouldBeTrue)
			So(rules.IsSetComplete(11, 0, 11, model.GoldenPoint), ShouldBeTrue)
		})

		Convey("And the set continues below the threshold", func() {
			So(rules.IsSetComplete(10, 9, 11, model.GoldenPoint), ShouldBeFalse)
			So(rules.IsSetComplete(0, 0, 11, model.GoldenPoint), ShouldBeFalse)
		})
	})

	Convey("Given a set played to 11 under win-by-two", t, func() {
		Convey("Then the threshold alone is not enough", func() {
			So(rules.IsSetComplete(11, 10, 11, model.WinByTwo), ShouldBeFalse)
			So(rules.IsSetComplete(10, 11, 11, model.WinByTwo), ShouldBeFalse)
			So(rules.IsSetComplete(12, 11, 11, model.WinByTwo), ShouldBeFalse)
		})

		Convey("And a two-point lead at or past the threshold ends it", func() {
			So(rules.IsSetComplete(11, 9, 11, model.WinByTwo), ShouldBeTrue)
			So(rules.IsSetComplete(9, 11, 11, model.WinByTwo), ShouldBeTrue)
			So(rules.IsSetComplete(13, 11, 11, model.WinByTwo), ShouldBeTrue)
			So(rules.IsSetComplete(15, 2, 11, model.WinByTwo), ShouldBeTrue)
		})

		Convey("And deuce play keeps going", func() {
			So(rules.IsSetComplete(10, 10, 11, model.WinByTwo), ShouldBeFalse)
			So(rules.IsSetComplete(14, 13, 11, model.WinByTwo), ShouldBeFalse)
		})
	})

	Convey("Given degenerate inputs", t, func() {
		Convey("Then a non-positive threshold never completes a set", func() {
			So(rules.IsSetComplete(5, 0, 0, model.GoldenPoint), ShouldBeFalse)
			So(rules.IsSetComplete(5, 0, -1, model.WinByTwo), ShouldBeFalse)
		})

		Convey("And an unknown mode never completes a set", func() {
			So(rules.IsSetComplete(11, 0, 11, model.ScoringMode("RALLY")), ShouldBeFalse)
		})
	})
}

func TestIsMatchComplete(t *testing.T) {
	Convey("Given a best-of-three match", t, func() {
		Convey("Then two sets win it even with the third unplayed", func() {
			So(rules.IsMatchComplete(2, 0, 3), ShouldBeTrue)
			So(rules.IsMatchComplete(0, 2, 3), ShouldBeTrue)
			So(rules.IsMatchComplete(2, 1, 3), ShouldBeTrue)
		})

		Convey("And one set each decides nothing", func() {
			So(rules.IsMatchComplete(1, 1, 3), ShouldBeFalse)
			So(rules.IsMatchComplete(1, 0, 3), ShouldBeFalse)
			So(rules.IsMatchComplete(0, 0, 3), ShouldBeFalse)
		})
	})

	Convey("Given a best-of-five match", t, func() {
		So(rules.IsMatchComplete(3, 1, 5), ShouldBeTrue)
		So(rules.IsMatchComplete(2, 2, 5), ShouldBeFalse)
	})

	Convey("Given a degenerate set count", t, func() {
		So(rules.IsMatchComplete(1, 0, 0), ShouldBeFalse)
	})
}

func TestSetsToWin(t *testing.T) {
	Convey("Given best-of-N matches", t, func() {
		So(rules.SetsToWin(1), ShouldEqual, 1)
		So(rules.SetsToWin(3), ShouldEqual, 2)
		So(rules.SetsToWin(5), ShouldEqual, 3)
		So(rules.SetsToWin(7), ShouldEqual, 4)
	})
}
