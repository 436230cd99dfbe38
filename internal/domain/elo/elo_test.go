package elo_test

import (
	"testing"

	"github.com/okian/mediarank/internal/domain/elo"
	. "github.com/smartystreets/goconvey/convey"
)

func TestExpected(t *testing.T) {
	Convey("Given two equally rated players", t, func() {
		Convey("Then the expected score is exactly one half for both", func() {
			So(elo.Expected(1000, 1000), ShouldEqual, 0.5)
			So(elo.Expected(1500, 1500), ShouldEqual, 0.5)
		})
	})

	Convey("Given a stronger and a weaker player", t, func() {
		ea := elo.Expected(1200, 1000)
		eb := elo.Expected(1000, 1200)

		Convey("Then the stronger side expects more than half", func() {
			So(ea, ShouldBeGreaterThan, 0.5)
			So(eb, ShouldBeLessThan, 0.5)
		})

		Convey("And the two expectations sum to one", func() {
			So(ea+eb, ShouldAlmostEqual, 1.0, 1e-12)
		})
	})
}

func TestRate(t *testing.T) {
	Convey("Given two fresh items at the default rating", t, func() {
		winner, loser := elo.Rate(1000, 1000)

		Convey("Then one win moves both ratings by exactly 16 points", func() {
			So(winner, ShouldEqual, 1016.0)
			So(loser, ShouldEqual, 984.0)
		})
	})

	Convey("Given an upset where the lower-rated item wins", t, func() {
		winner, loser := elo.Rate(1000, 1400)

		Convey("Then the winner gains strictly and the loser drops strictly", func() {
			So(winner, ShouldBeGreaterThan, 1000)
			So(loser, ShouldBeLessThan, 1400)
		})

		Convey("And the deltas match K*(1-Ea) and K*(0-Eb) exactly", func() {
			ea := elo.Expected(1000, 1400)
			eb := elo.Expected(1400, 1000)
			So(winner-1000, ShouldEqual, elo.K*(1-ea))
			So(loser-1400, ShouldEqual, elo.K*(0-eb))
		})

		Convey("And an upset moves ratings more than an expected win", func() {
			expectedWinner, _ := elo.Rate(1400, 1000)
			So(winner-1000, ShouldBeGreaterThan, expectedWinner-1400)
		})
	})

	Convey("Given identical inputs applied twice", t, func() {
		w1, l1 := elo.Rate(1234.5678, 987.654)
		w2, l2 := elo.Rate(1234.5678, 987.654)

		Convey("Then the results are bit-for-bit reproducible", func() {
			So(w1, ShouldEqual, w2)
			So(l1, ShouldEqual, l2)
		})
	})
}

func TestPairs(t *testing.T) {
	Convey("Given a four-item ranking order", t, func() {
		pairs := elo.Pairs([]string{"a", "b", "c", "d"})

		Convey("Then six pairwise outcomes are derived", func() {
			So(pairs, ShouldHaveLength, 6)
		})

		Convey("And every higher-ranked item wins against every lower one", func() {
			So(pairs[0], ShouldResemble, elo.Pair{Winner: "a", Loser: "b"})
			So(pairs[1], ShouldResemble, elo.Pair{Winner: "a", Loser: "c"})
			So(pairs[2], ShouldResemble, elo.Pair{Winner: "a", Loser: "d"})
			So(pairs[3], ShouldResemble, elo.Pair{Winner: "b", Loser: "c"})
			So(pairs[4], ShouldResemble, elo.Pair{Winner: "b", Loser: "d"})
			So(pairs[5], ShouldResemble, elo.Pair{Winner: "c", Loser: "d"})
		})
	})

	Convey("Given a two-item order", t, func() {
		Convey("Then exactly one pair is derived", func() {
			So(elo.Pairs([]string{"x", "y"}), ShouldResemble, []elo.Pair{{Winner: "x", Loser: "y"}})
		})
	})

	Convey("Given fewer than two items", t, func() {
		Convey("Then no pairs are derived", func() {
			So(elo.Pairs(nil), ShouldBeNil)
			So(elo.Pairs([]string{"solo"}), ShouldBeNil)
		})
	})
}
