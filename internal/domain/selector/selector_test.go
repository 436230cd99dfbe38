package selector_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/okian/mediarank/internal/domain/model"
	"github.com/okian/mediarank/internal/domain/selector"
	. "github.com/smartystreets/goconvey/convey"
)

func ratedAt(id string, ts time.Time) model.Candidate {
	return model.Candidate{MediaID: id, Rating: model.DefaultRating, LastRatedAt: ts}
}

func fresh(id string) model.Candidate {
	return model.Candidate{MediaID: id, Rating: model.DefaultRating}
}

func ids(combo []model.Candidate) []string {
	out := make([]string, len(combo))
	for i, c := range combo {
		out[i] = c.MediaID
	}
	return out
}

func TestSelector_Pick(t *testing.T) {
	Convey("Given a selector with a deterministic random source", t, func() {
		s := selector.New(selector.WithRand(rand.New(rand.NewSource(1))))
		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

		Convey("When all candidates were rated at different times", func() {
			candidates := []model.Candidate{
				ratedAt("c", base.Add(3*time.Hour)),
				ratedAt("a", base.Add(1*time.Hour)),
				ratedAt("d", base.Add(4*time.Hour)),
				ratedAt("b", base.Add(2*time.Hour)),
			}
			picked := s.Pick(candidates, 2, nil)

			Convey("Then the least recently rated items are chosen first", func() {
				So(ids(picked), ShouldResemble, []string{"a", "b"})
			})
		})

		Convey("When some candidates were never rated", func() {
			candidates := []model.Candidate{
				ratedAt("old", base),
				fresh("new1"),
				ratedAt("older", base.Add(-time.Hour)),
				fresh("new2"),
			}
			picked := s.Pick(candidates, 2, nil)

			Convey("Then never-rated items sort before all rated ones", func() {
				So(ids(picked), ShouldContain, "new1")
				So(ids(picked), ShouldContain, "new2")
			})
		})

		Convey("When the preferred combo was already seen", func() {
			candidates := []model.Candidate{
				ratedAt("a", base.Add(1*time.Minute)),
				ratedAt("b", base.Add(2*time.Minute)),
				ratedAt("c", base.Add(3*time.Minute)),
			}
			seen := map[string]bool{model.ComboKey([]string{"a", "b"}): true}
			picked := s.Pick(candidates, 2, func(key string) bool { return seen[key] })

			Convey("Then the next unseen combination is returned", func() {
				So(ids(picked), ShouldResemble, []string{"a", "c"})
			})
		})

		Convey("When fewer candidates exist than requested", func() {
			picked := s.Pick([]model.Candidate{fresh("only")}, 4, nil)

			Convey("Then the whole pool is returned", func() {
				So(picked, ShouldHaveLength, 1)
			})
		})

		Convey("When there are no candidates", func() {
			Convey("Then nothing is returned", func() {
				So(s.Pick(nil, 4, nil), ShouldBeNil)
			})
		})
	})
}

func TestSelector_ComboExhaustion(t *testing.T) {
	Convey("Given a pool of 5 items presented in groups of 4", t, func() {
		s := selector.New(selector.WithRand(rand.New(rand.NewSource(7))))
		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		pool := []model.Candidate{
			ratedAt("v", base.Add(1*time.Minute)),
			ratedAt("w", base.Add(2*time.Minute)),
			ratedAt("x", base.Add(3*time.Minute)),
			ratedAt("y", base.Add(4*time.Minute)),
			ratedAt("z", base.Add(5*time.Minute)),
		}
		seen := make(map[string]bool)
		seenFn := func(key string) bool { return seen[key] }

		Convey("When picking until every combination has been shown", func() {
			var keys []string
			for i := 0; i < 5; i++ {
				combo := s.Pick(pool, 4, seenFn)
				So(combo, ShouldHaveLength, 4)
				key := model.ComboKey(ids(combo))
				So(seen[key], ShouldBeFalse) // no repeat before exhaustion
				seen[key] = true
				keys = append(keys, key)
			}

			Convey("Then all C(5,4)=5 distinct combinations were produced", func() {
				distinct := make(map[string]bool)
				for _, k := range keys {
					distinct[k] = true
				}
				So(distinct, ShouldHaveLength, 5)
			})

			Convey("And only then a repeat is permitted without deadlock", func() {
				combo := s.Pick(pool, 4, seenFn)
				So(combo, ShouldHaveLength, 4)
				So(seen[model.ComboKey(ids(combo))], ShouldBeTrue)
			})
		})
	})
}
