package loadtest

import (
	"math/rand"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestGenerateMedia(t *testing.T) {
	Convey("Given a catalog generator", t, func() {
		rng := rand.New(rand.NewSource(1))

		Convey("When generating media filenames", func() {
			media := generateMedia(16, rng)

			Convey("Then each filename has a base name, an index and an extension", func() {
				So(media, ShouldHaveLength, 16)
				seen := make(map[string]struct{}, len(media))
				for _, m := range media {
					So(m, ShouldContainSubstring, "_")
					hasExt := false
					for _, ext := range extensions {
						if strings.HasSuffix(m, ext) {
							hasExt = true
						}
					}
					So(hasExt, ShouldBeTrue)
					seen[m] = struct{}{}
				}
				So(seen, ShouldHaveLength, 16)
			})

			Convey("Then base names repeat so groups have multiple members", func() {
				groups := make(map[string]int)
				for _, m := range media {
					groups[strings.SplitN(m, "_", 2)[0]]++
				}
				for _, n := range groups {
					So(n, ShouldBeGreaterThan, 1)
				}
			})
		})
	})
}

func TestGenerateUsers(t *testing.T) {
	Convey("Given a user generator", t, func() {
		Convey("When generating users", func() {
			users := generateUsers(10)

			Convey("Then names are unique and prefixed", func() {
				So(users, ShouldHaveLength, 10)
				seen := make(map[string]struct{}, len(users))
				for _, u := range users {
					So(u, ShouldStartWith, "user_")
					seen[u] = struct{}{}
				}
				So(seen, ShouldHaveLength, 10)
			})
		})
	})
}

func TestRankOrder(t *testing.T) {
	Convey("Given a selection of items", t, func() {
		items := []NextItem{
			{MediaID: "a.jpg"}, {MediaID: "b.jpg"}, {MediaID: "c.jpg"}, {MediaID: "d.jpg"},
		}
		rng := rand.New(rand.NewSource(7))

		Convey("When ranking them", func() {
			order := rankOrder(items, rng)

			Convey("Then the order is a permutation of the ids", func() {
				So(order, ShouldHaveLength, len(items))
				seen := make(map[string]struct{}, len(order))
				for _, id := range order {
					seen[id] = struct{}{}
				}
				for _, it := range items {
					So(seen, ShouldContainKey, it.MediaID)
				}
			})
		})
	})
}
