package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/mediarank/internal/adapters/repository"
	"github.com/okian/mediarank/internal/domain/model"
	"github.com/okian/mediarank/internal/domain/types"
	"github.com/okian/mediarank/pkg/logger"
)

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	if err := setupTestLogger(); err != nil {
		t.Fatalf("init logger: %v", err)
	}

	store, err := repository.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	svc := New(append([]Option{WithStore(store)}, opts...)...)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(svc.Stop)
	return svc
}

func TestSubmitValidation(t *testing.T) {
	Convey("Given a running service", t, func() {
		svc := newTestService(t)
		ctx := context.Background()

		Convey("When the user is empty", func() {
			_, err := svc.Submit(ctx, "", "", []string{"a.mp4", "b.mp4"})
			So(err, ShouldWrap, ErrValidation)
		})

		Convey("When the order has fewer than two items", func() {
			_, err := svc.Submit(ctx, "alice", "", []string{"a.mp4"})
			So(err, ShouldWrap, ErrValidation)
		})

		Convey("When the order exceeds the item cap", func() {
			_, err := svc.Submit(ctx, "alice", "", []string{"a", "b", "c", "d", "e"})
			So(err, ShouldWrap, ErrValidation)
		})

		Convey("When the order repeats an item", func() {
			_, err := svc.Submit(ctx, "alice", "", []string{"a.mp4", "a.mp4"})
			So(err, ShouldWrap, ErrValidation)
		})

		Convey("When the order contains an empty id", func() {
			_, err := svc.Submit(ctx, "alice", "", []string{"a.mp4", ""})
			So(err, ShouldWrap, ErrValidation)
		})
	})
}

func TestSubmitPairwise(t *testing.T) {
	Convey("Given two fresh items", t, func() {
		svc := newTestService(t)
		ctx := context.Background()
		So(svc.RegisterMedia(ctx, []string{"a.mp4", "b.mp4"}), ShouldBeNil)

		Convey("When a two-item order is submitted", func() {
			updated, err := svc.Submit(ctx, "alice", "sub-1", []string{"a.mp4", "b.mp4"})

			Convey("Then both ratings move by exactly the step size", func() {
				So(err, ShouldBeNil)
				So(updated["a.mp4"].Rating, ShouldEqual, 1016)
				So(updated["b.mp4"].Rating, ShouldEqual, 984)
				So(updated["a.mp4"].Count, ShouldEqual, 1)
				So(updated["b.mp4"].Count, ShouldEqual, 1)
			})

			Convey("Then personal ratings track the same outcome", func() {
				So(err, ShouldBeNil)
				So(updated["a.mp4"].UserRating, ShouldEqual, 1016)
				So(updated["b.mp4"].UserRating, ShouldEqual, 984)
				So(updated["a.mp4"].UserCount, ShouldEqual, 1)
			})
		})

		Convey("When a three-item order is submitted", func() {
			So(svc.RegisterMedia(ctx, []string{"c.mp4"}), ShouldBeNil)
			updated, err := svc.Submit(ctx, "alice", "sub-3", []string{"a.mp4", "b.mp4", "c.mp4"})

			Convey("Then every item participates in two comparisons", func() {
				So(err, ShouldBeNil)
				So(updated["a.mp4"].Count, ShouldEqual, 2)
				So(updated["b.mp4"].Count, ShouldEqual, 2)
				So(updated["c.mp4"].Count, ShouldEqual, 2)
			})

			Convey("Then the ordering is reflected in the ratings", func() {
				So(err, ShouldBeNil)
				So(updated["a.mp4"].Rating, ShouldBeGreaterThan, updated["b.mp4"].Rating)
				So(updated["b.mp4"].Rating, ShouldBeGreaterThan, updated["c.mp4"].Rating)
			})
		})
	})
}

func TestSubmitIdempotency(t *testing.T) {
	Convey("Given an applied submission", t, func() {
		svc := newTestService(t)
		ctx := context.Background()
		So(svc.RegisterMedia(ctx, []string{"a.mp4", "b.mp4"}), ShouldBeNil)

		_, err := svc.Submit(ctx, "alice", "sub-1", []string{"a.mp4", "b.mp4"})
		So(err, ShouldBeNil)

		Convey("When the same id is submitted again", func() {
			_, err := svc.Submit(ctx, "alice", "sub-1", []string{"a.mp4", "b.mp4"})

			Convey("Then it is rejected as a duplicate and state is unchanged", func() {
				So(err, ShouldWrap, ErrDuplicate)

				entries, lerr := svc.Leaderboard(ctx, "", 0)
				So(lerr, ShouldBeNil)
				So(entries[0].Rating, ShouldEqual, 1016)
				So(entries[0].Count, ShouldEqual, 1)
			})
		})

		Convey("When no id is supplied", func() {
			_, err := svc.Submit(ctx, "alice", "", []string{"b.mp4", "a.mp4"})

			Convey("Then one is generated and the submission applies", func() {
				So(err, ShouldBeNil)
			})
		})
	})
}

func TestSubmitConcurrent(t *testing.T) {
	Convey("Given many concurrent submissions over the same pair", t, func() {
		svc := newTestService(t)
		ctx := context.Background()
		So(svc.RegisterMedia(ctx, []string{"a.mp4", "b.mp4"}), ShouldBeNil)

		const n = 100
		errs := make([]error, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = svc.Submit(ctx, "alice", fmt.Sprintf("sub-%d", i), []string{"a.mp4", "b.mp4"})
			}(i)
		}
		wg.Wait()

		Convey("Then every submission applies exactly once", func() {
			for i := range errs {
				So(errs[i], ShouldBeNil)
			}

			entries, err := svc.Leaderboard(ctx, "", 0)
			So(err, ShouldBeNil)
			So(entries[0].Count, ShouldEqual, n)
			So(entries[1].Count, ShouldEqual, n)

			// Rating updates are zero-sum.
			So(entries[0].Rating+entries[1].Rating, ShouldAlmostEqual, 2000, 1e-6)
		})
	})
}

func TestSelectNext(t *testing.T) {
	Convey("Given a catalog of five items", t, func() {
		svc := newTestService(t)
		ctx := context.Background()
		So(svc.RegisterMedia(ctx, []string{"a.mp4", "b.mp4", "c.mp4", "d.mp4", "e.mp4"}), ShouldBeNil)

		Convey("When a selection is requested", func() {
			items, err := svc.SelectNext(ctx, "alice")

			Convey("Then a full round of distinct items returns", func() {
				So(err, ShouldBeNil)
				So(len(items), ShouldEqual, 4)

				seen := make(map[string]struct{})
				for _, it := range items {
					seen[it.MediaID] = struct{}{}
					So(it.Rating, ShouldEqual, 1000)
					So(it.LastRatedAt, ShouldBeNil)
				}
				So(len(seen), ShouldEqual, 4)
			})

			Convey("Then repeated rounds avoid the shown combination", func() {
				So(err, ShouldBeNil)
				first := comboOf(items)

				repeats := 0
				// C(5,4)-1 further rounds can each avoid every prior combo.
				for i := 0; i < 4; i++ {
					next, nerr := svc.SelectNext(ctx, "alice")
					So(nerr, ShouldBeNil)
					if comboOf(next) == first {
						repeats++
					}
				}
				So(repeats, ShouldEqual, 0)
			})
		})

		Convey("When the user is empty", func() {
			_, err := svc.SelectNext(ctx, "")
			So(err, ShouldWrap, ErrValidation)
		})
	})

	Convey("Given an empty catalog", t, func() {
		svc := newTestService(t)

		Convey("When a selection is requested", func() {
			_, err := svc.SelectNext(context.Background(), "alice")

			Convey("Then it reports that no media is available", func() {
				So(err, ShouldWrap, ErrNoMedia)
			})
		})
	})
}

func TestLeaderboardAndBests(t *testing.T) {
	Convey("Given a rated catalog", t, func() {
		svc := newTestService(t)
		ctx := context.Background()
		So(svc.RegisterMedia(ctx, []string{"a.mp4", "b.mp4", "c.mp4"}), ShouldBeNil)

		_, err := svc.Submit(ctx, "alice", "s1", []string{"a.mp4", "b.mp4", "c.mp4"})
		So(err, ShouldBeNil)

		Convey("When the leaderboard is requested", func() {
			entries, err := svc.Leaderboard(ctx, "", 0)

			Convey("Then items come highest rating first", func() {
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 3)
				So(entries[0].MediaID, ShouldEqual, "a.mp4")
				So(entries[2].MediaID, ShouldEqual, "c.mp4")
			})
		})

		Convey("When the leaderboard is scoped to the user", func() {
			entries, err := svc.Leaderboard(ctx, "alice", 0)

			Convey("Then personal state rides along", func() {
				So(err, ShouldBeNil)
				So(entries[0].UserRating, ShouldNotBeNil)
				So(*entries[0].UserCount, ShouldEqual, 2)
			})
		})

		Convey("When personal bests are requested", func() {
			highest, lowest, err := svc.PersonalBests(ctx, "alice")

			Convey("Then both ends of the ladder return", func() {
				So(err, ShouldBeNil)
				So(highest[0].MediaID, ShouldEqual, "a.mp4")
				So(lowest[0].MediaID, ShouldEqual, "c.mp4")
			})
		})

		Convey("When bests are requested without a user", func() {
			_, _, err := svc.PersonalBests(ctx, "")
			So(err, ShouldWrap, ErrValidation)
		})
	})
}

func TestGroupStats(t *testing.T) {
	Convey("Given items sharing base names", t, func() {
		svc := newTestService(t)
		ctx := context.Background()
		So(svc.RegisterMedia(ctx, []string{"cat_01.jpg", "cat_02.jpg", "dog_01.jpg"}), ShouldBeNil)

		_, err := svc.Submit(ctx, "alice", "s1", []string{"cat_01.jpg", "dog_01.jpg"})
		So(err, ShouldBeNil)

		Convey("When group stats are requested", func() {
			stats, err := svc.GroupStats(ctx)

			Convey("Then groups aggregate over normalized names", func() {
				So(err, ShouldBeNil)
				So(len(stats), ShouldEqual, 2)

				byName := make(map[string]int)
				for i, g := range stats {
					byName[g.Name] = i
				}
				cat := stats[byName["cat"]]
				dog := stats[byName["dog"]]

				So(cat.Items, ShouldEqual, 2)
				So(cat.Comparisons, ShouldEqual, 1)
				So(cat.MaxRating, ShouldEqual, 1016)
				So(cat.MinRating, ShouldEqual, 1000)
				So(cat.AvgRating, ShouldEqual, 1008)
				So(cat.StdDev, ShouldEqual, 8)

				So(dog.Items, ShouldEqual, 1)
				So(dog.AvgRating, ShouldEqual, 984)
				So(dog.StdDev, ShouldEqual, 0)
			})

			Convey("Then groups come highest average first", func() {
				So(err, ShouldBeNil)
				So(stats[0].Name, ShouldEqual, "cat")
				So(stats[1].Name, ShouldEqual, "dog")
			})
		})
	})
}

func TestGetStats(t *testing.T) {
	Convey("Given a running service with history", t, func() {
		svc := newTestService(t)
		ctx := context.Background()
		So(svc.RegisterMedia(ctx, []string{"a.mp4", "b.mp4"}), ShouldBeNil)
		_, err := svc.Submit(ctx, "alice", "s1", []string{"a.mp4", "b.mp4"})
		So(err, ShouldBeNil)

		Convey("When stats are requested", func() {
			stats := svc.GetStats(ctx)

			Convey("Then counters reflect the state", func() {
				So(stats["started"], ShouldBeTrue)
				So(stats["mediaCount"], ShouldEqual, int64(2))
				So(stats["submissions"], ShouldEqual, int64(1))
				So(stats["submissionsByUser"], ShouldResemble, map[string]int64{"alice": 1})
			})
		})
	})
}

func TestNotStarted(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		svc := New()

		Convey("When any operation is attempted", func() {
			_, err := svc.Submit(context.Background(), "alice", "", []string{"a", "b"})
			So(err, ShouldWrap, ErrNotStarted)

			_, err = svc.SelectNext(context.Background(), "alice")
			So(err, ShouldWrap, ErrNotStarted)
		})
	})
}

func comboOf(items []types.NextItem) string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.MediaID
	}
	return model.ComboKey(ids)
}

var setupOnce sync.Once

func setupTestLogger() error {
	var err error
	setupOnce.Do(func() {
		err = logger.InitWithWriter(io.Discard)
	})
	return err
}
