package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/mediarank/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a fresh deduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper()

		Convey("When recording a new submission id", func() {
			seen := d.SeenAndRecord(ctx, "sub-1")

			Convey("Then it is reported as not seen", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And recording the same id again reports seen", func() {
				So(d.SeenAndRecord(ctx, "sub-1"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When unrecording a failed submission", func() {
			d.SeenAndRecord(ctx, "sub-2")
			d.Unrecord(ctx, "sub-2")

			Convey("Then the id can be recorded again", func() {
				So(d.SeenAndRecord(ctx, "sub-2"), ShouldBeFalse)
			})
		})

		Convey("When unrecording an unknown id", func() {
			d.Unrecord(ctx, "never-recorded")

			Convey("Then the size is unchanged", func() {
				So(d.Size(), ShouldEqual, 0)
			})
		})
	})
}

func TestInMemoryDeduper_Eviction(t *testing.T) {
	Convey("Given a bounded deduper of size 3", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))

		Convey("When recording more ids than the bound", func() {
			for i := 0; i < 5; i++ {
				So(d.SeenAndRecord(ctx, fmt.Sprintf("sub-%d", i)), ShouldBeFalse)
			}

			Convey("Then the size stays at the bound", func() {
				So(d.Size(), ShouldEqual, 3)
			})

			Convey("And the newest ids are kept while the oldest were evicted", func() {
				So(d.SeenAndRecord(ctx, "sub-4"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "sub-0"), ShouldBeFalse) // evicted, re-admitted
			})
		})
	})
}

func TestInMemoryDeduper_Concurrent(t *testing.T) {
	Convey("Given many goroutines racing on the same id", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper()

		const goroutines = 64
		var wg sync.WaitGroup
		recorded := make(chan bool, goroutines)

		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				recorded <- !d.SeenAndRecord(ctx, "contested")
			}()
		}
		wg.Wait()
		close(recorded)

		Convey("Then exactly one goroutine records it first", func() {
			wins := 0
			for first := range recorded {
				if first {
					wins++
				}
			}
			So(wins, ShouldEqual, 1)
			So(d.Size(), ShouldEqual, 1)
		})
	})
}
