package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	dedupe "github.com/okian/gridpick/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		ctx := context.Background()

		Convey("When creating a deduper with default options", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("Then it should start empty", func() {
				So(d, ShouldNotBeNil)
				So(d.Size(), ShouldEqual, 0)
			})
		})

		Convey("When remembering request ids", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("And the request id is new", func() {
				jobID, seen := d.Remember(ctx, "req-1", "job-1")

				Convey("Then it should store the job id", func() {
					So(seen, ShouldBeFalse)
					So(jobID, ShouldEqual, "job-1")
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the request id was already seen", func() {
				d.Remember(ctx, "req-1", "job-1")
				jobID, seen := d.Remember(ctx, "req-1", "job-2")

				Convey("Then it should return the original job id", func() {
					So(seen, ShouldBeTrue)
					So(jobID, ShouldEqual, "job-1")
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the request id is looked up", func() {
				d.Remember(ctx, "req-1", "job-1")

				Convey("Then known ids resolve and unknown ids do not", func() {
					jobID, ok := d.Lookup(ctx, "req-1")
					So(ok, ShouldBeTrue)
					So(jobID, ShouldEqual, "job-1")
					_, ok = d.Lookup(ctx, "req-2")
					So(ok, ShouldBeFalse)
				})
			})
		})

		Convey("When forgetting a request id", func() {
			d := dedupe.NewInMemoryDeduper()
			d.Remember(ctx, "req-1", "job-1")
			d.Forget(ctx, "req-1")

			Convey("Then it can be remembered again", func() {
				So(d.Size(), ShouldEqual, 0)
				jobID, seen := d.Remember(ctx, "req-1", "job-2")
				So(seen, ShouldBeFalse)
				So(jobID, ShouldEqual, "job-2")
			})

			Convey("Then forgetting an unknown id is a no-op", func() {
				d.Forget(ctx, "missing")
				So(d.Size(), ShouldEqual, 0)
			})
		})

		Convey("When the deduper is bounded", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
			for i := 0; i < 4; i++ {
				d.Remember(ctx, fmt.Sprintf("req-%d", i), fmt.Sprintf("job-%d", i))
			}

			Convey("Then the oldest request id is evicted", func() {
				So(d.Size(), ShouldEqual, 3)
				_, ok := d.Lookup(ctx, "req-0")
				So(ok, ShouldBeFalse)
				_, ok = d.Lookup(ctx, "req-3")
				So(ok, ShouldBeTrue)
			})
		})

		Convey("When the deduper is unbounded", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
			for i := 0; i < 1000; i++ {
				d.Remember(ctx, fmt.Sprintf("req-%d", i), "job")
			}

			Convey("Then nothing is evicted", func() {
				So(d.Size(), ShouldEqual, 1000)
			})
		})

		Convey("When many goroutines submit the same request id", func() {
			d := dedupe.NewInMemoryDeduper()
			var (
				wg    sync.WaitGroup
				mu    sync.Mutex
				fresh int
			)
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					if _, seen := d.Remember(ctx, "req", fmt.Sprintf("job-%d", i)); !seen {
						mu.Lock()
						fresh++
						mu.Unlock()
					}
				}(i)
			}
			wg.Wait()

			Convey("Then exactly one wins", func() {
				So(fresh, ShouldEqual, 1)
				So(d.Size(), ShouldEqual, 1)
			})
		})
	})
}
