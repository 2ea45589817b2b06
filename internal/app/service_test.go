package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/gridpick/internal/adapters/repository"
	service "github.com/okian/gridpick/internal/app"
	"github.com/okian/gridpick/internal/domain/model"
	"github.com/okian/gridpick/internal/domain/optimizer"
	"github.com/okian/gridpick/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func sixDriverWeekend() model.Weekend {
	return model.Weekend{
		Track:             "monza",
		DriverScores:      map[string]int{"A": 10, "B": 8, "C": 6, "D": 4, "E": 2, "F": 0},
		DriverPrices:      map[string]float64{"A": 10, "B": 9, "C": 8, "D": 7, "E": 6, "F": 5},
		ConstructorScores: map[string]int{"X": 5, "Y": 3, "Z": 1},
		ConstructorPrices: map[string]float64{"X": 8, "Y": 6, "Z": 4},
		Roster: model.Roster{
			Drivers:      []string{"A", "B", "C", "D", "E"},
			Constructors: []string{"X", "Y"},
		},
		Budget: model.Float64(60),
	}
}

// waitFinished polls until the job leaves the queued and running states.
func waitFinished(ctx context.Context, svc *service.Service, id string) repository.Job {
	deadline := time.Now().Add(10 * time.Second)
	for {
		job, err := svc.Job(ctx, id)
		if err == nil && job.Status.Finished() {
			return job
		}
		if time.Now().After(deadline) {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func startService(opts ...service.Option) *service.Service {
	svc := service.New(append([]service.Option{
		service.WithLogger(logger.Nop()),
		service.WithOptimizer(optimizer.New(optimizer.WithWorkers(2))),
	}, opts...)...)
	if err := svc.Start(context.Background()); err != nil {
		panic(err)
	}
	return svc
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["workerCount"], ShouldEqual, 2)
			So(stats["queueSize"], ShouldEqual, 64)
			So(stats["dedupeSize"], ShouldEqual, 10_000)
			So(stats["jobRetention"], ShouldEqual, 256)
			So(stats["topK"], ShouldEqual, optimizer.DefaultTopK)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(8),
			service.WithQueueSize(500),
			service.WithDedupeSize(25_000),
			service.WithJobRetention(10),
			service.WithOptimizer(optimizer.New(optimizer.WithTopK(5))),
		)

		Convey("Then the options are applied", func() {
			stats := svc.GetStats()
			So(stats["workerCount"], ShouldEqual, 8)
			So(stats["queueSize"], ShouldEqual, 500)
			So(stats["dedupeSize"], ShouldEqual, 25_000)
			So(stats["jobRetention"], ShouldEqual, 10)
			So(stats["topK"], ShouldEqual, 5)
		})
	})

	Convey("Given non-positive options", t, func() {
		svc := service.New(service.WithWorkerCount(0), service.WithQueueSize(-1), service.WithOptimizer(nil))

		Convey("Then they are ignored", func() {
			stats := svc.GetStats()
			So(stats["workerCount"], ShouldEqual, 2)
			So(stats["queueSize"], ShouldEqual, 64)
			So(stats["topK"], ShouldEqual, optimizer.DefaultTopK)
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		Convey("When starting the service", func() {
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			Convey("Then it is started and reports runtime stats", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["queueLength"], ShouldEqual, 0)
				So(stats["jobsRetained"], ShouldEqual, 0)
				So(stats["requestIDs"], ShouldEqual, int64(0))
			})

			Convey("And starting twice is a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})
		})

		Convey("When stopping a started service", func() {
			So(svc.Start(ctx), ShouldBeNil)
			svc.Stop()

			Convey("Then it is marked as stopped and refuses work", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
				_, _, err := svc.Submit(ctx, "", sixDriverWeekend())
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})

			Convey("And stopping again is safe", func() {
				svc.Stop()
			})
		})
	})
}

func TestService_NotStarted(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		svc := service.New()
		ctx := context.Background()

		Convey("Every operation reports ErrNotStarted", func() {
			_, _, err := svc.Submit(ctx, "req", sixDriverWeekend())
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)

			_, err = svc.Job(ctx, "id")
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)

			_, err = svc.Board(ctx, "id", 1)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})
	})
}

func TestService_Submit(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := startService()
		defer svc.Stop()

		Convey("When a weekend is submitted", func() {
			id, dup, err := svc.Submit(ctx, "req-1", sixDriverWeekend())
			So(err, ShouldBeNil)
			So(dup, ShouldBeFalse)
			So(id, ShouldNotBeEmpty)

			Convey("Then the job succeeds with the best lineup on top", func() {
				job := waitFinished(ctx, svc, id)
				So(job.Status, ShouldEqual, repository.JobSucceeded)
				So(job.RequestID, ShouldEqual, "req-1")
				So(job.Track, ShouldEqual, "monza")
				So(job.Summary.Considered, ShouldEqual, 18)
				So(job.Summary.Affordable, ShouldEqual, 18)
				So(job.Summary.Budget, ShouldEqual, 60)
				So(job.StartedAt.IsZero(), ShouldBeFalse)
				So(job.FinishedAt.Before(job.StartedAt), ShouldBeFalse)

				board, err := svc.Board(ctx, id, 3)
				So(err, ShouldBeNil)
				So(board, ShouldHaveLength, 3)
				So(board[0].Team.Score, ShouldEqual, 48)
				So(board[0].Team.SubstitutionsNeeded, ShouldEqual, 0)
				So(board[0].Position, ShouldEqual, 1)
			})

			Convey("Then repeating the request id returns the same job", func() {
				again, dup, err := svc.Submit(ctx, "req-1", sixDriverWeekend())
				So(err, ShouldBeNil)
				So(dup, ShouldBeTrue)
				So(again, ShouldEqual, id)
				So(svc.GetStats()["requestIDs"], ShouldEqual, int64(1))
			})
		})

		Convey("When the same request id is used by two services", func() {
			other := startService()
			defer other.Stop()

			a, _, err := svc.Submit(ctx, "stable", sixDriverWeekend())
			So(err, ShouldBeNil)
			b, _, err := other.Submit(ctx, "stable", sixDriverWeekend())
			So(err, ShouldBeNil)

			Convey("Then both derive the same job id", func() {
				So(b, ShouldEqual, a)
			})
		})

		Convey("When submitting without a request id", func() {
			a, dupA, err := svc.Submit(ctx, "", sixDriverWeekend())
			So(err, ShouldBeNil)
			b, dupB, err := svc.Submit(ctx, "", sixDriverWeekend())
			So(err, ShouldBeNil)

			Convey("Then every submission is a new job", func() {
				So(dupA, ShouldBeFalse)
				So(dupB, ShouldBeFalse)
				So(a, ShouldNotEqual, b)
			})
		})

		Convey("When the weekend cannot be optimized", func() {
			w := sixDriverWeekend()
			w.Roster.Constructors = []string{"X"}
			id, _, err := svc.Submit(ctx, "bad", w)
			So(err, ShouldBeNil)

			Convey("Then the job fails with the cause", func() {
				job := waitFinished(ctx, svc, id)
				So(job.Status, ShouldEqual, repository.JobFailed)
				So(job.Error, ShouldContainSubstring, optimizer.ErrMalformedRoster.Error())

				_, err := svc.Board(ctx, id, 1)
				So(errors.Is(err, repository.ErrJobFailed), ShouldBeTrue)
			})
		})

		Convey("When the job is unknown", func() {
			_, err := svc.Job(ctx, "missing")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}
