package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/gridpick/internal/adapters/http/api"
	"github.com/okian/gridpick/internal/adapters/repository"
	service "github.com/okian/gridpick/internal/app"
	"github.com/okian/gridpick/internal/client"
	"github.com/okian/gridpick/internal/domain/model"
	"github.com/okian/gridpick/internal/domain/optimizer"
	"github.com/okian/gridpick/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

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

func newServer(opts ...service.Option) (*httptest.Server, func()) {
	svc := service.New(append([]service.Option{
		service.WithLogger(logger.Nop()),
		service.WithOptimizer(optimizer.New(optimizer.WithWorkers(2))),
	}, opts...)...)
	if err := svc.Start(context.Background()); err != nil {
		panic(err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, svc, 100).Register(mux)
	srv := httptest.NewServer(mux)
	return srv, func() {
		srv.Close()
		svc.Stop()
	}
}

func TestClient_RoundTrip(t *testing.T) {
	Convey("Given a client against a running API", t, func() {
		srv, cleanup := newServer()
		defer cleanup()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		c := client.New(srv.URL+"/", client.WithTimeout(5*time.Second), client.WithPollInterval(5*time.Millisecond))

		Convey("Health succeeds", func() {
			So(c.Health(ctx), ShouldBeNil)
		})

		Convey("A submitted weekend can be waited on and its board read", func() {
			ack, err := c.Submit(ctx, "rt-1", sixDriverWeekend())
			So(err, ShouldBeNil)
			So(ack.Status, ShouldEqual, api.StatusAccepted)

			job, err := c.Wait(ctx, ack.JobID)
			So(err, ShouldBeNil)
			So(job.Status, ShouldEqual, repository.JobSucceeded)
			So(job.BoardSize, ShouldEqual, 18)

			board, err := c.Board(ctx, ack.JobID, 2)
			So(err, ShouldBeNil)
			So(board, ShouldHaveLength, 2)
			So(board[0].Team.Score, ShouldEqual, 48)

			all, err := c.Board(ctx, ack.JobID, 0)
			So(err, ShouldBeNil)
			So(all, ShouldHaveLength, 18)

			again, err := c.Submit(ctx, "rt-1", sixDriverWeekend())
			So(err, ShouldBeNil)
			So(again.Duplicate, ShouldBeTrue)
			So(again.JobID, ShouldEqual, ack.JobID)

			stats, err := c.Stats(ctx)
			So(err, ShouldBeNil)
			So(stats["started"], ShouldEqual, true)
		})

		Convey("A failing weekend surfaces ErrJobFailed", func() {
			w := sixDriverWeekend()
			w.Budget = nil
			delete(w.DriverPrices, "A")
			ack, err := c.Submit(ctx, "", w)
			So(err, ShouldBeNil)

			_, err = c.Wait(ctx, ack.JobID)
			So(errors.Is(err, client.ErrJobFailed), ShouldBeTrue)

			_, err = c.Board(ctx, ack.JobID, 1)
			So(errors.Is(err, client.ErrJobFailed), ShouldBeTrue)
		})

		Convey("Unknown jobs map to ErrNotFound", func() {
			_, err := c.Job(ctx, "nope")
			So(errors.Is(err, client.ErrNotFound), ShouldBeTrue)
			var se *client.StatusError
			So(errors.As(err, &se), ShouldBeTrue)
			So(se.Status, ShouldEqual, http.StatusNotFound)
			So(se.Code, ShouldEqual, "not_found")
		})

		Convey("Invalid submissions return a status error", func() {
			_, err := c.Submit(ctx, "", model.Weekend{})
			var se *client.StatusError
			So(errors.As(err, &se), ShouldBeTrue)
			So(se.Status, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestClient_StatusMapping(t *testing.T) {
	Convey("Given a server answering with fixed statuses", t, func() {
		status := http.StatusOK
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"code":"x","message":"y"}`))
		}))
		defer srv.Close()
		c := client.New(srv.URL)
		ctx := context.Background()

		cases := []struct {
			status int
			kind   error
		}{
			{http.StatusTooManyRequests, client.ErrBackpressure},
			{http.StatusConflict, client.ErrNotReady},
			{http.StatusUnprocessableEntity, client.ErrJobFailed},
			{http.StatusNotFound, client.ErrNotFound},
		}
		for _, tc := range cases {
			status = tc.status
			_, err := c.Job(ctx, "id")
			So(errors.Is(err, tc.kind), ShouldBeTrue)
		}

		status = http.StatusInternalServerError
		So(errors.Is(c.Health(ctx), client.ErrUnhealthy), ShouldBeTrue)
		_, err := c.Job(ctx, "id")
		So(err.Error(), ShouldEqual, "http 500 x: y")
	})
}

func TestRunLoad(t *testing.T) {
	Convey("Given a running API", t, func() {
		srv, cleanup := newServer(service.WithWorkerCount(2))
		defer cleanup()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		c := client.New(srv.URL, client.WithPollInterval(5*time.Millisecond))

		Convey("A small load run finishes every job with an ordered board", func() {
			stats, err := client.RunLoad(ctx, c, client.LoadConfig{
				Weekends:     6,
				Workers:      3,
				Seed:         42,
				Drivers:      8,
				Constructors: 4,
				Top:          10,
			}, logger.Nop())
			So(err, ShouldBeNil)
			So(stats.Submitted, ShouldEqual, 6)
			So(stats.Accepted, ShouldEqual, 6)
			So(stats.Succeeded, ShouldEqual, 6)
			So(stats.Rejected, ShouldEqual, 0)
			So(stats.Duration, ShouldBeGreaterThan, 0)
		})

		Convey("An unreachable service fails the health check", func() {
			_, err := client.RunLoad(ctx, client.New("http://127.0.0.1:1"), client.LoadConfig{Weekends: 1}, logger.Nop())
			So(err, ShouldNotBeNil)
		})
	})
}
