package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/okian/gridpick/internal/config"
	"github.com/okian/gridpick/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

const submitBody = `{
	"request_id": "main-1",
	"driver_scores": {"A": 10, "B": 8, "C": 6, "D": 4, "E": 2, "F": 0},
	"driver_prices": {"A": 10, "B": 9, "C": 8, "D": 7, "E": 6, "F": 5},
	"constructor_scores": {"X": 5, "Y": 3, "Z": 1},
	"constructor_prices": {"X": 8, "Y": 6, "Z": 4},
	"roster": {"drivers": ["A", "B", "C", "D", "E"], "constructors": ["X", "Y"]},
	"remaining_cost_cap": 6
}`

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("GRIDPICK_ADDR", ":8080")
			_ = os.Setenv("GRIDPICK_QUEUE_SIZE", "1000")
			_ = os.Setenv("GRIDPICK_WORKER_COUNT", "4")
			defer func() {
				_ = os.Unsetenv("GRIDPICK_ADDR")
				_ = os.Unsetenv("GRIDPICK_QUEUE_SIZE")
				_ = os.Unsetenv("GRIDPICK_WORKER_COUNT")
			}()

			convey.Convey("Then configuration flows into the service", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")

				svc := newService(cfg, logger.Nop())
				stats := svc.GetStats()
				convey.So(stats["queueSize"], convey.ShouldEqual, 1000)
				convey.So(stats["workerCount"], convey.ShouldEqual, 4)
				convey.So(stats["topK"], convey.ShouldEqual, cfg.TopK)
			})
		})

		convey.Convey("When testing invalid configuration", func() {
			_ = os.Setenv("GRIDPICK_ADDR", "")
			defer func() { _ = os.Unsetenv("GRIDPICK_ADDR") }()

			convey.Convey("Then configuration loading should fail", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func TestHTTPServerWiring(t *testing.T) {
	convey.Convey("Given a started service behind the configured server", t, func() {
		cfg := config.New()
		cfg.MaxBoardLimit = 5
		svc := newService(cfg, logger.Nop())
		convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
		defer svc.Stop()

		srv := newHTTPServer(cfg, svc)
		convey.So(srv.Addr, convey.ShouldEqual, cfg.Addr)
		convey.So(srv.ReadHeaderTimeout, convey.ShouldEqual, readHeaderTimeout)

		ts := httptest.NewServer(srv.Handler)
		defer ts.Close()

		convey.Convey("Then health, stats and docs answer", func() {
			resp, err := http.Get(ts.URL + "/healthz")
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)

			resp, err = http.Get(ts.URL + "/stats")
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)

			resp, err = http.Get(ts.URL + "/openapi.yaml")
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("Then a submitted job finishes and the board limit is enforced", func() {
			resp, err := http.Post(ts.URL+"/optimizations", "application/json", strings.NewReader(submitBody))
			convey.So(err, convey.ShouldBeNil)
			var ack struct {
				JobID string `json:"job_id"`
			}
			convey.So(json.NewDecoder(resp.Body).Decode(&ack), convey.ShouldBeNil)
			_ = resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusAccepted)

			var job struct {
				Status string `json:"status"`
			}
			deadline := time.Now().Add(5 * time.Second)
			for time.Now().Before(deadline) && job.Status != "succeeded" {
				r, err := http.Get(ts.URL + "/optimizations/" + ack.JobID)
				convey.So(err, convey.ShouldBeNil)
				_ = json.NewDecoder(r.Body).Decode(&job)
				_ = r.Body.Close()
				time.Sleep(10 * time.Millisecond)
			}
			convey.So(job.Status, convey.ShouldEqual, "succeeded")

			r, err := http.Get(ts.URL + "/optimizations/" + ack.JobID + "/board?limit=6")
			convey.So(err, convey.ShouldBeNil)
			_ = r.Body.Close()
			convey.So(r.StatusCode, convey.ShouldEqual, http.StatusBadRequest)

			r, err = http.Get(ts.URL + "/optimizations/" + ack.JobID + "/board")
			convey.So(err, convey.ShouldBeNil)
			var board []json.RawMessage
			convey.So(json.NewDecoder(r.Body).Decode(&board), convey.ShouldBeNil)
			_ = r.Body.Close()
			convey.So(board, convey.ShouldHaveLength, 5)
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		svc := newService(config.New(), logger.Nop())

		convey.Convey("The updaters return once the context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
			convey.So(func() { startServiceMetricsUpdater(ctx, svc) }, convey.ShouldNotPanic)
		})

		convey.Convey("The one-shot updates do not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
		})
	})
}
