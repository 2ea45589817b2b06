package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/gridpick/internal/adapters/http/api"
	"github.com/okian/gridpick/internal/adapters/mq/queue"
	"github.com/okian/gridpick/internal/adapters/repository"
	service "github.com/okian/gridpick/internal/app"
	"github.com/okian/gridpick/internal/domain/model"
	"github.com/okian/gridpick/internal/domain/optimizer"
	. "github.com/smartystreets/goconvey/convey"
)

const testMaxLimit = 100

type submitCall struct {
	requestID string
	weekend   model.Weekend
}

// Mock implementations for testing
type mockDependencies struct {
	submitted []submitCall
	duplicate bool
	submitErr error

	job    repository.Job
	jobErr error

	board     []repository.Entry
	boardErr  error
	lastLimit int
}

func (m *mockDependencies) Submit(_ context.Context, requestID string, w model.Weekend) (string, bool, error) {
	if m.submitErr != nil {
		return "", false, m.submitErr
	}
	m.submitted = append(m.submitted, submitCall{requestID: requestID, weekend: w})
	return "job-1", m.duplicate, nil
}

func (m *mockDependencies) Job(_ context.Context, _ string) (repository.Job, error) {
	return m.job, m.jobErr
}

func (m *mockDependencies) Board(_ context.Context, _ string, limit int) ([]repository.Entry, error) {
	m.lastLimit = limit
	if m.boardErr != nil {
		return nil, m.boardErr
	}
	if limit > len(m.board) {
		return m.board, nil
	}
	return m.board[:limit], nil
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newMux(deps api.Dependencies) *http.ServeMux {
	mux := http.NewServeMux()
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}}, testMaxLimit)
	server.Register(mux)
	return mux
}

func do(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

const validWeekend = `{
	"track": "monza",
	"driver_scores": {"A": 10, "B": 8, "C": 6, "D": 4, "E": 2, "F": 0},
	"driver_prices": {"A": 10, "B": 9, "C": 8, "D": 7, "E": 6, "F": 5},
	"constructor_scores": {"X": 5, "Y": 3, "Z": 1},
	"constructor_prices": {"X": 8, "Y": 6, "Z": 4},
	"roster": {"drivers": ["A", "B", "C", "D", "E"], "constructors": ["X", "Y"]},
	"budget": 60
}`

func withRequestID(id string) string {
	return `{"request_id": "` + id + `",` + strings.TrimPrefix(validWeekend, "{")
}

func entries(n int) []repository.Entry {
	out := make([]repository.Entry, n)
	for i := range out {
		out[i] = repository.Entry{Position: i + 1, Rank: i + 1, Team: model.Team{Score: 50 - i}}
	}
	return out
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux(&mockDependencies{})

		Convey("Health endpoint serves metrics", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Stats endpoint serves JSON", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "application/json")

			var stats map[string]interface{}
			So(json.Unmarshal(w.Body.Bytes(), &stats), ShouldBeNil)
			So(stats["started"], ShouldEqual, true)
		})

		Convey("Wrong methods are rejected", func() {
			w := do(mux, http.MethodGet, "/optimizations", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("Unknown paths are not found", func() {
			w := do(mux, http.MethodGet, "/leaderboard", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestOptimizationsHandler_HandleSubmit(t *testing.T) {
	Convey("Given an optimizations handler", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When submitting a valid weekend", func() {
			w := do(mux, http.MethodPost, "/optimizations", withRequestID("req-1"))

			Convey("Then it is accepted and forwarded", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				var resp api.SubmitResponse
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.JobID, ShouldEqual, "job-1")
				So(resp.Status, ShouldEqual, api.StatusAccepted)
				So(resp.Duplicate, ShouldBeFalse)

				So(deps.submitted, ShouldHaveLength, 1)
				call := deps.submitted[0]
				So(call.requestID, ShouldEqual, "req-1")
				So(call.weekend.Track, ShouldEqual, "monza")
				So(call.weekend.DriverScores["A"], ShouldEqual, 10)
				So(*call.weekend.Budget, ShouldEqual, 60)
				So(call.weekend.Roster.Constructors, ShouldResemble, []string{"X", "Y"})
			})
		})

		Convey("When the request id was seen before", func() {
			deps.duplicate = true
			w := do(mux, http.MethodPost, "/optimizations", withRequestID("req-1"))

			Convey("Then it returns the existing job as a duplicate", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp api.SubmitResponse
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.Status, ShouldEqual, api.StatusDuplicate)
				So(resp.Duplicate, ShouldBeTrue)
			})
		})

		Convey("When the body is not JSON", func() {
			w := do(mux, http.MethodPost, "/optimizations", "{not json")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(deps.submitted, ShouldBeEmpty)
		})

		Convey("When the roster is malformed", func() {
			body := strings.Replace(validWeekend, `["X", "Y"]`, `["X", "X"]`, 1)
			w := do(mux, http.MethodPost, "/optimizations", body)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, "bad_request")
		})

		Convey("When driver scores are missing", func() {
			body := strings.Replace(validWeekend, `"driver_scores": {"A": 10, "B": 8, "C": 6, "D": 4, "E": 2, "F": 0},`, "", 1)
			w := do(mux, http.MethodPost, "/optimizations", body)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the budget is negative", func() {
			body := strings.Replace(validWeekend, `"budget": 60`, `"budget": -1`, 1)
			w := do(mux, http.MethodPost, "/optimizations", body)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the request id is too long", func() {
			w := do(mux, http.MethodPost, "/optimizations", withRequestID(strings.Repeat("r", 129)))
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the queue is full", func() {
			deps.submitErr = fmt.Errorf("%w: %w", service.ErrBackpressure, queue.ErrFull)
			w := do(mux, http.MethodPost, "/optimizations", validWeekend)
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			So(w.Body.String(), ShouldContainSubstring, "backpressure")
		})

		Convey("When the service fails otherwise", func() {
			deps.submitErr = errors.New("boom")
			w := do(mux, http.MethodPost, "/optimizations", validWeekend)
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
		})
	})
}

func TestOptimizationsHandler_HandleGetJob(t *testing.T) {
	Convey("Given an optimizations handler", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When the job exists", func() {
			deps.job = repository.Job{
				ID:      "job-1",
				Status:  repository.JobSucceeded,
				Summary: repository.Summary{Considered: 18, Affordable: 18, Budget: 60},
				Board:   entries(3),
			}
			w := do(mux, http.MethodGet, "/optimizations/job-1", "")

			Convey("Then it reports status, summary and board size", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp map[string]interface{}
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp["id"], ShouldEqual, "job-1")
				So(resp["status"], ShouldEqual, "succeeded")
				So(resp["board_size"], ShouldEqual, float64(3))
				So(resp, ShouldNotContainKey, "Board")
				summary := resp["summary"].(map[string]interface{})
				So(summary["considered"], ShouldEqual, float64(18))
			})
		})

		Convey("When the job is unknown", func() {
			deps.jobErr = fmt.Errorf("%w: nope", repository.ErrNotFound)
			w := do(mux, http.MethodGet, "/optimizations/nope", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(w.Body.String(), ShouldContainSubstring, "not_found")
		})
	})
}

func TestOptimizationsHandler_HandleGetBoard(t *testing.T) {
	Convey("Given an optimizations handler with a finished job", t, func() {
		deps := &mockDependencies{board: entries(5)}
		mux := newMux(deps)

		Convey("When no limit is given the maximum is requested", func() {
			w := do(mux, http.MethodGet, "/optimizations/job-1/board", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastLimit, ShouldEqual, testMaxLimit)

			var got []api.Entry
			So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
			So(got, ShouldHaveLength, 5)
			So(got[0].Team.Score, ShouldEqual, 50)
		})

		Convey("When a limit is given it is honoured", func() {
			w := do(mux, http.MethodGet, "/optimizations/job-1/board?limit=2", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var got []api.Entry
			So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
			So(got, ShouldHaveLength, 2)
		})

		Convey("When the limit is invalid", func() {
			for _, q := range []string{"0", "-3", "abc"} {
				w := do(mux, http.MethodGet, "/optimizations/job-1/board?limit="+q, "")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			}
		})

		Convey("When the limit exceeds the maximum", func() {
			w := do(mux, http.MethodGet, fmt.Sprintf("/optimizations/job-1/board?limit=%d", testMaxLimit+1), "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, "limit_exceeded")
		})

		Convey("When the job maps to an error", func() {
			cases := []struct {
				err  error
				code int
			}{
				{fmt.Errorf("%w: x", repository.ErrNotFound), http.StatusNotFound},
				{fmt.Errorf("%w: x is running", repository.ErrJobNotReady), http.StatusConflict},
				{fmt.Errorf("%w: insufficient pool", repository.ErrJobFailed), http.StatusUnprocessableEntity},
				{repository.ErrInvalidLimit, http.StatusBadRequest},
				{errors.New("boom"), http.StatusInternalServerError},
			}
			for _, c := range cases {
				deps.boardErr = c.err
				w := do(mux, http.MethodGet, "/optimizations/x/board", "")
				So(w.Code, ShouldEqual, c.code)
			}
		})
	})
}

func TestErrorKinds(t *testing.T) {
	Convey("Kinded errors unwrap to both the kind and the cause", t, func() {
		cause := errors.New("eof")
		err := api.WrapKind("api.op", api.ErrBadRequest, cause)
		So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
		So(errors.Is(err, cause), ShouldBeTrue)
		So(err.Error(), ShouldEqual, "api.op: bad request: eof")

		So(api.NewKind("api.op", api.ErrBackpressure).Error(), ShouldEqual, "api.op: backpressure")
		So(api.Wrap("api.op", nil), ShouldBeNil)
		So(errors.Is(api.Wrap("api.op", cause), cause), ShouldBeTrue)
	})
}

func TestAPI_EndToEnd(t *testing.T) {
	Convey("Given a running service behind the API", t, func() {
		ctx := context.Background()
		svc := service.New(
			service.WithWorkerCount(1),
			service.WithOptimizer(optimizer.New(optimizer.WithWorkers(2))),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		mux := http.NewServeMux()
		api.NewServer(svc, svc, testMaxLimit).Register(mux)

		Convey("A submitted weekend can be polled and its board read", func() {
			w := do(mux, http.MethodPost, "/optimizations", withRequestID("e2e"))
			So(w.Code, ShouldEqual, http.StatusAccepted)
			var ack api.SubmitResponse
			So(json.Unmarshal(w.Body.Bytes(), &ack), ShouldBeNil)

			var job api.JobResponse
			deadline := time.Now().Add(5 * time.Second)
			for time.Now().Before(deadline) {
				w = do(mux, http.MethodGet, "/optimizations/"+ack.JobID, "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(json.Unmarshal(w.Body.Bytes(), &job), ShouldBeNil)
				if job.Status.Finished() {
					break
				}
				time.Sleep(10 * time.Millisecond)
			}
			So(job.Status, ShouldEqual, repository.JobSucceeded)
			So(job.Summary.Considered, ShouldEqual, 18)
			So(job.BoardSize, ShouldEqual, 18)

			w = do(mux, http.MethodGet, "/optimizations/"+ack.JobID+"/board?limit=1", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var board []api.Entry
			So(json.Unmarshal(w.Body.Bytes(), &board), ShouldBeNil)
			So(board, ShouldHaveLength, 1)
			So(board[0].Team.Score, ShouldEqual, 48)
			So(board[0].Team.ProposedValue, ShouldEqual, 54)

			w = do(mux, http.MethodPost, "/optimizations", withRequestID("e2e"))
			So(w.Code, ShouldEqual, http.StatusOK)
		})
	})
}
