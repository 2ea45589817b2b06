// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/gridpick/internal/adapters/repository"
	"github.com/okian/gridpick/internal/domain/board"
	"github.com/okian/gridpick/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Submit queues an optimization and returns its job id. duplicate is set
	// when requestID was seen before.
	Submit(ctx context.Context, requestID string, w model.Weekend) (jobID string, duplicate bool, err error)

	// Read operations expose job state and results.
	Job(ctx context.Context, id string) (repository.Job, error)
	Board(ctx context.Context, id string, limit int) ([]board.Entry, error)
}

// Entry mirrors the read shape returned by board queries.
type Entry = board.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler        *HealthHandler
	statsHandler         *StatsHandler
	optimizationsHandler *OptimizationsHandler
}

// NewServer creates a new API server with all handlers. maxLimit bounds the
// board page size.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int) *Server {
	return &Server{
		healthHandler:        NewHealthHandler(),
		statsHandler:         NewStatsHandler(statsProvider),
		optimizationsHandler: NewOptimizationsHandler(deps, maxLimit),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /optimizations", MetricsMiddleware(s.optimizationsHandler.HandleSubmit, "optimizations"))
	mux.HandleFunc("GET /optimizations/{id}", MetricsMiddleware(s.optimizationsHandler.HandleGetJob, "optimization"))
	mux.HandleFunc("GET /optimizations/{id}/board", MetricsMiddleware(s.optimizationsHandler.HandleGetBoard, "board"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
