package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/okian/gridpick/internal/adapters/mq/queue"
	"github.com/okian/gridpick/internal/adapters/repository"
	"github.com/okian/gridpick/internal/domain/model"
)

// Submission statuses.
const (
	StatusAccepted  = "accepted"
	StatusDuplicate = "duplicate"
)

// OptimizationRequest is the body of POST /optimizations: the weekend plus an
// optional idempotency key.
type OptimizationRequest struct {
	RequestID string `json:"request_id,omitempty" validate:"max=128"`
	model.Weekend
}

// SubmitResponse acknowledges a submission.
type SubmitResponse struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// JobResponse is the polling view of a job.
type JobResponse struct {
	repository.Job
	BoardSize int `json:"board_size"`
}

// OptimizationsHandler serves the job endpoints.
type OptimizationsHandler struct {
	deps     Dependencies
	maxLimit int
	validate *validator.Validate
}

// NewOptimizationsHandler creates a new optimizations handler.
func NewOptimizationsHandler(deps Dependencies, maxLimit int) *OptimizationsHandler {
	return &OptimizationsHandler{
		deps:     deps,
		maxLimit: maxLimit,
		validate: validator.New(),
	}
}

// HandleSubmit handles POST /optimizations requests.
func (h *OptimizationsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_optimization"
	var req OptimizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	jobID, duplicate, err := h.deps.Submit(r.Context(), req.RequestID, req.Weekend)
	switch {
	case errors.Is(err, queue.ErrFull), errors.Is(err, queue.ErrClosed):
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}

	if duplicate {
		writeJSON(w, http.StatusOK, SubmitResponse{JobID: jobID, Status: StatusDuplicate, Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, SubmitResponse{JobID: jobID, Status: StatusAccepted})
}

// HandleGetJob handles GET /optimizations/{id} requests.
func (h *OptimizationsHandler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_optimization"
	job, err := h.deps.Job(r.Context(), r.PathValue("id"))
	if err != nil {
		writeJobError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, JobResponse{Job: job, BoardSize: len(job.Board)})
}

// HandleGetBoard handles GET /optimizations/{id}/board?limit=N requests.
// Without a limit the whole board is returned, up to the configured maximum.
func (h *OptimizationsHandler) HandleGetBoard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_board"
	n := h.maxLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		n, err = strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		if n > h.maxLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
			return
		}
	}
	entries, err := h.deps.Board(r.Context(), r.PathValue("id"), n)
	if err != nil {
		writeJobError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeJobError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
	case errors.Is(err, repository.ErrJobNotReady):
		writeError(w, http.StatusConflict, "not_ready", WrapKind(op, ErrNotReady, err))
	case errors.Is(err, repository.ErrJobFailed):
		writeError(w, http.StatusUnprocessableEntity, "job_failed", Wrap(op, err))
	case errors.Is(err, repository.ErrInvalidLimit):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
