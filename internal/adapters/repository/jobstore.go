package repository

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"
)

// JobStatus is the lifecycle state of an optimization job.
type JobStatus string

// Job lifecycle.
const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// Finished reports whether the job reached a terminal state.
func (s JobStatus) Finished() bool {
	return s == JobSucceeded || s == JobFailed
}

const defaultJobRetention = 256

// Summary carries the side information of a finished search.
type Summary struct {
	Considered int64         `json:"considered"`
	Affordable int64         `json:"affordable"`
	Budget     float64       `json:"budget"`
	Duration   time.Duration `json:"duration"`
}

// Job is one optimization request and, once finished, its outcome.
type Job struct {
	ID          string    `json:"id"`
	RequestID   string    `json:"request_id,omitempty"`
	Track       string    `json:"track,omitempty"`
	Status      JobStatus `json:"status"`
	SubmittedAt time.Time `json:"submitted_at"`
	StartedAt   time.Time `json:"started_at,omitzero"`
	FinishedAt  time.Time `json:"finished_at,omitzero"`
	Summary     Summary   `json:"summary"`
	Error       string    `json:"error,omitempty"`
	Board       []Entry   `json:"-"`
}

// MemoryJobStore is an in-memory JobStore with bounded retention.
type MemoryJobStore struct {
	mu        sync.RWMutex
	jobs      map[string]*list.Element
	order     *list.List // of *Job, oldest at front
	retention int
}

var _ JobStore = (*MemoryJobStore)(nil)

// NewMemoryJobStore creates an empty job store.
func NewMemoryJobStore(opts ...JobStoreOption) *MemoryJobStore {
	s := &MemoryJobStore{
		jobs:      make(map[string]*list.Element),
		order:     list.New(),
		retention: defaultJobRetention,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new job. The status defaults to queued.
func (s *MemoryJobStore) Create(_ context.Context, job Job) error {
	if job.Status == "" {
		job.Status = JobQueued
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, job.ID)
	}
	s.jobs[job.ID] = s.order.PushBack(&job)
	s.evictLocked()
	return nil
}

// evictLocked drops the oldest finished jobs while over retention.
// Jobs still queued or running are never evicted.
func (s *MemoryJobStore) evictLocked() {
	for e := s.order.Front(); e != nil && s.order.Len() > s.retention; {
		next := e.Next()
		if j := e.Value.(*Job); j.Status.Finished() {
			s.order.Remove(e)
			delete(s.jobs, j.ID)
		}
		e = next
	}
}

func (s *MemoryJobStore) update(id string, fn func(*Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	fn(e.Value.(*Job))
	s.evictLocked()
	return nil
}

// MarkRunning moves a job to running.
func (s *MemoryJobStore) MarkRunning(_ context.Context, id string) error {
	return s.update(id, func(j *Job) {
		j.Status = JobRunning
		j.StartedAt = time.Now()
	})
}

// Complete records a successful result.
func (s *MemoryJobStore) Complete(_ context.Context, id string, board []Entry, summary Summary) error {
	return s.update(id, func(j *Job) {
		j.Status = JobSucceeded
		j.FinishedAt = time.Now()
		j.Board = board
		j.Summary = summary
	})
}

// Fail records why a job could not finish.
func (s *MemoryJobStore) Fail(_ context.Context, id string, cause error) error {
	return s.update(id, func(j *Job) {
		j.Status = JobFailed
		j.FinishedAt = time.Now()
		if cause != nil {
			j.Error = cause.Error()
		}
	})
}

// Delete drops a job regardless of its state.
func (s *MemoryJobStore) Delete(_ context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.jobs[id]; ok {
		s.order.Remove(e)
		delete(s.jobs, id)
	}
}

// Board returns up to limit entries of a succeeded job.
func (s *MemoryJobStore) Board(ctx context.Context, id string, limit int) ([]Entry, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch job.Status {
	case JobSucceeded:
	case JobFailed:
		return nil, fmt.Errorf("%w: %s", ErrJobFailed, job.Error)
	default:
		return nil, fmt.Errorf("%w: %s is %s", ErrJobNotReady, id, job.Status)
	}
	if limit > len(job.Board) {
		limit = len(job.Board)
	}
	return job.Board[:limit], nil
}

// Get returns a copy of the job.
func (s *MemoryJobStore) Get(_ context.Context, id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return *e.Value.(*Job), nil
}

// Count returns the number of retained jobs.
func (s *MemoryJobStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
