// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	taskqueue "github.com/okian/gridpick/internal/adapters/mq/queue"
	workerpool "github.com/okian/gridpick/internal/adapters/mq/worker"
	"github.com/okian/gridpick/internal/adapters/repository"
	"github.com/okian/gridpick/internal/domain/dedupe"
	"github.com/okian/gridpick/internal/domain/model"
	"github.com/okian/gridpick/internal/domain/optimizer"
	"github.com/okian/gridpick/pkg/logger"
	"github.com/okian/gridpick/pkg/metrics"
)

const (
	defaultWorkerCount  = 2
	defaultQueueSize    = 64
	defaultDedupeSize   = 10_000
	defaultJobRetention = 256
	stopTimeout         = 30 * time.Second
)

// jobNamespace scopes name-based job ids so equal request ids map to the
// same job across restarts.
var jobNamespace = uuid.MustParse("5b0e9a52-3c41-4c6f-9d1e-6f2a7c8b4d10")

// Service accepts optimization jobs, runs them on a worker pool and keeps
// their results for polling.
type Service struct {
	mu sync.RWMutex

	// Core components
	jobs       *repository.MemoryJobStore
	deduper    dedupe.Deduper
	queue      *taskqueue.InMemoryQueue
	workerPool *workerpool.Pool
	optimizer  *optimizer.Optimizer

	// Configuration
	workerCount  int
	queueSize    int
	dedupeSize   int
	jobRetention int

	// State
	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of job workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many request ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithJobRetention sets how many jobs are kept for polling.
func WithJobRetention(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.jobRetention = n
		}
	}
}

// WithOptimizer sets the optimizer used by the workers.
func WithOptimizer(o *optimizer.Optimizer) Option {
	return func(s *Service) {
		if o != nil {
			s.optimizer = o
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:  defaultWorkerCount,
		queueSize:    defaultQueueSize,
		dedupeSize:   defaultDedupeSize,
		jobRetention: defaultJobRetention,
		logger:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.optimizer == nil {
		s.optimizer = optimizer.New(optimizer.WithLogger(s.logger.Named("optimizer")))
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting optimization service...")

	s.jobs = repository.NewMemoryJobStore(repository.WithRetention(s.jobRetention))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = taskqueue.NewInMemoryQueue(taskqueue.WithCapacity(s.queueSize))

	// Workers outlive the request context that started them.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.workerPool = workerpool.NewPool(s.workerCount, s.queue, s.optimizer, s.jobs, s.logger)
	s.workerPool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "optimization service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("jobRetention", s.jobRetention),
		logger.Int("topK", s.optimizer.TopK()),
	)
	return nil
}

// Stop drains queued jobs and shuts the workers down.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping optimization service...")
	if err := s.workerPool.Shutdown(ctx); err != nil {
		s.logger.Error(ctx, "worker pool shutdown failed", logger.Error(err))
	}
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "optimization service stopped")
}

// Submit queues an optimization. A non-empty requestID makes the call
// idempotent: repeating it returns the original job id with duplicate set.
func (s *Service) Submit(ctx context.Context, requestID string, w model.Weekend) (jobID string, duplicate bool, err error) { //nolint:gocritic // hugeParam: Weekend is copied into the task anyway
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return "", false, ErrNotStarted
	}

	if requestID == "" {
		jobID = uuid.New().String()
	} else {
		if existing, seen := s.deduper.Lookup(ctx, requestID); seen {
			if _, gerr := s.jobs.Get(ctx, existing); gerr == nil {
				metrics.RecordJobDuplicate()
				return existing, true, nil
			}
			// the job was evicted; run it again under the same id
			jobID = existing
		} else {
			jobID = uuid.NewSHA1(jobNamespace, []byte(requestID)).String()
			if existing, raced := s.deduper.Remember(ctx, requestID, jobID); raced {
				jobID = existing
			}
		}
	}

	job := repository.Job{ID: jobID, RequestID: requestID, Track: w.Track}
	if err := s.jobs.Create(ctx, job); err != nil {
		if errors.Is(err, repository.ErrDuplicateJob) {
			metrics.RecordJobDuplicate()
			return jobID, true, nil
		}
		return "", false, fmt.Errorf("create job: %w", err)
	}

	if err := s.queue.Enqueue(ctx, model.Task{JobID: jobID, Weekend: w}); err != nil {
		s.jobs.Delete(ctx, jobID)
		if requestID != "" {
			s.deduper.Forget(ctx, requestID)
		}
		if errors.Is(err, taskqueue.ErrFull) || errors.Is(err, taskqueue.ErrClosed) {
			return "", false, fmt.Errorf("%w: %w", ErrBackpressure, err)
		}
		return "", false, fmt.Errorf("enqueue job: %w", err)
	}

	metrics.RecordJobSubmitted()
	metrics.UpdateJobsRetained(s.jobs.Count(ctx))
	s.logger.Debug(ctx, "job queued",
		logger.String("job_id", jobID),
		logger.String("request_id", requestID),
		logger.String("track", w.Track),
	)
	return jobID, false, nil
}

// Job returns the job record.
func (s *Service) Job(ctx context.Context, id string) (repository.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return repository.Job{}, ErrNotStarted
	}
	return s.jobs.Get(ctx, id)
}

// Board returns up to limit ranked teams of a finished job.
func (s *Service) Board(ctx context.Context, id string, limit int) ([]repository.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.jobs.Board(ctx, id, limit)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":      s.started,
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
		"dedupeSize":   s.dedupeSize,
		"jobRetention": s.jobRetention,
		"topK":         s.optimizer.TopK(),
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		jobs := s.jobs.Count(ctx)

		stats["queueLength"] = queueLen
		stats["jobsRetained"] = jobs
		stats["requestIDs"] = s.deduper.Size()

		metrics.UpdateJobsRetained(jobs)
		metrics.UpdateWorkerCount(s.workerCount)
	}

	return stats
}
