// Package worker runs queued optimization tasks and records their outcome.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/okian/gridpick/internal/adapters/repository"
	"github.com/okian/gridpick/internal/domain/model"
	"github.com/okian/gridpick/internal/domain/optimizer"
	"github.com/okian/gridpick/pkg/logger"
	"github.com/okian/gridpick/pkg/metrics"
)

const defaultWorkerCount = 2

// Task is what workers read off the queue.
type Task = model.Task

// Runner performs the search for one weekend.
type Runner interface {
	Optimize(ctx context.Context, w model.Weekend) (optimizer.Result, error)
}

// Recorder tracks job state transitions.
type Recorder interface {
	MarkRunning(ctx context.Context, id string) error
	Complete(ctx context.Context, id string, board []repository.Entry, summary repository.Summary) error
	Fail(ctx context.Context, id string, cause error) error
}

// Queue defines how workers receive tasks.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Task
}

// Worker processes tasks until its queue is drained or it is stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker after the task in hand.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue    Queue
	runner   Runner
	recorder Recorder
	name     string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, runner Runner, recorder Recorder, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		runner:   runner,
		recorder: recorder,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	tasks := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case t, ok := <-tasks:
			if !ok {
				return
			}
			if err := w.process(ctx, t); err != nil {
				w.logger.Error(ctx, "error processing task", logger.String("job_id", t.JobID), logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

// process runs one task. A failed search is recorded on the job and is not
// an error of the worker itself.
func (w *InMemoryWorker) process(ctx context.Context, t Task) error { //nolint:gocritic // hugeParam: Task is passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	if err := w.recorder.MarkRunning(ctx, t.JobID); err != nil {
		metrics.RecordErrorByComponent("worker", "job_missing")
		return fmt.Errorf("mark job running: %w", err)
	}

	res, err := w.runner.Optimize(ctx, t.Weekend)
	if err != nil {
		metrics.RecordJobFinished(string(repository.JobFailed))
		w.logger.Warn(ctx, "optimization failed",
			logger.String("job_id", t.JobID),
			logger.String("reason", optimizer.Reason(err)),
			logger.Error(err),
		)
		if ferr := w.recorder.Fail(ctx, t.JobID, err); ferr != nil {
			return fmt.Errorf("record failure: %w", ferr)
		}
		return nil
	}

	if err := w.recorder.Complete(ctx, t.JobID, res.Teams, repository.Summary{
		Considered: res.Considered,
		Affordable: res.Affordable,
		Budget:     res.Budget,
		Duration:   res.Duration,
	}); err != nil {
		metrics.RecordErrorByComponent("worker", "job_missing")
		return fmt.Errorf("record result: %w", err)
	}
	metrics.RecordJobFinished(string(repository.JobSucceeded))
	w.logger.Debug(ctx, "optimization finished",
		logger.String("job_id", t.JobID),
		logger.Int("board", len(res.Teams)),
	)
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, queue Queue, runner Runner, recorder Recorder, log logger.Logger) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}
	if log == nil {
		log = logger.Nop()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  log.Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(queue, runner, recorder,
			WithName("worker-"+strconv.Itoa(i)),
			WithLogger(log),
		)
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for the workers to drain it. If ctx
// ends first the workers are stopped after the task in hand.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	for i, w := range p.workers {
		select {
		case <-w.Done():
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			_ = w.Shutdown(context.Background())
		}
	}
	return nil
}
