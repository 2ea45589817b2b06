// Package dedupe defines the interface for idempotent job submission.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
)

const defaultMaxSize = 10_000

// Deduper remembers which job a client request id produced.
type Deduper interface {
	// Remember atomically records jobID for requestID unless the request id
	// is already known. It returns the job id stored for requestID and true
	// if it was already present.
	Remember(ctx context.Context, requestID, jobID string) (string, bool)

	// Lookup returns the job id stored for requestID.
	Lookup(ctx context.Context, requestID string) (string, bool)

	// Forget drops requestID so a rejected submission can be retried.
	Forget(ctx context.Context, requestID string)

	Size() int64
}

type entry struct {
	requestID string
	jobID     string
}

// inMemoryDeduper evicts the oldest request id once maxSize is reached.
// With maxSize <= 0 it never evicts.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List // oldest at front
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
		seen:    make(map[string]*list.Element),
		order:   list.New(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) Remember(_ context.Context, requestID, jobID string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if e, ok := d.seen[requestID]; ok {
		return e.Value.(*entry).jobID, true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		d.evictOldest()
	}
	d.seen[requestID] = d.order.PushBack(&entry{requestID: requestID, jobID: jobID})
	d.size.Store(int64(d.order.Len()))
	return jobID, false
}

func (d *inMemoryDeduper) Lookup(_ context.Context, requestID string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.seen[requestID]; ok {
		return e.Value.(*entry).jobID, true
	}
	return "", false
}

func (d *inMemoryDeduper) Forget(_ context.Context, requestID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.seen[requestID]; ok {
		d.order.Remove(e)
		delete(d.seen, requestID)
		d.size.Store(int64(d.order.Len()))
	}
}

// evictOldest must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	if e := d.order.Front(); e != nil {
		d.order.Remove(e)
		delete(d.seen, e.Value.(*entry).requestID)
	}
}

// Size returns the current number of remembered request ids.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
