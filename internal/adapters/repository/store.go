// Package repository holds the job store that keeps optimization jobs and
// their finished boards.
package repository

import (
	"context"

	"github.com/okian/gridpick/internal/domain/board"
)

// Entry is a board row as stored with a finished job.
type Entry = board.Entry

// JobStore keeps optimization jobs and their results.
type JobStore interface {
	Create(ctx context.Context, job Job) error
	MarkRunning(ctx context.Context, id string) error
	Complete(ctx context.Context, id string, board []Entry, summary Summary) error
	Fail(ctx context.Context, id string, cause error) error
	Delete(ctx context.Context, id string)

	// Get returns ErrNotFound if the job is unknown or was evicted.
	Get(ctx context.Context, id string) (Job, error)
	Count(ctx context.Context) int
}
