package repository

import (
	"errors"

	"github.com/okian/gridpick/internal/domain/board"
)

// Sentinel kinds for job store errors.
var (
	ErrNotFound     = errors.New("job not found")
	ErrDuplicateJob = errors.New("job already exists")
	ErrInvalidLimit = board.ErrInvalidLimit
	ErrJobNotReady  = errors.New("job not finished")
	ErrJobFailed    = errors.New("job failed")
)
