// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() returns a Config filled with defaults.
// - Load(ctx) layers an optional YAML file and GRIDPICK_* env vars on top.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// TopK is the number of teams kept on a result board.
	TopK int `koanf:"top_k"`

	// SearchWorkers is the number of goroutines one search is striped across.
	SearchWorkers int `koanf:"search_workers"`

	// WorkerCount sets the number of job workers draining the queue.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the in-memory job queue.
	QueueSize int `koanf:"queue_size"`

	// DedupeSize bounds the request-id idempotency memory.
	DedupeSize int `koanf:"dedupe_size"`

	// JobRetention caps how many jobs (and their boards) are kept for polling.
	JobRetention int `koanf:"job_retention"`

	// MaxBoardLimit caps GET /optimizations/{id}/board?limit.
	MaxBoardLimit int `koanf:"max_board_limit"`

	// FreeSubstitutions is the number of roster changes per weekend that cost nothing.
	FreeSubstitutions int `koanf:"free_substitutions"`

	// SubstitutionPenalty is the points deducted for each change past the free allowance.
	SubstitutionPenalty int `koanf:"substitution_penalty"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		TopK:                100,
		SearchWorkers:       runtime.NumCPU(),
		WorkerCount:         2,
		QueueSize:           64,
		DedupeSize:          10_000,
		JobRetention:        256,
		MaxBoardLimit:       100,
		FreeSubstitutions:   2,
		SubstitutionPenalty: 10,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.TopK < 1:
		return fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalidConfig, c.TopK)
	case c.SearchWorkers < 1:
		return fmt.Errorf("%w: search_workers must be positive, got %d", ErrInvalidConfig, c.SearchWorkers)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be positive, got %d", ErrInvalidConfig, c.WorkerCount)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	case c.JobRetention < 1:
		return fmt.Errorf("%w: job_retention must be positive, got %d", ErrInvalidConfig, c.JobRetention)
	case c.MaxBoardLimit < 1:
		return fmt.Errorf("%w: max_board_limit must be positive, got %d", ErrInvalidConfig, c.MaxBoardLimit)
	case c.FreeSubstitutions < 0:
		return fmt.Errorf("%w: free_substitutions must not be negative", ErrInvalidConfig)
	case c.SubstitutionPenalty < 0:
		return fmt.Errorf("%w: substitution_penalty must not be negative", ErrInvalidConfig)
	}
	return nil
}
