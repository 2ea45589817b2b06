package client

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/gridpick/internal/weekendgen"
	"github.com/okian/gridpick/pkg/logger"
)

// LoadConfig holds configuration for a load run.
type LoadConfig struct {
	Weekends     int    // number of weekends to submit
	Workers      int    // concurrent submitters
	Seed         uint64 // seed of the first weekend; weekend i uses Seed+i
	Drivers      int
	Constructors int
	Top          int // board entries fetched per job
}

// LoadStats summarises a load run.
type LoadStats struct {
	Submitted int64
	Accepted  int64
	Duplicate int64
	Rejected  int64
	Succeeded int64
	Failed    int64
	Duration  time.Duration
}

// ErrUnorderedBoard reports a board whose scores are not descending.
var ErrUnorderedBoard = errors.New("board not ordered by score")

// RunLoad generates cfg.Weekends synthetic weekends, submits them
// concurrently, waits for every accepted job and checks its board order.
// Rejections under backpressure are counted, not fatal.
func RunLoad(ctx context.Context, c *Client, cfg LoadConfig, log logger.Logger) (LoadStats, error) {
	var stats LoadStats
	start := time.Now()
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	log.Info(ctx, "starting load run",
		logger.Int("weekends", cfg.Weekends),
		logger.Int("workers", cfg.Workers),
		logger.Int("drivers", cfg.Drivers),
		logger.Int("constructors", cfg.Constructors))

	if err := c.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i := range cfg.Weekends {
		g.Go(func() error {
			return runOne(gctx, c, cfg, i, &stats)
		})
	}
	err := g.Wait()
	stats.Duration = time.Since(start)

	log.Info(ctx, "load run finished",
		logger.Int64("submitted", stats.Submitted),
		logger.Int64("accepted", stats.Accepted),
		logger.Int64("duplicate", stats.Duplicate),
		logger.Int64("rejected", stats.Rejected),
		logger.Int64("succeeded", stats.Succeeded),
		logger.Int64("failed", stats.Failed),
		logger.Duration("duration", stats.Duration))
	return stats, err
}

func runOne(ctx context.Context, c *Client, cfg LoadConfig, i int, stats *LoadStats) error {
	w, err := weekendgen.Generate(weekendgen.Config{
		Drivers:          cfg.Drivers,
		Constructors:     cfg.Constructors,
		Seed:             cfg.Seed + uint64(i),
		Track:            fmt.Sprintf("Load GP %d", i),
		RemainingCostCap: weekendgen.DefaultRemainingCostCap,
	})
	if err != nil {
		return err
	}

	atomic.AddInt64(&stats.Submitted, 1)
	ack, err := c.Submit(ctx, fmt.Sprintf("load-%d-%d", cfg.Seed, i), w)
	switch {
	case errors.Is(err, ErrBackpressure):
		atomic.AddInt64(&stats.Rejected, 1)
		return nil
	case err != nil:
		return err
	}
	if ack.Duplicate {
		atomic.AddInt64(&stats.Duplicate, 1)
	} else {
		atomic.AddInt64(&stats.Accepted, 1)
	}

	if _, err := c.Wait(ctx, ack.JobID); err != nil {
		if errors.Is(err, ErrJobFailed) {
			atomic.AddInt64(&stats.Failed, 1)
			return nil
		}
		return err
	}
	board, err := c.Board(ctx, ack.JobID, cfg.Top)
	if err != nil {
		return err
	}
	for k := 1; k < len(board); k++ {
		if board[k].Team.Score > board[k-1].Team.Score {
			return fmt.Errorf("%w: job %s entry %d", ErrUnorderedBoard, ack.JobID, k)
		}
	}
	atomic.AddInt64(&stats.Succeeded, 1)
	return nil
}
