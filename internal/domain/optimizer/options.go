package optimizer

import (
	"github.com/okian/gridpick/internal/domain/scoring"
	"github.com/okian/gridpick/pkg/logger"
)

// Option applies a configuration option to the Optimizer.
type Option func(*Optimizer)

// WithTopK sets the board capacity.
func WithTopK(k int) Option {
	return func(o *Optimizer) {
		if k > 0 {
			o.topK = k
		}
	}
}

// WithWorkers sets how many goroutines the driver enumeration is striped across.
func WithWorkers(n int) Option {
	return func(o *Optimizer) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithPolicy sets the scoring policy.
func WithPolicy(p *scoring.Policy) Option {
	return func(o *Optimizer) {
		if p != nil {
			o.policy = p
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Optimizer) {
		if l != nil {
			o.log = l
		}
	}
}
