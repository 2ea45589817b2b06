// Package optimizer searches every affordable lineup of five drivers and two
// constructors and keeps the highest scoring ones.
package optimizer

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/okian/gridpick/internal/domain/board"
	"github.com/okian/gridpick/internal/domain/model"
	"github.com/okian/gridpick/internal/domain/scoring"
	"github.com/okian/gridpick/pkg/logger"
	"github.com/okian/gridpick/pkg/metrics"
)

// Team shape.
const (
	DriversPerTeam      = 5
	ConstructorsPerTeam = 2
	DefaultTopK         = 100
)

// Result is the outcome of one search.
type Result struct {
	Teams      []board.Entry `json:"teams"`
	Considered int64         `json:"considered"`
	Affordable int64         `json:"affordable"`
	Budget     float64       `json:"budget"`
	Duration   time.Duration `json:"duration"`
}

// Optimizer runs lineup searches. It holds no per-run state and is safe for
// concurrent use.
type Optimizer struct {
	topK     int
	workers  int
	policy   *scoring.Policy
	log      logger.Logger
	validate *validator.Validate
}

// New creates an optimizer with K=100, one worker per CPU and the default policy.
func New(opts ...Option) *Optimizer {
	o := &Optimizer{
		topK:     DefaultTopK,
		workers:  runtime.NumCPU(),
		policy:   scoring.NewPolicy(),
		log:      logger.Nop(),
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// TopK returns the board capacity.
func (o *Optimizer) TopK() int { return o.topK }

// entity is one pool member with its lookups resolved.
type entity struct {
	id        string
	score     int
	price     micros
	incumbent bool
}

// pair is a constructor 2-subset, precomputed once per run.
type pair struct {
	ids   [ConstructorsPerTeam]string
	score int
	price micros
	subs  int
}

// plan holds the validated, read-only inputs shared by every worker.
type plan struct {
	drivers     []entity
	pairs       []pair
	scores      map[string]int
	incumbent   map[string]struct{}
	budget      micros
	wildcard    bool
	policy      *scoring.Policy
	combosPerDS int64
}

// Optimize evaluates every lineup of the weekend and returns the best ones,
// highest score first.
func (o *Optimizer) Optimize(ctx context.Context, w model.Weekend) (Result, error) {
	start := time.Now()

	p, err := o.prepare(w)
	if err != nil {
		metrics.RecordOptimizationFailure(Reason(err))
		return Result{}, err
	}

	o.log.Debug(ctx, "search started",
		logger.String("track", w.Track),
		logger.Int("drivers", len(p.drivers)),
		logger.Int("constructor_pairs", len(p.pairs)),
		logger.Float64("budget", p.budget.Float64()),
		logger.Bool("wildcard", p.wildcard),
		logger.Int("workers", o.workers),
	)

	boards := make([]*board.TreapBoard, o.workers)
	for i := range boards {
		if boards[i], err = board.NewTreapBoard(o.topK); err != nil {
			return Result{}, err
		}
	}

	var considered, affordable atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for wi := 0; wi < o.workers; wi++ {
		g.Go(func() error {
			c, a, err := p.search(gctx, wi, o.workers, boards[wi])
			considered.Add(c)
			affordable.Add(a)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		metrics.RecordOptimizationFailure(Reason(err))
		o.log.Warn(ctx, "search aborted", logger.String("track", w.Track), logger.Error(err))
		return Result{}, fmt.Errorf("search aborted: %w", err)
	}

	final, err := board.NewTreapBoard(o.topK)
	if err != nil {
		return Result{}, err
	}
	var evictions int64
	for _, b := range boards {
		final.Merge(b)
		evictions += b.Evictions()
	}
	evictions += final.Evictions()

	teams, err := final.TopN(o.topK)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Teams:      teams,
		Considered: considered.Load(),
		Affordable: affordable.Load(),
		Budget:     p.budget.Float64(),
		Duration:   time.Since(start),
	}

	metrics.RecordOptimization(float64(res.Duration.Milliseconds()), res.Considered, res.Affordable)
	metrics.RecordBoardEvictions(evictions)
	best, cutoff := 0, 0
	if b, ok := final.Best(); ok {
		best = b.Score
	}
	if low, ok := final.Min(); ok {
		cutoff = low.Score
	}
	metrics.UpdateBoard(final.Len(), best)

	o.log.Info(ctx, "search finished",
		logger.String("track", w.Track),
		logger.Int64("considered", res.Considered),
		logger.Int64("affordable", res.Affordable),
		logger.Int("board", len(res.Teams)),
		logger.Int("best", best),
		logger.Int("cutoff", cutoff),
		logger.Duration("took", res.Duration),
	)
	return res, nil
}

// prepare resolves pools and lookups and fails on the first bad input.
func (o *Optimizer) prepare(w model.Weekend) (*plan, error) {
	driverIDs := w.DriverPool()
	constructorIDs := w.ConstructorPool()
	if len(driverIDs) < DriversPerTeam {
		return nil, fmt.Errorf("%w: need %d drivers, got %d", ErrInsufficientPool, DriversPerTeam, len(driverIDs))
	}
	if len(constructorIDs) < ConstructorsPerTeam {
		return nil, fmt.Errorf("%w: need %d constructors, got %d", ErrInsufficientPool, ConstructorsPerTeam, len(constructorIDs))
	}

	if err := o.validate.Struct(w.Roster); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRoster, err)
	}

	incumbent := make(map[string]struct{}, DriversPerTeam+ConstructorsPerTeam)
	for _, id := range w.Roster.Drivers {
		incumbent[id] = struct{}{}
	}
	incumbentConstructors := make(map[string]struct{}, ConstructorsPerTeam)
	for _, id := range w.Roster.Constructors {
		incumbentConstructors[id] = struct{}{}
	}

	drivers, err := resolve(driverIDs, w.DriverScores, w.DriverPrices, incumbent, "driver")
	if err != nil {
		return nil, err
	}
	constructors, err := resolve(constructorIDs, w.ConstructorScores, w.ConstructorPrices, incumbentConstructors, "constructor")
	if err != nil {
		return nil, err
	}

	budget, err := resolveBudget(w)
	if err != nil {
		return nil, err
	}

	pairs := make([]pair, 0, Binomial(len(constructors), ConstructorsPerTeam))
	Combinations(len(constructors), ConstructorsPerTeam, func(idx []int) bool {
		a, b := constructors[idx[0]], constructors[idx[1]]
		pr := pair{score: a.score + b.score, price: a.price + b.price}
		pr.ids[0], pr.ids[1] = a.id, b.id
		if pr.ids[0] > pr.ids[1] {
			pr.ids[0], pr.ids[1] = pr.ids[1], pr.ids[0]
		}
		for _, c := range []entity{a, b} {
			if !c.incumbent {
				pr.subs++
			}
		}
		pairs = append(pairs, pr)
		return true
	})

	return &plan{
		drivers:     drivers,
		pairs:       pairs,
		scores:      w.DriverScores,
		incumbent:   incumbent,
		budget:      budget,
		wildcard:    w.UseWildcard,
		policy:      o.policy,
		combosPerDS: int64(len(pairs)),
	}, nil
}

func resolve(ids []string, scores map[string]int, prices map[string]float64, incumbent map[string]struct{}, kind string) ([]entity, error) {
	out := make([]entity, len(ids))
	for i, id := range ids {
		score, ok := scores[id]
		if !ok {
			return nil, fmt.Errorf("%w: no %s score for %q", ErrMissingScoreOrPrice, kind, id)
		}
		price, ok := prices[id]
		if !ok {
			return nil, fmt.Errorf("%w: no %s price for %q", ErrMissingScoreOrPrice, kind, id)
		}
		if !finite(price) || price < 0 {
			return nil, fmt.Errorf("%w: %s %q priced %v", ErrInvalidPrice, kind, id, price)
		}
		_, inc := incumbent[id]
		out[i] = entity{id: id, score: score, price: toMicros(price), incumbent: inc}
	}
	return out, nil
}

// resolveBudget returns the explicit budget or, when absent, the current
// value of the incumbent roster plus the remaining cost cap.
func resolveBudget(w model.Weekend) (micros, error) {
	if w.Budget != nil {
		if !finite(*w.Budget) || *w.Budget < 0 {
			return 0, fmt.Errorf("%w: %v", ErrInvalidBudget, *w.Budget)
		}
		return toMicros(*w.Budget), nil
	}
	if !finite(w.RemainingCostCap) || w.RemainingCostCap < 0 {
		return 0, fmt.Errorf("%w: remaining cost cap %v", ErrInvalidBudget, w.RemainingCostCap)
	}
	total := toMicros(w.RemainingCostCap)
	for _, id := range w.Roster.Drivers {
		price, ok := w.DriverPrices[id]
		if !ok {
			return 0, fmt.Errorf("%w: no driver price for incumbent %q", ErrMissingScoreOrPrice, id)
		}
		total += toMicros(price)
	}
	for _, id := range w.Roster.Constructors {
		price, ok := w.ConstructorPrices[id]
		if !ok {
			return 0, fmt.Errorf("%w: no constructor price for incumbent %q", ErrMissingScoreOrPrice, id)
		}
		total += toMicros(price)
	}
	return total, nil
}

// search evaluates the driver subsets whose ordinal falls in this worker's
// stripe and offers the affordable lineups to top.
func (p *plan) search(ctx context.Context, worker, workers int, top *board.TreapBoard) (considered, affordable int64, err error) {
	ids := make([]string, DriversPerTeam)
	ordinal := -1

	Combinations(len(p.drivers), DriversPerTeam, func(idx []int) bool {
		ordinal++
		if ordinal%workers != worker {
			return true
		}
		if err = ctx.Err(); err != nil {
			return false
		}

		var (
			price micros
			total int
		)
		for i, di := range idx {
			d := p.drivers[di]
			ids[i] = d.id
			price += d.price
			total += d.score
		}
		subs := scoring.Substitutions(ids, p.incumbent)
		turbo := scoring.Turbo(ids, p.scores)
		turboScore := p.scores[turbo]

		considered += p.combosPerDS
		for i := range p.pairs {
			c := &p.pairs[i]
			value := price + c.price
			if value > p.budget {
				continue
			}
			affordable++

			teamSubs := subs + c.subs
			score := p.policy.TeamScore(total, turboScore, c.score, teamSubs, p.wildcard)
			if !top.Admits(score) {
				continue
			}

			drivers := make([]string, DriversPerTeam)
			copy(drivers, ids)
			sort.Strings(drivers)
			top.Offer(model.Team{
				Score:               score,
				Drivers:             drivers,
				Constructors:        []string{c.ids[0], c.ids[1]},
				TurboDriver:         turbo,
				SubstitutionsNeeded: teamSubs,
				ProposedValue:       value.Float64(),
				RemainingCap:        (p.budget - value).Float64(),
			})
		}
		return true
	})
	return considered, affordable, err
}
