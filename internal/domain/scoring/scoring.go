// Package scoring holds the team scoring rules: turbo bonus and the
// substitution penalty.
package scoring

// Default substitution rule.
const (
	defaultFreeSubstitutions   = 2
	defaultSubstitutionPenalty = 10
)

// Option applies a configuration option to a Policy.
type Option func(*Policy)

// WithFreeSubstitutions sets how many substitutions are free each weekend.
func WithFreeSubstitutions(n int) Option {
	return func(p *Policy) {
		if n >= 0 {
			p.freeSubstitutions = n
		}
	}
}

// WithSubstitutionPenalty sets the points lost per substitution beyond the free allowance.
func WithSubstitutionPenalty(points int) Option {
	return func(p *Policy) {
		if points >= 0 {
			p.substitutionPenalty = points
		}
	}
}

// Policy scores candidate teams. It is immutable after construction and
// safe for concurrent use.
type Policy struct {
	freeSubstitutions   int
	substitutionPenalty int
}

// NewPolicy creates a policy with the default rule (two free, ten points each after).
func NewPolicy(opts ...Option) *Policy {
	p := &Policy{
		freeSubstitutions:   defaultFreeSubstitutions,
		substitutionPenalty: defaultSubstitutionPenalty,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FreeSubstitutions returns the free allowance.
func (p *Policy) FreeSubstitutions() int { return p.freeSubstitutions }

// SubstitutionPenalty returns the per-substitution cost.
func (p *Policy) SubstitutionPenalty() int { return p.substitutionPenalty }

// Penalty returns the points deducted for subs substitutions.
// A wildcard waives the penalty entirely.
func (p *Policy) Penalty(subs int, wildcard bool) int {
	if wildcard {
		return 0
	}
	extra := subs - p.freeSubstitutions
	if extra <= 0 {
		return 0
	}
	return p.substitutionPenalty * extra
}

// TeamScore combines the driver total, the turbo driver's score counted a
// second time, the constructor total and the penalty.
func (p *Policy) TeamScore(driverTotal, turboScore, constructorTotal, subs int, wildcard bool) int {
	return driverTotal + turboScore + constructorTotal - p.Penalty(subs, wildcard)
}

// Turbo picks the highest scoring driver. Ties go to the smallest id.
// Every id must be present in scores.
func Turbo(ids []string, scores map[string]int) string {
	var (
		best      string
		bestScore int
	)
	for i, id := range ids {
		s := scores[id]
		if i == 0 || s > bestScore || (s == bestScore && id < best) {
			best, bestScore = id, s
		}
	}
	return best
}

// Substitutions counts the picked ids missing from the incumbent set.
func Substitutions(picked []string, incumbent map[string]struct{}) int {
	n := 0
	for _, id := range picked {
		if _, ok := incumbent[id]; !ok {
			n++
		}
	}
	return n
}
