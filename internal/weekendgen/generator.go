// Package weekendgen builds synthetic race weekends for demos and load runs.
package weekendgen

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/okian/gridpick/internal/domain/model"
)

// Default field sizes of a real championship.
const (
	DefaultDrivers          = 20
	DefaultConstructors     = 10
	DefaultRemainingCostCap = 2.0
	DefaultTrack            = "Synthetic GP"
)

const (
	minDrivers      = 5
	minConstructors = 2
)

// Driver performance tiers.
const (
	tierElite = iota
	tierHigh
	tierMid
	tierLow
	tierBackmarker
	tierCount
)

var (
	driverCodes = []string{
		"VER", "NOR", "LEC", "PIA", "SAI", "HAM", "RUS", "PER", "ALO", "STR",
		"GAS", "OCO", "ALB", "TSU", "HUL", "MAG", "RIC", "BOT", "ZHO", "SAR",
	}
	constructorCodes = []string{
		"RBR", "MCL", "FER", "MER", "AST", "ALP", "WIL", "RB", "HAA", "SAU",
	}
)

// ErrInvalidConfig reports a field that cannot produce a valid weekend.
var ErrInvalidConfig = errors.New("invalid generator config")

// Config controls the shape of a generated weekend.
type Config struct {
	Drivers          int
	Constructors     int
	Seed             uint64
	Track            string
	RemainingCostCap float64
}

// DefaultConfig returns a full-grid config with the given seed.
func DefaultConfig(seed uint64) Config {
	return Config{
		Drivers:          DefaultDrivers,
		Constructors:     DefaultConstructors,
		Seed:             seed,
		Track:            DefaultTrack,
		RemainingCostCap: DefaultRemainingCostCap,
	}
}

// Generate returns a weekend whose scores, prices and roster depend only on cfg.
// Driver j races for constructor j mod Constructors and a constructor scores
// the sum of its drivers.
func Generate(cfg Config) (model.Weekend, error) {
	if cfg.Drivers < minDrivers {
		return model.Weekend{}, fmt.Errorf("%w: need at least %d drivers, got %d", ErrInvalidConfig, minDrivers, cfg.Drivers)
	}
	if cfg.Constructors < minConstructors {
		return model.Weekend{}, fmt.Errorf("%w: need at least %d constructors, got %d", ErrInvalidConfig, minConstructors, cfg.Constructors)
	}
	if cfg.RemainingCostCap < 0 || math.IsNaN(cfg.RemainingCostCap) {
		return model.Weekend{}, fmt.Errorf("%w: remaining cost cap %v", ErrInvalidConfig, cfg.RemainingCostCap)
	}
	if cfg.Track == "" {
		cfg.Track = DefaultTrack
	}

	r := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	w := model.Weekend{
		Track:             cfg.Track,
		Drivers:           make([]string, cfg.Drivers),
		Constructors:      make([]string, cfg.Constructors),
		DriverScores:      make(map[string]int, cfg.Drivers),
		ConstructorScores: make(map[string]int, cfg.Constructors),
		DriverPrices:      make(map[string]float64, cfg.Drivers),
		ConstructorPrices: make(map[string]float64, cfg.Constructors),
		RemainingCostCap:  cfg.RemainingCostCap,
	}

	for i := range w.Constructors {
		w.Constructors[i] = code(constructorCodes, "C", i)
	}
	for j := range w.Drivers {
		id := code(driverCodes, "D", j)
		w.Drivers[j] = id

		tier := r.IntN(tierCount)
		score := driverScore(r, tier)
		w.DriverScores[id] = score
		w.DriverPrices[id] = driverPrice(r, tier)

		team := w.Constructors[j%cfg.Constructors]
		w.ConstructorScores[team] += score
	}
	for _, id := range w.Constructors {
		w.ConstructorPrices[id] = constructorPrice(r, w.ConstructorScores[id])
	}

	w.Roster = model.Roster{
		Drivers:      pick(r, w.Drivers, minDrivers),
		Constructors: pick(r, w.Constructors, minConstructors),
	}
	return w, nil
}

func code(codes []string, prefix string, i int) string {
	if i < len(codes) {
		return codes[i]
	}
	return fmt.Sprintf("%s%02d", prefix, i)
}

// driverScore draws a weekend score for the tier. Backmarkers can go negative.
func driverScore(r *rand.Rand, tier int) int {
	switch tier {
	case tierElite:
		return 25 + r.IntN(20)
	case tierHigh:
		return 15 + r.IntN(15)
	case tierMid:
		return 5 + r.IntN(15)
	case tierLow:
		return r.IntN(10)
	default:
		return -10 + r.IntN(12)
	}
}

func driverPrice(r *rand.Rand, tier int) float64 {
	var lo, span float64
	switch tier {
	case tierElite:
		lo, span = 23, 8
	case tierHigh:
		lo, span = 15, 8
	case tierMid:
		lo, span = 9, 6
	case tierLow:
		lo, span = 6, 4
	default:
		lo, span = 4.5, 2.5
	}
	return tenths(lo + r.Float64()*span)
}

func constructorPrice(r *rand.Rand, score int) float64 {
	p := 6 + float64(max(score, 0))/4 + r.Float64()*3
	return tenths(min(p, 35))
}

// tenths rounds to one decimal place like real game prices.
func tenths(v float64) float64 {
	return math.Round(v*10) / 10
}

// pick returns n distinct ids in ascending order.
func pick(r *rand.Rand, ids []string, n int) []string {
	out := make([]string, 0, n)
	for _, i := range r.Perm(len(ids))[:n] {
		out = append(out, ids[i])
	}
	sort.Strings(out)
	return out
}
