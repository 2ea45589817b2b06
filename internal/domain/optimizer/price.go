package optimizer

import (
	"math"

	"github.com/shopspring/decimal"
)

// Prices are summed as fixed-point micro-units so a lineup priced exactly
// at the budget compares equal instead of drifting by a float rounding error.
const priceExp = 6

type micros int64

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func toMicros(v float64) micros {
	return micros(decimal.NewFromFloat(v).Shift(priceExp).Round(0).IntPart())
}

func (m micros) Float64() float64 {
	return decimal.New(int64(m), -priceExp).InexactFloat64()
}
