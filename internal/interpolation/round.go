package interpolation

import (
	"math"

	"github.com/xalekter/charts-edit/internal/table"
)

// integerTolerance is how close a value must be to a whole number to be
// stored as one. The same tolerance decides duplicated X positions.
const integerTolerance = 1e-10

// Round stores near-integers as integers and everything else at two
// decimals, half away from zero: 3.0000000001 -> 3, 3.456 -> 3.46,
// -0.005 -> -0.01. Infinities pass through.
func Round(v float64) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return v
	}
	if r := math.Round(v); math.Abs(v-r) < integerTolerance {
		return r
	}
	return math.Round(v*100) / 100
}

// RoundValue applies Round to numeric cells and leaves others unchanged.
func RoundValue(v table.Value) table.Value {
	f, ok := v.Float()
	if !ok {
		return v
	}
	return table.Number(Round(f))
}
