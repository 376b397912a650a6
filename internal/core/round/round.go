// Package round implements the half-away-from-zero rounding used by every
// reported number, so outputs stay stable across runs and releases.
package round

import (
	"math"
	"strconv"
)

// Half rounds to the nearest integer, halves away from zero.
func Half(x float64) float64 {
	return math.Round(x)
}

// To rounds x to the given number of decimals.
func To(x float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(x*p) / p
}

// Fixed formats x with exactly the given number of decimals.
func Fixed(x float64, decimals int) string {
	return strconv.FormatFloat(To(x, decimals), 'f', decimals, 64)
}
