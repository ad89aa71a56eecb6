// Package normal provides the standard normal distribution functions used by
// the pricing model.
//
// The cumulative distribution function is exposed as a CDF value so callers
// can swap the implementation (for example a higher precision one) without
// touching pricing or solver code.
package normal

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

const sqrt2Pi = 2.5066282746310002

// CDF returns P(Z <= x) for a standard normal random variable Z.
type CDF func(x float64) float64

// Erf computes Φ(x) = (1 + erf(x/√2)) / 2 using math.Erf.
//
// math.Erf is accurate to machine precision, well inside the 1e-7 absolute
// error required by the pricer.
func Erf(x float64) float64 {
	return 0.5 * (1.0 + math.Erf(x/math.Sqrt2))
}

// Gonum computes Φ(x) with gonum's unit normal distribution.
func Gonum(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// Default is the CDF used when none is injected.
var Default CDF = Erf

// PDF computes the standard normal density exp(-x²/2) / √(2π).
func PDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / sqrt2Pi
}
