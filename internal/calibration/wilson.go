package calibration

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// zScore is the standard normal quantile for a two-sided interval at the
// given confidence level, e.g. level 0.95 gives z ~ 1.96.
func zScore(level float64) float64 {
	norm := distuv.Normal{Mu: 0, Sigma: 1}
	return norm.Quantile(1 - (1-level)/2)
}

// Wilson returns the Wilson score interval for k successes in n trials at
// the given confidence level. Unlike the normal approximation it stays in
// [0,1] and behaves sensibly for small n and extreme rates.
func Wilson(k, n int, level float64) (low, high float64) {
	if n <= 0 {
		return 0, 1
	}
	z := zScore(level)
	p := float64(k) / float64(n)
	nf := float64(n)

	denom := 1 + z*z/nf
	center := (p + z*z/(2*nf)) / denom
	margin := (z / denom) * math.Sqrt((p*(1-p))/nf+z*z/(4*nf*nf))

	low = math.Max(0, center-margin)
	high = math.Min(1, center+margin)
	return low, high
}
