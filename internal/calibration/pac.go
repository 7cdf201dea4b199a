package calibration

import "math"

// MinSamples is the Hoeffding bound on the number of outcomes needed
// before an empirical rate is within epsilon of the truth with
// probability 1-delta: n >= ln(2/delta) / (2 * epsilon^2).
//
// At epsilon 0.1 and delta 0.05 this is 185.
func MinSamples(epsilon, delta float64) int {
	if epsilon <= 0 || delta <= 0 || delta >= 1 {
		return math.MaxInt
	}
	return int(math.Ceil(math.Log(2/delta) / (2 * epsilon * epsilon)))
}
