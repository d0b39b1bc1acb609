package metrics

import "math"

// The numeric policy for every ratio in the engine lives here, so edge cases
// recover in place instead of propagating as errors and batch runs stay
// alive. Callers that must distinguish "computed zero" from "undefined"
// inspect the trade or row count alongside the metric.

// Ratio returns num/den, or 0 when den is 0 or not finite.
func Ratio(num, den float64) float64 {
	if den == 0 || math.IsNaN(den) || math.IsInf(den, 0) {
		return 0
	}
	return num / den
}

// Percent returns num/den expressed in percent, or 0 when den is 0.
func Percent(num, den float64) float64 {
	return Ratio(num, den) * 100
}

// RatioOrInf returns num/den, +Inf when den is 0 with a positive numerator,
// and 0 when both are 0. Used where infinity is the mathematically honest
// answer, e.g. a profit factor with wins and no losses.
func RatioOrInf(num, den float64) float64 {
	if den == 0 {
		if num > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return num / den
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
