package cpi

import "math"

// SmoothCPI folds the historical snapshots (oldest first) and then raw into
// an exponential moving average with weight alpha on the newer value. A
// constant series returns that constant, and a rising series never lowers
// the output.
func SmoothCPI(raw float64, history []float64, alpha float64) float64 {
	if alpha <= 0 || alpha > 1 {
		alpha = 0.3
	}
	if len(history) == 0 {
		return clamp(raw, 0, 1)
	}
	s := history[0]
	for _, h := range history[1:] {
		s = alpha*h + (1-alpha)*s
	}
	s = alpha*raw + (1-alpha)*s
	return clamp(s, 0, 1)
}

// DetectDrift reports whether raw deviates from smoothed by more than
// threshold.
func DetectDrift(raw, smoothed, threshold float64) bool {
	return math.Abs(raw-smoothed) > threshold
}
