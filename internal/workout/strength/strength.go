// Package strength holds the pure strength-metric formulas derived
// from a single logged set.
package strength

import "math"

// EstimatedOneRepMax estimates the one-rep max using the Epley formula,
// rounded to the nearest whole unit: weight * (1 + reps/30).
// Degenerate input yields 0, never an error.
func EstimatedOneRepMax(weight float64, reps int) float64 {
	if weight <= 0 || reps <= 0 {
		return 0
	}
	return math.Round(weight * (1 + float64(reps)/30))
}

// Volume is the total load of a set: weight * reps. 0 for degenerate input.
func Volume(weight float64, reps int) float64 {
	if weight <= 0 || reps <= 0 {
		return 0
	}
	return weight * float64(reps)
}
