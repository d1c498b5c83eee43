package dsp

import "math"

// Normalize scales the chunk so its peak absolute value is 1. An all-zero
// chunk is returned unchanged so silence never triggers a division by zero.
// Normalizing an already-normalized chunk leaves it unchanged.
func Normalize(samples []float64) []float64 {
	peak := 0.0
	for _, s := range samples {
		if v := math.Abs(s); v > peak {
			peak = v
		}
	}

	out := make([]float64, len(samples))
	if peak == 0 {
		copy(out, samples)
		return out
	}

	for i, s := range samples {
		out[i] = s / peak
	}
	return out
}

// Condition runs one raw PCM chunk through the full conditioning stage:
// band-pass filtering followed by peak normalization. It is a pure function
// of its inputs.
func Condition(raw []int16, coeffs *Coefficients) []float64 {
	samples := make([]float64, len(raw))
	for i, s := range raw {
		samples[i] = float64(s)
	}

	return Normalize(coeffs.Apply(samples))
}
