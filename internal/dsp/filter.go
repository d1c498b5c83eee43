package dsp

import (
	"fmt"
	"math"
	"math/cmplx"
)

// FilterSpec describes the band-pass filter applied to every captured chunk.
// A spec is turned into coefficients once per pipeline start and is immutable
// for the lifetime of that pipeline instance.
type FilterSpec struct {
	LowCut     float64 // lower passband edge in Hz
	HighCut    float64 // upper passband edge in Hz
	Order      int     // Butterworth prototype order
	SampleRate int     // audio sample rate in Hz
}

// Validate checks that the spec describes a realizable band-pass filter.
func (s FilterSpec) Validate() error {
	if s.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", s.SampleRate)
	}

	nyquist := float64(s.SampleRate) / 2

	if s.LowCut <= 0 {
		return fmt.Errorf("low cutoff must be positive, got %f", s.LowCut)
	}

	if s.HighCut <= s.LowCut {
		return fmt.Errorf("high cutoff (%f) must be greater than low cutoff (%f)", s.HighCut, s.LowCut)
	}

	if s.HighCut >= nyquist {
		return fmt.Errorf("high cutoff (%f) must be below the Nyquist frequency (%f)", s.HighCut, nyquist)
	}

	if s.Order < 1 || s.Order > 12 {
		return fmt.Errorf("filter order must be between 1 and 12, got %d", s.Order)
	}

	return nil
}

// Coefficients holds the numerator (B) and denominator (A) of the designed
// digital filter. A[0] is always 1.
type Coefficients struct {
	B []float64
	A []float64
}

// Design derives the digital band-pass coefficients for the spec: Butterworth
// analog prototype, low-pass to band-pass transform around the geometric
// center frequency, then a bilinear transform with frequency prewarping.
func (s FilterSpec) Design() (*Coefficients, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid filter spec: %w", err)
	}

	fs := float64(s.SampleRate)
	fs2 := 2 * fs

	// Prewarp the band edges so the digital response hits them exactly.
	w1 := fs2 * math.Tan(math.Pi*s.LowCut/fs)
	w2 := fs2 * math.Tan(math.Pi*s.HighCut/fs)
	w0 := math.Sqrt(w1 * w2)
	bw := w2 - w1

	// Analog Butterworth low-pass prototype: poles evenly spaced on the unit
	// circle in the left half-plane, no zeros, unit gain.
	n := s.Order
	poles := make([]complex128, 0, n)
	for k := 1; k <= n; k++ {
		theta := math.Pi * float64(2*k+n-1) / float64(2*n)
		poles = append(poles, cmplx.Exp(complex(0, theta)))
	}

	// Low-pass to band-pass: each prototype pole splits into a pair, N zeros
	// appear at s=0, and the gain picks up bw^N.
	bpPoles := make([]complex128, 0, 2*n)
	for _, p := range poles {
		scaled := p * complex(bw/2, 0)
		d := cmplx.Sqrt(scaled*scaled - complex(w0*w0, 0))
		bpPoles = append(bpPoles, scaled+d, scaled-d)
	}
	bpZeros := make([]complex128, n) // all at s=0
	gain := math.Pow(bw, float64(n))

	// Bilinear transform to the z-domain.
	zZeros := make([]complex128, 0, 2*n)
	zPoles := make([]complex128, 0, 2*n)
	num := complex(1, 0)
	den := complex(1, 0)
	for _, z := range bpZeros {
		zZeros = append(zZeros, (complex(fs2, 0)+z)/(complex(fs2, 0)-z))
		num *= complex(fs2, 0) - z
	}
	for _, p := range bpPoles {
		zPoles = append(zPoles, (complex(fs2, 0)+p)/(complex(fs2, 0)-p))
		den *= complex(fs2, 0) - p
	}
	// Zeros at infinity map to z = -1.
	for i := len(zZeros); i < len(zPoles); i++ {
		zZeros = append(zZeros, complex(-1, 0))
	}
	k := gain * real(num/den)

	b := polyFromRoots(zZeros)
	a := polyFromRoots(zPoles)

	coeffs := &Coefficients{
		B: make([]float64, len(b)),
		A: make([]float64, len(a)),
	}
	for i, c := range b {
		coeffs.B[i] = k * real(c)
	}
	for i, c := range a {
		coeffs.A[i] = real(c)
	}

	return coeffs, nil
}

// polyFromRoots expands a monic polynomial from its roots.
func polyFromRoots(roots []complex128) []complex128 {
	coeffs := []complex128{1}
	for _, r := range roots {
		next := make([]complex128, len(coeffs)+1)
		for i, c := range coeffs {
			next[i] += c
			next[i+1] -= c * r
		}
		coeffs = next
	}
	return coeffs
}

// Apply runs the filter over one chunk using the direct form II transposed
// difference equation. Filter state is local to the call: every chunk starts
// from silence, matching the real-time framing model.
func (c *Coefficients) Apply(samples []float64) []float64 {
	out := make([]float64, len(samples))
	state := make([]float64, len(c.A)-1)

	for i, x := range samples {
		y := c.B[0]*x + state[0]
		for j := 1; j < len(state); j++ {
			state[j-1] = c.B[j]*x + state[j] - c.A[j]*y
		}
		state[len(state)-1] = c.B[len(c.B)-1]*x - c.A[len(c.A)-1]*y
		out[i] = y
	}

	return out
}
