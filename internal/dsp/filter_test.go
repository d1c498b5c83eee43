package dsp

import (
	"math"
	"testing"
)

func defaultSpec() FilterSpec {
	return FilterSpec{
		LowCut:     300,
		HighCut:    3000,
		Order:      5,
		SampleRate: 44100,
	}
}

func sineChunk(freq float64, sampleRate, length int, amplitude float64) []float64 {
	samples := make([]float64, length)
	for i := range samples {
		samples[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return samples
}

// rmsTail measures RMS over the second half of the chunk, past the
// chunk-boundary transient.
func rmsTail(samples []float64) float64 {
	tail := samples[len(samples)/2:]
	var sum float64
	for _, s := range tail {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(tail)))
}

func TestFilterSpecValidate(t *testing.T) {
	tests := []struct {
		name    string
		spec    FilterSpec
		wantErr bool
	}{
		{"valid", defaultSpec(), false},
		{"zero sample rate", FilterSpec{LowCut: 300, HighCut: 3000, Order: 5}, true},
		{"zero low cutoff", FilterSpec{LowCut: 0, HighCut: 3000, Order: 5, SampleRate: 44100}, true},
		{"inverted band", FilterSpec{LowCut: 3000, HighCut: 300, Order: 5, SampleRate: 44100}, true},
		{"high cutoff at nyquist", FilterSpec{LowCut: 300, HighCut: 22050, Order: 5, SampleRate: 44100}, true},
		{"zero order", FilterSpec{LowCut: 300, HighCut: 3000, Order: 0, SampleRate: 44100}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDesignProducesNormalizedDenominator(t *testing.T) {
	coeffs, err := defaultSpec().Design()
	if err != nil {
		t.Fatalf("Design() failed: %v", err)
	}

	if len(coeffs.B) != 11 || len(coeffs.A) != 11 {
		t.Fatalf("expected 11 coefficients for order 5 band-pass, got B=%d A=%d", len(coeffs.B), len(coeffs.A))
	}

	if math.Abs(coeffs.A[0]-1) > 1e-12 {
		t.Errorf("A[0] = %v, want 1", coeffs.A[0])
	}
}

func TestPassbandToneRetained(t *testing.T) {
	coeffs, err := defaultSpec().Design()
	if err != nil {
		t.Fatalf("Design() failed: %v", err)
	}

	input := sineChunk(1000, 44100, 8192, 1.0)
	output := coeffs.Apply(input)

	inRMS := rmsTail(input)
	outRMS := rmsTail(output)

	if outRMS < 0.7*inRMS {
		t.Errorf("1 kHz tone attenuated too much: in RMS %f, out RMS %f", inRMS, outRMS)
	}
}

func TestStopbandToneAttenuated(t *testing.T) {
	coeffs, err := defaultSpec().Design()
	if err != nil {
		t.Fatalf("Design() failed: %v", err)
	}

	input := sineChunk(50, 44100, 8192, 1.0)
	output := coeffs.Apply(input)

	inRMS := rmsTail(input)
	outRMS := rmsTail(output)

	if outRMS > 0.05*inRMS {
		t.Errorf("50 Hz tone not attenuated: in RMS %f, out RMS %f", inRMS, outRMS)
	}
}

func TestApplyDeterministic(t *testing.T) {
	coeffs, err := defaultSpec().Design()
	if err != nil {
		t.Fatalf("Design() failed: %v", err)
	}

	input := sineChunk(440, 44100, 1024, 0.5)

	first := coeffs.Apply(input)
	second := coeffs.Apply(input)

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("non-deterministic output at sample %d: %v != %v", i, first[i], second[i])
		}
	}
}

func TestNormalizePeaksAtOne(t *testing.T) {
	samples := []float64{0.1, -0.4, 0.2}
	out := Normalize(samples)

	want := []float64{0.25, -1.0, 0.5}
	for i := range want {
		if math.Abs(out[i]-want[i]) > 1e-12 {
			t.Errorf("sample %d = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	samples := []float64{0.5, -1.0, 0.25}

	once := Normalize(samples)
	twice := Normalize(once)

	for i := range once {
		if once[i] != twice[i] {
			t.Errorf("sample %d changed on second normalization: %v != %v", i, once[i], twice[i])
		}
	}
}

func TestNormalizeSilencePassesThrough(t *testing.T) {
	samples := make([]float64, 64)
	out := Normalize(samples)

	for i, s := range out {
		if s != 0 {
			t.Fatalf("silence changed at sample %d: %v", i, s)
		}
	}
}

func TestConditionDeterministic(t *testing.T) {
	coeffs, err := defaultSpec().Design()
	if err != nil {
		t.Fatalf("Design() failed: %v", err)
	}

	raw := make([]int16, 1024)
	for i := range raw {
		raw[i] = int16(8000 * math.Sin(2*math.Pi*700*float64(i)/44100))
	}

	first := Condition(raw, coeffs)
	second := Condition(raw, coeffs)

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("non-deterministic conditioning at sample %d", i)
		}
	}

	peak := 0.0
	for _, s := range first {
		if v := math.Abs(s); v > peak {
			peak = v
		}
	}
	if math.Abs(peak-1) > 1e-9 {
		t.Errorf("conditioned peak = %v, want 1", peak)
	}
}
