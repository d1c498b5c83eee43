// Package dsp implements the per-chunk signal conditioning stage: a fixed
// Butterworth band-pass filter designed once at pipeline start, followed by
// peak normalization. Filtering is stateless across chunk boundaries, so a
// short transient appears at the start of every chunk; this is an accepted
// trade-off of real-time framing, not a defect.
package dsp
