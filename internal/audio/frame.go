package audio

import "time"

// Frame is one conditioned chunk of captured audio. Frames are immutable once
// produced: the capture worker is the only writer and it never touches a
// frame after pushing it.
type Frame struct {
	// Sequence is the monotonic production index, starting at 0 for the
	// first chunk of a pipeline run.
	Sequence uint64

	// Samples holds the conditioned (filtered, peak-normalized) audio.
	Samples []float64

	// Raw holds the unconditioned PCM samples the chunk was read as. The
	// translation backend receives these; the conditioned samples exist for
	// downstream consumers that want the cleaned signal.
	Raw []int16

	SampleRate int
	Channels   int

	// CapturedAt is when the chunk read completed.
	CapturedAt time.Time
}

// Duration returns the play time the frame covers.
func (f *Frame) Duration() time.Duration {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return 0
	}
	frames := len(f.Raw) / f.Channels
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}
