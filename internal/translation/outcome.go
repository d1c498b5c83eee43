package translation

import "fmt"

// OutcomeKind tags the mutually exclusive translation results for one frame.
type OutcomeKind int

const (
	// KindTranslated carries recognized and translated text.
	KindTranslated OutcomeKind = iota
	// KindNoSpeech means the backend found no recognizable speech.
	KindNoSpeech
	// KindCanceled means the backend canceled recognition, with a reason.
	KindCanceled
	// KindFailed wraps any other backend or transport error.
	KindFailed
)

// String returns the kind's wire/metric label.
func (k OutcomeKind) String() string {
	switch k {
	case KindTranslated:
		return "translated"
	case KindNoSpeech:
		return "no_speech"
	case KindCanceled:
		return "canceled"
	case KindFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Outcome is the result of translating exactly one frame. Exactly one of
// Text, Reason, and Err is meaningful, selected by Kind.
type Outcome struct {
	Kind     OutcomeKind
	Sequence uint64 // frame sequence the outcome belongs to
	Text     string // translated text, KindTranslated only
	Reason   string // cancellation reason, KindCanceled only
	Err      error  // KindFailed only
}

// Translated builds a successful outcome.
func Translated(sequence uint64, text string) Outcome {
	return Outcome{Kind: KindTranslated, Sequence: sequence, Text: text}
}

// NoSpeech builds a no-recognizable-speech outcome.
func NoSpeech(sequence uint64) Outcome {
	return Outcome{Kind: KindNoSpeech, Sequence: sequence}
}

// Canceled builds a backend-cancellation outcome.
func Canceled(sequence uint64, reason string) Outcome {
	return Outcome{Kind: KindCanceled, Sequence: sequence, Reason: reason}
}

// Failed builds an error outcome.
func Failed(sequence uint64, err error) Outcome {
	return Outcome{Kind: KindFailed, Sequence: sequence, Err: err}
}

// String renders the outcome for logs and the stdout sink.
func (o Outcome) String() string {
	switch o.Kind {
	case KindTranslated:
		return o.Text
	case KindNoSpeech:
		return "no speech could be recognized"
	case KindCanceled:
		return fmt.Sprintf("recognition canceled: %s", o.Reason)
	case KindFailed:
		return fmt.Sprintf("translation failed: %v", o.Err)
	default:
		return "unknown outcome"
	}
}
