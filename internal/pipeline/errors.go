package pipeline

import "errors"

// Sentinel errors for the pipeline's failure classes. Callers match them
// with errors.Is; the wrapped message carries the detail.
var (
	// ErrConfig marks an invalid configuration. The pipeline state is
	// unchanged when Start returns it.
	ErrConfig = errors.New("invalid configuration")

	// ErrDevice marks an audio device failure. During Start the state is
	// rolled back; during Running it is fatal.
	ErrDevice = errors.New("device failure")

	// ErrLifecycle marks a request rejected by the current state, such as
	// Start while Running or Stop during a transition.
	ErrLifecycle = errors.New("invalid lifecycle transition")
)
