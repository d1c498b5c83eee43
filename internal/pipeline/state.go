package pipeline

// State is the controller's lifecycle position. Transitions are serialized
// by the controller; readers may observe any state at any time.
type State int32

const (
	// StateStopped is the initial and terminal state. Start is accepted.
	StateStopped State = iota

	// StateStarting covers device resolution and worker spawn. All
	// requests are rejected until the transition settles.
	StateStarting

	// StateRunning means both workers are live. Stop is accepted.
	StateRunning

	// StateStopping covers run-context cancellation and worker join.
	StateStopping

	// StateFailed is entered on a fatal capture error. Only Start is
	// accepted, and it builds a fresh pipeline instance.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
