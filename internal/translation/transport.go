package translation

import "fmt"

// NewBackend constructs the backend client for the named transport.
func NewBackend(transport string, cfg Config) (Backend, error) {
	switch transport {
	case "http":
		return NewClient(cfg)
	case "websocket":
		return NewWSClient(cfg)
	default:
		return nil, fmt.Errorf("unknown translation transport %q", transport)
	}
}
