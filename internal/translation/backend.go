package translation

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"
)

// Request carries one frame's audio and the session language pair to the
// backend.
type Request struct {
	RequestID      string
	Sequence       uint64
	Samples        []int16
	SampleRate     int
	Channels       int
	InputLanguage  string
	OutputLanguage string
}

// ResultStatus is the backend's classification of a request.
type ResultStatus string

const (
	StatusTranslated ResultStatus = "translated"
	StatusNoMatch    ResultStatus = "no_match"
	StatusCanceled   ResultStatus = "canceled"
)

// Result is a successful backend response. Transport and server errors are
// returned as Go errors, not results.
type Result struct {
	Status ResultStatus `json:"status"`
	Text   string       `json:"text,omitempty"`
	Reason string       `json:"reason,omitempty"`
}

// Validate rejects responses with an unknown status so a misbehaving backend
// surfaces as a failure rather than silence.
func (r *Result) Validate() error {
	switch r.Status {
	case StatusTranslated, StatusNoMatch, StatusCanceled:
		return nil
	default:
		return fmt.Errorf("backend returned unknown status %q", r.Status)
	}
}

// Backend is the external speech-translation service. Translate is called
// synchronously with one frame at a time; implementations own their transport
// timeouts.
type Backend interface {
	Translate(ctx context.Context, req *Request) (*Result, error)
	Close() error
}

// ClientStats are shared by both backend client implementations.
type ClientStats struct {
	TotalRequests   uint64        `json:"total_requests"`
	SuccessRequests uint64        `json:"success_requests"`
	FailedRequests  uint64        `json:"failed_requests"`
	SuccessRate     float64       `json:"success_rate"`
	TotalRetries    uint64        `json:"total_retries"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
}

// pcmBytes encodes the request samples as little-endian 16-bit PCM, the raw
// format both backends accept.
func pcmBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
