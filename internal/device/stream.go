package device

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gen2brain/malgo"
)

// ErrStreamClosed is returned by ReadChunk after Close.
var ErrStreamClosed = errors.New("capture stream closed")

// CaptureStream adapts miniaudio's callback-driven capture into the blocking
// ReadChunk contract the capture worker expects. The device callback
// accumulates raw PCM and emits fixed-size chunks into a small internal
// channel; ReadChunk blocks on that channel. When the consumer stalls past
// the channel's capacity the oldest chunk is dropped and counted, keeping
// the stream live rather than archival.
type CaptureStream struct {
	device *malgo.Device
	logger *slog.Logger

	chunkSamples int // samples per chunk, channels included
	chunkBytes   int

	mu      sync.Mutex
	pending []byte

	chunks  chan []int16
	stopped chan struct{} // closed when the device stops on its own

	closeOnce sync.Once
	closed    chan struct{}

	dropped uint64
}

func newCaptureStream(params StreamParams, logger *slog.Logger) *CaptureStream {
	chunkSamples := params.ChunkSize * params.Channels
	return &CaptureStream{
		logger:       logger,
		chunkSamples: chunkSamples,
		chunkBytes:   chunkSamples * 2,
		pending:      make([]byte, 0, chunkSamples*4),
		chunks:       make(chan []int16, 8),
		stopped:      make(chan struct{}),
		closed:       make(chan struct{}),
	}
}

// onData runs on the miniaudio callback thread. It must never block.
func (s *CaptureStream) onData(_, input []byte, _ uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = append(s.pending, input...)

	for len(s.pending) >= s.chunkBytes {
		chunk := make([]int16, s.chunkSamples)
		for i := 0; i < s.chunkSamples; i++ {
			chunk[i] = int16(binary.LittleEndian.Uint16(s.pending[i*2:]))
		}
		s.pending = s.pending[s.chunkBytes:]

		select {
		case s.chunks <- chunk:
		default:
			// Consumer stalled beyond the internal buffer; shed the
			// oldest chunk to keep capture live.
			select {
			case <-s.chunks:
				s.dropped++
			default:
			}
			select {
			case s.chunks <- chunk:
			default:
			}
		}
	}
}

// onStop runs when the device stops. A stop that was not requested through
// Close signals a device failure to the reader.
func (s *CaptureStream) onStop() {
	select {
	case <-s.closed:
		return
	default:
		close(s.stopped)
	}
}

// ReadChunk blocks until one full chunk of interleaved samples is available,
// the context is cancelled, or the stream fails or is closed.
func (s *CaptureStream) ReadChunk(ctx context.Context) ([]int16, error) {
	select {
	case chunk := <-s.chunks:
		return chunk, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.closed:
		return nil, ErrStreamClosed
	case <-s.stopped:
		return nil, fmt.Errorf("capture device stopped unexpectedly")
	}
}

// Dropped returns the number of chunks shed because the consumer stalled.
func (s *CaptureStream) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close stops the device and releases it. Safe to call more than once, and
// deterministic: the device is released before Close returns.
func (s *CaptureStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		if s.device != nil {
			if stopErr := s.device.Stop(); stopErr != nil {
				err = fmt.Errorf("failed to stop capture device: %w", stopErr)
			}
			s.device.Uninit()
		}
		if dropped := s.Dropped(); dropped > 0 {
			s.logger.Warn("Capture stream closed with dropped chunks",
				slog.Uint64("dropped", dropped),
			)
		}
	})
	return err
}
