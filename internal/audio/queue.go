package audio

import (
	"context"
	"errors"
	"sync"
)

// DefaultQueueCapacity bounds the hand-off buffer between capture and
// translation. Small on purpose: the queue absorbs brief backend stalls, and
// beyond that capture itself is meant to block.
const DefaultQueueCapacity = 16

// ErrQueueClosed is returned by Push and Pop once the queue has been closed.
var ErrQueueClosed = errors.New("frame queue closed")

// FrameQueue is a bounded FIFO buffer of frames with blocking, context-aware
// push and pop. It assumes a single producer and a single consumer; under
// that contract pops always observe frames in production order.
type FrameQueue struct {
	frames chan *Frame

	closeOnce sync.Once
	closed    chan struct{}
}

// NewFrameQueue creates a queue with the given capacity. Non-positive
// capacities fall back to DefaultQueueCapacity.
func NewFrameQueue(capacity int) *FrameQueue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &FrameQueue{
		frames: make(chan *Frame, capacity),
		closed: make(chan struct{}),
	}
}

// Push blocks until there is space for the frame, the context is cancelled,
// or the queue is closed.
func (q *FrameQueue) Push(ctx context.Context, frame *Frame) error {
	// A closed queue refuses the frame even when buffer space is free; in
	// the blocking select alone both cases can be ready and either wins.
	select {
	case <-q.closed:
		return ErrQueueClosed
	default:
	}

	select {
	case <-q.closed:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	case q.frames <- frame:
		return nil
	}
}

// Pop blocks until a frame is available, the context is cancelled, or the
// queue is closed and drained.
func (q *FrameQueue) Pop(ctx context.Context) (*Frame, error) {
	// Drain buffered frames even after close so nothing already captured is
	// dropped on shutdown.
	select {
	case frame := <-q.frames:
		return frame, nil
	default:
	}

	select {
	case frame := <-q.frames:
		return frame, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-q.closed:
		select {
		case frame := <-q.frames:
			return frame, nil
		default:
			return nil, ErrQueueClosed
		}
	}
}

// Len returns the number of frames currently buffered.
func (q *FrameQueue) Len() int {
	return len(q.frames)
}

// Cap returns the queue capacity.
func (q *FrameQueue) Cap() int {
	return cap(q.frames)
}

// Close marks the queue closed. Pending pops drain remaining frames and then
// fail with ErrQueueClosed. Close is idempotent.
func (q *FrameQueue) Close() {
	q.closeOnce.Do(func() {
		close(q.closed)
	})
}
