package capture

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/JPShag/realtime-translation/internal/audio"
	"github.com/JPShag/realtime-translation/internal/dsp"
)

// Source is one open audio input stream. ReadChunk blocks until a full chunk
// of interleaved 16-bit samples is available or the context is cancelled.
type Source interface {
	ReadChunk(ctx context.Context) ([]int16, error)
	Close() error
}

// Stats is a snapshot of the worker's counters.
type Stats struct {
	ChunksCaptured uint64        `json:"chunks_captured"`
	LastChunkAt    time.Time     `json:"last_chunk_at"`
	ConditionTime  time.Duration `json:"avg_condition_time"`
}

// Worker reads, conditions, and enqueues audio chunks until the run context
// is cancelled or the source fails.
type Worker struct {
	source     Source
	coeffs     *dsp.Coefficients
	queue      *audio.FrameQueue
	sampleRate int
	channels   int
	logger     *slog.Logger

	mu            sync.Mutex
	chunksRead    uint64
	lastChunkAt   time.Time
	conditionTime time.Duration
}

// NewWorker wires a capture worker. The coefficients were designed once at
// pipeline start and are treated as immutable.
func NewWorker(source Source, coeffs *dsp.Coefficients, queue *audio.FrameQueue,
	sampleRate, channels int, logger *slog.Logger) *Worker {

	return &Worker{
		source:     source,
		coeffs:     coeffs,
		queue:      queue,
		sampleRate: sampleRate,
		channels:   channels,
		logger:     logger,
	}
}

// Run is the capture loop. It observes cancellation at chunk granularity: an
// in-flight read finishes before the loop notices a cancelled context. The
// source is closed before Run returns, whatever the queue state.
//
// A read failure is returned to the caller (the controller treats it as
// fatal); a cancelled context is a normal stop and returns nil.
func (w *Worker) Run(ctx context.Context) error {
	defer func() {
		if err := w.source.Close(); err != nil {
			w.logger.Warn("Failed to close capture source", slog.String("error", err.Error()))
		}
	}()

	var sequence uint64

	for {
		if ctx.Err() != nil {
			w.logger.Debug("Capture loop stopping", slog.Uint64("chunks", sequence))
			return nil
		}

		raw, err := w.source.ReadChunk(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			w.logger.Error("Capture read failed",
				slog.Uint64("sequence", sequence),
				slog.String("error", err.Error()),
			)
			return err
		}

		conditionStart := time.Now()
		conditioned := dsp.Condition(raw, w.coeffs)
		w.recordChunk(time.Since(conditionStart))

		frame := &audio.Frame{
			Sequence:   sequence,
			Samples:    conditioned,
			Raw:        raw,
			SampleRate: w.sampleRate,
			Channels:   w.channels,
			CapturedAt: time.Now(),
		}
		sequence++

		// Blocking backpressure: a full queue pauses capture rather than
		// dropping the frame.
		if err := w.queue.Push(ctx, frame); err != nil {
			if errors.Is(err, audio.ErrQueueClosed) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
}

func (w *Worker) recordChunk(conditionTime time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.chunksRead++
	w.lastChunkAt = time.Now()
	if w.conditionTime == 0 {
		w.conditionTime = conditionTime
	} else {
		w.conditionTime = (w.conditionTime + conditionTime) / 2
	}
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	return Stats{
		ChunksCaptured: w.chunksRead,
		LastChunkAt:    w.lastChunkAt,
		ConditionTime:  w.conditionTime,
	}
}
