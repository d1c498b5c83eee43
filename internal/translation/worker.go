package translation

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JPShag/realtime-translation/internal/audio"
)

// WorkerStats is a snapshot of the worker's per-kind outcome counters.
type WorkerStats struct {
	FramesProcessed uint64    `json:"frames_processed"`
	Translated      uint64    `json:"translated"`
	NoSpeech        uint64    `json:"no_speech"`
	Canceled        uint64    `json:"canceled"`
	Failed          uint64    `json:"failed"`
	LastOutcomeAt   time.Time `json:"last_outcome_at"`
}

// Worker pops frames one at a time and translates them. Exactly one outcome
// is delivered per popped frame, in frame production order: the backend call
// is synchronous and never overlapped.
type Worker struct {
	queue   *audio.FrameQueue
	backend Backend
	deliver func(Outcome)
	inLang  string
	outLang string
	logger  *slog.Logger

	mu    sync.Mutex
	stats WorkerStats
}

// NewWorker wires a translation worker. deliver is invoked on the worker's
// goroutine; crossing into another execution context is the callback's
// responsibility.
func NewWorker(queue *audio.FrameQueue, backend Backend, inLang, outLang string,
	deliver func(Outcome), logger *slog.Logger) *Worker {

	return &Worker{
		queue:   queue,
		backend: backend,
		deliver: deliver,
		inLang:  inLang,
		outLang: outLang,
		logger:  logger,
	}
}

// Run is the translation loop. Cancellation is observed between frames; an
// in-flight backend call always completes (bounded by the backend's own
// timeout) before the loop exits.
func (w *Worker) Run(ctx context.Context) {
	for {
		frame, err := w.queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, audio.ErrQueueClosed) {
				w.logger.Debug("Translation loop stopping",
					slog.Uint64("frames_processed", w.GetStats().FramesProcessed),
				)
				return
			}
			w.logger.Error("Frame pop failed", slog.String("error", err.Error()))
			return
		}

		outcome := w.translateFrame(frame)
		w.record(outcome)
		w.deliver(outcome)

		if ctx.Err() != nil {
			return
		}
	}
}

// translateFrame performs one backend call and classifies its result. The
// call runs on a background context: a stop request never preempts an
// in-flight exchange, the backend timeout bounds it instead.
func (w *Worker) translateFrame(frame *audio.Frame) Outcome {
	req := &Request{
		RequestID:      uuid.NewString(),
		Sequence:       frame.Sequence,
		Samples:        frame.Raw,
		SampleRate:     frame.SampleRate,
		Channels:       frame.Channels,
		InputLanguage:  w.inLang,
		OutputLanguage: w.outLang,
	}

	result, err := w.backend.Translate(context.Background(), req)
	if err != nil {
		w.logger.Warn("Backend call failed",
			slog.Uint64("sequence", frame.Sequence),
			slog.String("request_id", req.RequestID),
			slog.String("error", err.Error()),
		)
		return Failed(frame.Sequence, err)
	}

	switch result.Status {
	case StatusTranslated:
		w.logger.Info("Frame translated",
			slog.Uint64("sequence", frame.Sequence),
			slog.String("text", result.Text),
		)
		return Translated(frame.Sequence, result.Text)
	case StatusNoMatch:
		w.logger.Debug("No speech recognized", slog.Uint64("sequence", frame.Sequence))
		return NoSpeech(frame.Sequence)
	case StatusCanceled:
		w.logger.Warn("Recognition canceled",
			slog.Uint64("sequence", frame.Sequence),
			slog.String("reason", result.Reason),
		)
		return Canceled(frame.Sequence, result.Reason)
	default:
		return Failed(frame.Sequence, errors.New("backend returned unknown status"))
	}
}

func (w *Worker) record(outcome Outcome) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stats.FramesProcessed++
	w.stats.LastOutcomeAt = time.Now()

	switch outcome.Kind {
	case KindTranslated:
		w.stats.Translated++
	case KindNoSpeech:
		w.stats.NoSpeech++
	case KindCanceled:
		w.stats.Canceled++
	case KindFailed:
		w.stats.Failed++
	}
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() WorkerStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}
