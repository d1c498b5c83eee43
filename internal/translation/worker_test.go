package translation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/JPShag/realtime-translation/internal/audio"
)

// scriptedBackend returns pre-programmed results keyed by call order.
type scriptedBackend struct {
	mu      sync.Mutex
	results []*Result
	errs    []error
	calls   int
	lastReq *Request
}

func (b *scriptedBackend) Translate(_ context.Context, req *Request) (*Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.calls
	b.calls++
	b.lastReq = req

	if i < len(b.errs) && b.errs[i] != nil {
		return nil, b.errs[i]
	}
	if i < len(b.results) {
		return b.results[i], nil
	}
	return &Result{Status: StatusNoMatch}, nil
}

func (b *scriptedBackend) Close() error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type collector struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (c *collector) deliver(o Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes = append(c.outcomes, o)
}

func (c *collector) snapshot() []Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Outcome(nil), c.outcomes...)
}

func pushFrames(t *testing.T, queue *audio.FrameQueue, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		frame := &audio.Frame{
			Sequence:   uint64(i + 1),
			Samples:    []float64{0.1, -0.1},
			Raw:        []int16{3276, -3276},
			SampleRate: 44100,
			Channels:   1,
			CapturedAt: time.Now(),
		}
		if err := queue.Push(context.Background(), frame); err != nil {
			t.Fatalf("push failed: %v", err)
		}
	}
}

func TestWorkerMapsOutcomes(t *testing.T) {
	backend := &scriptedBackend{
		results: []*Result{
			{Status: StatusTranslated, Text: "hola mundo"},
			{Status: StatusNoMatch},
			{Status: StatusCanceled, Reason: "authentication failure"},
		},
		errs: []error{nil, nil, nil, errors.New("connection reset")},
	}

	queue := audio.NewFrameQueue(8)
	sink := &collector{}
	worker := NewWorker(queue, backend, "en-US", "es-ES", sink.deliver, discardLogger())

	pushFrames(t, queue, 4)
	queue.Close()

	worker.Run(context.Background())

	outcomes := sink.snapshot()
	if len(outcomes) != 4 {
		t.Fatalf("got %d outcomes, want 4", len(outcomes))
	}

	want := []OutcomeKind{KindTranslated, KindNoSpeech, KindCanceled, KindFailed}
	for i, kind := range want {
		if outcomes[i].Kind != kind {
			t.Errorf("outcome %d kind = %v, want %v", i, outcomes[i].Kind, kind)
		}
		if outcomes[i].Sequence != uint64(i+1) {
			t.Errorf("outcome %d sequence = %d, want %d", i, outcomes[i].Sequence, i+1)
		}
	}

	if outcomes[0].Text != "hola mundo" {
		t.Errorf("translated text = %q", outcomes[0].Text)
	}
	if outcomes[2].Reason != "authentication failure" {
		t.Errorf("canceled reason = %q", outcomes[2].Reason)
	}
	if outcomes[3].Err == nil {
		t.Error("failed outcome should carry the backend error")
	}

	stats := worker.GetStats()
	if stats.FramesProcessed != 4 || stats.Translated != 1 || stats.NoSpeech != 1 ||
		stats.Canceled != 1 || stats.Failed != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestWorkerSilenceRunKeepsGoing(t *testing.T) {
	backend := &scriptedBackend{
		results: []*Result{
			{Status: StatusNoMatch},
			{Status: StatusNoMatch},
			{Status: StatusNoMatch},
		},
	}

	queue := audio.NewFrameQueue(8)
	sink := &collector{}
	worker := NewWorker(queue, backend, "en-US", "uk-UA", sink.deliver, discardLogger())

	pushFrames(t, queue, 3)
	queue.Close()

	worker.Run(context.Background())

	outcomes := sink.snapshot()
	if len(outcomes) != 3 {
		t.Fatalf("got %d outcomes, want 3", len(outcomes))
	}
	for i, o := range outcomes {
		if o.Kind != KindNoSpeech {
			t.Errorf("outcome %d kind = %v, want no_speech", i, o.Kind)
		}
	}
}

func TestWorkerBackendErrorIsNotFatal(t *testing.T) {
	backend := &scriptedBackend{
		errs: []error{errors.New("timeout"), nil},
		results: []*Result{
			nil,
			{Status: StatusTranslated, Text: "after recovery"},
		},
	}

	queue := audio.NewFrameQueue(8)
	sink := &collector{}
	worker := NewWorker(queue, backend, "en-US", "es-ES", sink.deliver, discardLogger())

	pushFrames(t, queue, 2)
	queue.Close()

	worker.Run(context.Background())

	outcomes := sink.snapshot()
	if len(outcomes) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(outcomes))
	}
	if outcomes[0].Kind != KindFailed {
		t.Errorf("first outcome = %v, want failed", outcomes[0].Kind)
	}
	if outcomes[1].Kind != KindTranslated || outcomes[1].Text != "after recovery" {
		t.Errorf("second outcome = %+v, want translated", outcomes[1])
	}
}

func TestWorkerStopsOnCancel(t *testing.T) {
	queue := audio.NewFrameQueue(8)
	worker := NewWorker(queue, &scriptedBackend{}, "en-US", "es-ES",
		func(Outcome) {}, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
}

func TestWorkerRequestCarriesFrameFields(t *testing.T) {
	backend := &scriptedBackend{results: []*Result{{Status: StatusNoMatch}}}

	queue := audio.NewFrameQueue(1)
	worker := NewWorker(queue, backend, "fr-FR", "de-DE",
		func(Outcome) {}, discardLogger())

	pushFrames(t, queue, 1)
	queue.Close()

	worker.Run(context.Background())

	backend.mu.Lock()
	req := backend.lastReq
	backend.mu.Unlock()

	if req == nil {
		t.Fatal("backend never called")
	}
	if req.RequestID == "" {
		t.Error("request id not set")
	}
	if req.Sequence != 1 {
		t.Errorf("sequence = %d, want 1", req.Sequence)
	}
	if req.InputLanguage != "fr-FR" || req.OutputLanguage != "de-DE" {
		t.Errorf("languages = %q -> %q", req.InputLanguage, req.OutputLanguage)
	}
	if req.SampleRate != 44100 || req.Channels != 1 {
		t.Errorf("format = %d Hz %d ch", req.SampleRate, req.Channels)
	}
	if len(req.Samples) != 2 {
		t.Errorf("samples length = %d, want 2", len(req.Samples))
	}
}
