package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/JPShag/realtime-translation/internal/capture"
	"github.com/JPShag/realtime-translation/internal/config"
	"github.com/JPShag/realtime-translation/internal/device"
	"github.com/JPShag/realtime-translation/internal/translation"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPipelineConfig() *config.Config {
	return &config.Config{
		Capture: config.CaptureConfig{
			SampleRate:    8000,
			Channels:      1,
			ChunkSize:     128,
			QueueCapacity: 8,
		},
		Filter: config.FilterConfig{
			LowCutHz:  300,
			HighCutHz: 3000,
			Order:     5,
		},
		Translation: config.TranslationConfig{
			Transport:      "http",
			Endpoint:       "http://localhost:9999/translate",
			APIKey:         "test-key",
			InputLanguage:  "en-US",
			OutputLanguage: "es-ES",
			Timeout:        5,
		},
		Logging: config.LoggingConfig{Level: "info", Format: "text"},
	}
}

// fakeSource yields chunks up to a limit and blocks afterwards. A failAt
// sequence makes that read return an error instead of a chunk.
type fakeSource struct {
	mu     sync.Mutex
	chunks int
	limit  int
	failAt int
	closed bool
}

func (s *fakeSource) ReadChunk(ctx context.Context) ([]int16, error) {
	s.mu.Lock()
	s.chunks++
	n := s.chunks
	s.mu.Unlock()

	if s.failAt > 0 && n == s.failAt {
		return nil, errors.New("device unplugged")
	}
	if s.limit > 0 && n > s.limit {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	chunk := make([]int16, 128)
	for i := range chunk {
		chunk[i] = int16(i%64 - 32)
	}
	return chunk, nil
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type fakeCatalog struct {
	source     *fakeSource
	resolveErr error
	openErr    error
}

func (c *fakeCatalog) Resolve(id string) (device.Descriptor, error) {
	if c.resolveErr != nil {
		return device.Descriptor{}, c.resolveErr
	}
	return device.Descriptor{ID: id, Name: "fake input", Default: id == ""}, nil
}

func (c *fakeCatalog) Open(device.Descriptor, device.StreamParams) (capture.Source, error) {
	if c.openErr != nil {
		return nil, c.openErr
	}
	return c.source, nil
}

type fakeBackend struct {
	mu     sync.Mutex
	status translation.ResultStatus
	calls  int
}

func (b *fakeBackend) Translate(context.Context, *translation.Request) (*translation.Result, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	return &translation.Result{Status: b.status, Text: "hola"}, nil
}

func (b *fakeBackend) Close() error { return nil }

func fakeFactory(backend translation.Backend) BackendFactory {
	return func(*config.Config) (translation.Backend, error) {
		return backend, nil
	}
}

type recordingSink struct {
	mu       sync.Mutex
	outcomes []translation.Outcome
	fatals   []error
}

func (s *recordingSink) OnResult(o translation.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, o)
}

func (s *recordingSink) OnFatalError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fatals = append(s.fatals, err)
}

func (s *recordingSink) outcomeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.outcomes)
}

func (s *recordingSink) fatalCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fatals)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestStartThenImmediateStop(t *testing.T) {
	catalog := &fakeCatalog{source: &fakeSource{limit: 0}}
	sink := &recordingSink{}
	ctrl := NewController(catalog,
		fakeFactory(&fakeBackend{status: translation.StatusNoMatch}), sink, testLogger())

	if err := ctrl.Start(testPipelineConfig()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if got := ctrl.State(); got != StateRunning {
		t.Fatalf("state after start = %v, want running", got)
	}

	if err := ctrl.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if got := ctrl.State(); got != StateStopped {
		t.Fatalf("state after stop = %v, want stopped", got)
	}
	if sink.fatalCount() != 0 {
		t.Errorf("clean stop reported %d fatal errors", sink.fatalCount())
	}
}

func TestStopWhenStoppedIsNoop(t *testing.T) {
	ctrl := NewController(&fakeCatalog{source: &fakeSource{}},
		fakeFactory(&fakeBackend{status: translation.StatusNoMatch}),
		&recordingSink{}, testLogger())

	if err := ctrl.Stop(); err != nil {
		t.Fatalf("Stop on stopped pipeline returned %v", err)
	}
	if got := ctrl.State(); got != StateStopped {
		t.Fatalf("state = %v, want stopped", got)
	}
}

func TestStartWhileRunningRejected(t *testing.T) {
	catalog := &fakeCatalog{source: &fakeSource{}}
	ctrl := NewController(catalog,
		fakeFactory(&fakeBackend{status: translation.StatusNoMatch}),
		&recordingSink{}, testLogger())

	if err := ctrl.Start(testPipelineConfig()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer ctrl.Stop()

	err := ctrl.Start(testPipelineConfig())
	if !errors.Is(err, ErrLifecycle) {
		t.Fatalf("second start returned %v, want lifecycle error", err)
	}
	if got := ctrl.State(); got != StateRunning {
		t.Fatalf("state after rejected start = %v, want running", got)
	}
}

func TestStartRejectsInvalidConfig(t *testing.T) {
	ctrl := NewController(&fakeCatalog{source: &fakeSource{}},
		fakeFactory(&fakeBackend{status: translation.StatusNoMatch}),
		&recordingSink{}, testLogger())

	cfg := testPipelineConfig()
	cfg.Translation.InputLanguage = ""

	err := ctrl.Start(cfg)
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("Start returned %v, want config error", err)
	}
	if got := ctrl.State(); got != StateStopped {
		t.Fatalf("state after rejected config = %v, want stopped", got)
	}
}

func TestStartRejectsUnknownDevice(t *testing.T) {
	catalog := &fakeCatalog{resolveErr: errors.New("no such device")}
	ctrl := NewController(catalog,
		fakeFactory(&fakeBackend{status: translation.StatusNoMatch}),
		&recordingSink{}, testLogger())

	err := ctrl.Start(testPipelineConfig())
	if !errors.Is(err, ErrDevice) {
		t.Fatalf("Start returned %v, want device error", err)
	}
	if got := ctrl.State(); got != StateStopped {
		t.Fatalf("state after device error = %v, want stopped", got)
	}
}

func TestSilenceKeepsPipelineRunning(t *testing.T) {
	catalog := &fakeCatalog{source: &fakeSource{limit: 3}}
	sink := &recordingSink{}
	ctrl := NewController(catalog,
		fakeFactory(&fakeBackend{status: translation.StatusNoMatch}), sink, testLogger())

	if err := ctrl.Start(testPipelineConfig()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer ctrl.Stop()

	waitFor(t, "three outcomes", func() bool { return sink.outcomeCount() >= 3 })

	sink.mu.Lock()
	outcomes := append([]translation.Outcome(nil), sink.outcomes...)
	sink.mu.Unlock()

	for i, o := range outcomes[:3] {
		if o.Kind != translation.KindNoSpeech {
			t.Errorf("outcome %d kind = %v, want no_speech", i, o.Kind)
		}
		if o.Sequence != uint64(i) {
			t.Errorf("outcome %d sequence = %d, want %d", i, o.Sequence, i)
		}
	}
	if got := ctrl.State(); got != StateRunning {
		t.Fatalf("state after silence = %v, want running", got)
	}
}

func TestCaptureFailureMovesToFailed(t *testing.T) {
	source := &fakeSource{failAt: 2}
	catalog := &fakeCatalog{source: source}
	sink := &recordingSink{}
	ctrl := NewController(catalog,
		fakeFactory(&fakeBackend{status: translation.StatusNoMatch}), sink, testLogger())

	if err := ctrl.Start(testPipelineConfig()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	waitFor(t, "failed state", func() bool { return ctrl.State() == StateFailed })
	waitFor(t, "fatal notification", func() bool { return sink.fatalCount() > 0 })

	if sink.fatalCount() != 1 {
		t.Fatalf("got %d fatal notifications, want exactly 1", sink.fatalCount())
	}

	sink.mu.Lock()
	fatal := sink.fatals[0]
	sink.mu.Unlock()
	if !errors.Is(fatal, ErrDevice) {
		t.Errorf("fatal error = %v, want device error", fatal)
	}

	source.mu.Lock()
	closed := source.closed
	source.mu.Unlock()
	if !closed {
		t.Error("source not closed after fatal failure")
	}

	if err := ctrl.Stop(); !errors.Is(err, ErrLifecycle) {
		t.Fatalf("Stop from failed returned %v, want lifecycle error", err)
	}

	// Restart with a healthy device recovers.
	catalog.source = &fakeSource{}
	if err := ctrl.Start(testPipelineConfig()); err != nil {
		t.Fatalf("restart after failure: %v", err)
	}
	if got := ctrl.State(); got != StateRunning {
		t.Fatalf("state after restart = %v, want running", got)
	}
	if err := ctrl.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if sink.fatalCount() != 1 {
		t.Errorf("restart produced extra fatal notifications: %d", sink.fatalCount())
	}
}

func TestRestartProducesFreshSequence(t *testing.T) {
	catalog := &fakeCatalog{source: &fakeSource{limit: 2}}
	sink := &recordingSink{}
	ctrl := NewController(catalog,
		fakeFactory(&fakeBackend{status: translation.StatusTranslated}), sink, testLogger())

	if err := ctrl.Start(testPipelineConfig()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, "first run outcomes", func() bool { return sink.outcomeCount() >= 2 })
	if err := ctrl.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	catalog.source = &fakeSource{limit: 1}
	if err := ctrl.Start(testPipelineConfig()); err != nil {
		t.Fatalf("second Start failed: %v", err)
	}
	waitFor(t, "second run outcome", func() bool { return sink.outcomeCount() >= 3 })
	if err := ctrl.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	sink.mu.Lock()
	last := sink.outcomes[2]
	sink.mu.Unlock()
	if last.Sequence != 0 {
		t.Errorf("first sequence of second run = %d, want 0", last.Sequence)
	}
}

func TestGetStatusReflectsState(t *testing.T) {
	catalog := &fakeCatalog{source: &fakeSource{limit: 1}}
	sink := &recordingSink{}
	ctrl := NewController(catalog,
		fakeFactory(&fakeBackend{status: translation.StatusNoMatch}), sink, testLogger())

	if got := ctrl.GetStatus(); got.State != "stopped" || got.Capture != nil {
		t.Fatalf("idle status = %+v", got)
	}

	if err := ctrl.Start(testPipelineConfig()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer ctrl.Stop()

	waitFor(t, "one outcome", func() bool { return sink.outcomeCount() >= 1 })

	status := ctrl.GetStatus()
	if status.State != "running" {
		t.Errorf("status.State = %q, want running", status.State)
	}
	if status.Capture == nil || status.Capture.ChunksCaptured < 1 {
		t.Errorf("capture stats missing or empty: %+v", status.Capture)
	}
	if status.Translation == nil || status.Translation.FramesProcessed < 1 {
		t.Errorf("translation stats missing or empty: %+v", status.Translation)
	}
}
