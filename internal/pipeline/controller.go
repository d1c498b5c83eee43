package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/JPShag/realtime-translation/internal/audio"
	"github.com/JPShag/realtime-translation/internal/capture"
	"github.com/JPShag/realtime-translation/internal/config"
	"github.com/JPShag/realtime-translation/internal/device"
	"github.com/JPShag/realtime-translation/internal/dsp"
	"github.com/JPShag/realtime-translation/internal/translation"
)

// Sink receives pipeline output. Both methods are invoked from pipeline
// goroutines; thread hopping is the sink's concern. A sink must not call
// back into the controller synchronously.
type Sink interface {
	// OnResult receives exactly one outcome per captured frame, in frame
	// production order.
	OnResult(translation.Outcome)

	// OnFatalError is called at most once per run, when the pipeline
	// moves to the failed state on its own.
	OnFatalError(error)
}

// Catalog is the device surface the controller needs: resolve an id and
// open a capture stream on it.
type Catalog interface {
	Resolve(id string) (device.Descriptor, error)
	Open(desc device.Descriptor, params device.StreamParams) (capture.Source, error)
}

// BackendFactory builds the translation backend for a run. Each start
// constructs a fresh backend so credentials and endpoints follow the config.
type BackendFactory func(cfg *config.Config) (translation.Backend, error)

// DefaultBackendFactory builds the HTTP or websocket client named by
// translation.transport.
func DefaultBackendFactory(cfg *config.Config) (translation.Backend, error) {
	return translation.NewBackend(cfg.Translation.Transport, translation.Config{
		Endpoint:       cfg.Translation.Endpoint,
		APIKey:         cfg.Translation.APIKey,
		InputLanguage:  cfg.Translation.InputLanguage,
		OutputLanguage: cfg.Translation.OutputLanguage,
		Timeout:        cfg.Translation.GetTimeoutDuration(),
		MaxRetries:     cfg.Translation.MaxRetries,
	})
}

// WrapCatalog adapts the miniaudio catalog to the controller's interface.
func WrapCatalog(c *device.MalgoCatalog) Catalog {
	return malgoCatalog{c}
}

type malgoCatalog struct {
	c *device.MalgoCatalog
}

func (m malgoCatalog) Resolve(id string) (device.Descriptor, error) {
	return m.c.Resolve(id)
}

func (m malgoCatalog) Open(desc device.Descriptor, params device.StreamParams) (capture.Source, error) {
	return m.c.Open(desc, params)
}

// run is one pipeline instance. A run is never revived: every start builds
// a new one, and a cleared run's context stays cancelled forever.
type run struct {
	cancel  context.CancelFunc
	queue   *audio.FrameQueue
	backend translation.Backend
	capture *capture.Worker
	trans   *translation.Worker
	wg      sync.WaitGroup
}

// Controller owns the pipeline state machine. All transitions are
// serialized; a request arriving while another transition is in flight is
// rejected with ErrLifecycle rather than queued.
type Controller struct {
	catalog    Catalog
	newBackend BackendFactory
	sink       Sink
	logger     *slog.Logger

	state atomic.Int32

	mu  sync.Mutex // serializes transitions, guards cur
	cur *run
}

// NewController creates a stopped controller.
func NewController(catalog Catalog, factory BackendFactory, sink Sink, logger *slog.Logger) *Controller {
	return &Controller{
		catalog:    catalog,
		newBackend: factory,
		sink:       sink,
		logger:     logger,
	}
}

// State reports the current lifecycle state. Safe to call at any time.
func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) setState(s State) {
	c.state.Store(int32(s))
}

// Start validates the config, opens the device, and spawns the capture and
// translation workers. Valid from the stopped and failed states; on a
// validation error the state is unchanged, on a device or backend error it
// is rolled back.
func (c *Controller) Start(cfg *config.Config) error {
	if !c.mu.TryLock() {
		return fmt.Errorf("%w: another transition is in flight", ErrLifecycle)
	}
	defer c.mu.Unlock()

	prev := c.State()
	switch prev {
	case StateStopped, StateFailed:
	default:
		return fmt.Errorf("%w: start rejected while %s", ErrLifecycle, prev)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}

	c.setState(StateStarting)
	c.logger.Info("Starting pipeline",
		slog.String("device_id", cfg.Capture.DeviceID),
		slog.Bool("loopback", cfg.Capture.Loopback),
		slog.String("languages", cfg.Translation.InputLanguage+" -> "+cfg.Translation.OutputLanguage),
	)

	spec := dsp.FilterSpec{
		LowCut:     cfg.Filter.LowCutHz,
		HighCut:    cfg.Filter.HighCutHz,
		Order:      cfg.Filter.Order,
		SampleRate: cfg.Capture.SampleRate,
	}
	coeffs, err := spec.Design()
	if err != nil {
		c.setState(prev)
		return fmt.Errorf("%w: filter design: %v", ErrConfig, err)
	}

	desc, err := c.catalog.Resolve(cfg.Capture.DeviceID)
	if err != nil {
		c.setState(prev)
		return fmt.Errorf("%w: %v", ErrDevice, err)
	}

	source, err := c.catalog.Open(desc, device.StreamParams{
		SampleRate: cfg.Capture.SampleRate,
		Channels:   cfg.Capture.Channels,
		ChunkSize:  cfg.Capture.ChunkSize,
	})
	if err != nil {
		c.setState(prev)
		return fmt.Errorf("%w: open %q: %v", ErrDevice, desc.Name, err)
	}

	backend, err := c.newBackend(cfg)
	if err != nil {
		source.Close()
		c.setState(prev)
		return fmt.Errorf("%w: backend: %v", ErrConfig, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	queue := audio.NewFrameQueue(cfg.Capture.QueueCapacity)

	r := &run{
		cancel:  cancel,
		queue:   queue,
		backend: backend,
		capture: capture.NewWorker(source, coeffs, queue,
			cfg.Capture.SampleRate, cfg.Capture.Channels, c.logger),
		trans: translation.NewWorker(queue, backend,
			cfg.Translation.InputLanguage, cfg.Translation.OutputLanguage,
			c.sink.OnResult, c.logger),
	}

	captureErr := make(chan error, 1)

	r.wg.Add(2)
	go func() {
		defer r.wg.Done()
		err := r.capture.Run(runCtx)
		queue.Close()
		captureErr <- err
	}()
	go func() {
		defer r.wg.Done()
		r.trans.Run(runCtx)
	}()
	go c.supervise(r, captureErr)

	c.cur = r
	c.setState(StateRunning)
	c.logger.Info("Pipeline running", slog.String("device", desc.Name))
	return nil
}

// Stop cancels the run context and joins both workers. A no-op when already
// stopped; rejected during transitions and from the failed state.
func (c *Controller) Stop() error {
	if !c.mu.TryLock() {
		return fmt.Errorf("%w: another transition is in flight", ErrLifecycle)
	}
	defer c.mu.Unlock()

	switch st := c.State(); st {
	case StateStopped:
		return nil
	case StateRunning:
	case StateFailed:
		return fmt.Errorf("%w: only start is accepted while failed", ErrLifecycle)
	default:
		return fmt.Errorf("%w: stop rejected while %s", ErrLifecycle, st)
	}

	c.setState(StateStopping)
	c.logger.Info("Stopping pipeline")

	c.teardown(c.cur)
	c.cur = nil
	c.setState(StateStopped)

	c.logger.Info("Pipeline stopped")
	return nil
}

// supervise watches one run for a fatal capture error and moves the
// pipeline to the failed state. If a stop races in first the run identity
// check makes this a no-op, so the sink sees at most one fatal error.
func (c *Controller) supervise(r *run, captureErr <-chan error) {
	err := <-captureErr
	if err == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cur != r {
		return
	}

	c.logger.Error("Capture failed, stopping pipeline", slog.String("error", err.Error()))

	c.setState(StateStopping)
	c.teardown(r)
	c.cur = nil
	c.setState(StateFailed)

	c.sink.OnFatalError(fmt.Errorf("%w: %v", ErrDevice, err))
}

// teardown joins a run's workers and releases its backend. Caller holds mu.
func (c *Controller) teardown(r *run) {
	r.cancel()
	r.wg.Wait()

	if err := r.backend.Close(); err != nil {
		c.logger.Warn("Failed to close backend", slog.String("error", err.Error()))
	}
}

// Status is a point-in-time snapshot for the monitoring API.
type Status struct {
	State         string                   `json:"state"`
	QueueDepth    int                      `json:"queue_depth"`
	QueueCapacity int                      `json:"queue_capacity"`
	Capture       *capture.Stats           `json:"capture,omitempty"`
	Translation   *translation.WorkerStats `json:"translation,omitempty"`
	Backend       *translation.ClientStats `json:"backend,omitempty"`
}

// GetStatus reports the state and, while a run is live, its worker and
// backend counters.
func (c *Controller) GetStatus() Status {
	status := Status{State: c.State().String()}

	c.mu.Lock()
	r := c.cur
	c.mu.Unlock()

	if r == nil {
		return status
	}

	status.QueueDepth = r.queue.Len()
	status.QueueCapacity = r.queue.Cap()

	capStats := r.capture.GetStats()
	status.Capture = &capStats

	trStats := r.trans.GetStats()
	status.Translation = &trStats

	if sp, ok := r.backend.(interface{ GetStats() translation.ClientStats }); ok {
		beStats := sp.GetStats()
		status.Backend = &beStats
	}
	return status
}
