package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JPShag/realtime-translation/internal/config"
	"github.com/JPShag/realtime-translation/internal/device"
	"github.com/JPShag/realtime-translation/internal/metrics"
	"github.com/JPShag/realtime-translation/internal/pipeline"
	"github.com/JPShag/realtime-translation/internal/server"
	"github.com/JPShag/realtime-translation/internal/translation"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "realtime-translation"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	listDevices := flag.Bool("list-devices", false, "List capture devices and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Open the host audio subsystem
	catalog, err := device.NewMalgoCatalog(logger, cfg.Capture.Loopback)
	if err != nil {
		logger.Error("Failed to initialize audio subsystem", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer catalog.Close()

	if *listDevices {
		printDevices(catalog)
		return
	}

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.String("device_id", cfg.Capture.DeviceID),
		slog.Bool("loopback", cfg.Capture.Loopback),
		slog.Int("sample_rate", cfg.Capture.SampleRate),
		slog.Int("channels", cfg.Capture.Channels),
		slog.Int("chunk_size", cfg.Capture.ChunkSize),
		slog.Float64("low_cut_hz", cfg.Filter.LowCutHz),
		slog.Float64("high_cut_hz", cfg.Filter.HighCutHz),
		slog.String("translation_transport", cfg.Translation.Transport),
		slog.String("translation_endpoint", cfg.Translation.Endpoint),
		slog.String("input_language", cfg.Translation.InputLanguage),
		slog.String("output_language", cfg.Translation.OutputLanguage),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Subtitle sink writing translated text to stdout
	sink := &subtitleSink{logger: logger, metrics: appMetrics}

	controller := pipeline.NewController(pipeline.WrapCatalog(catalog),
		pipeline.DefaultBackendFactory, sink, logger)

	// Initialize HTTP API server (if enabled)
	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg.HTTP, logger, cfg, controller, catalog, appMetrics)
		logger.Info("HTTP API server initialized",
			slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
		)
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Start the capture/translation pipeline
	if err := controller.Start(cfg); err != nil {
		logger.Error("Failed to start pipeline", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Feed the pipeline gauges from status snapshots
	pollCtx, pollCancel := context.WithCancel(context.Background())
	defer pollCancel()
	go pollStatus(pollCtx, controller, appMetrics)

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...")

	sig := <-sigChan
	logger.Info("Received shutdown signal", slog.String("signal", sig.String()))

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new requests)
	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		}
	}

	// Stop the pipeline (joins capture and translation workers)
	status := controller.GetStatus()
	if err := controller.Stop(); err != nil {
		logger.Error("Error stopping pipeline", slog.String("error", err.Error()))
	}

	// Final statistics from the last snapshot before the stop
	if status.Capture != nil && status.Translation != nil {
		logger.Info("Final pipeline statistics",
			slog.Uint64("chunks_captured", status.Capture.ChunksCaptured),
			slog.Uint64("frames_translated", status.Translation.Translated),
			slog.Uint64("no_speech", status.Translation.NoSpeech),
			slog.Uint64("canceled", status.Translation.Canceled),
			slog.Uint64("failed", status.Translation.Failed),
		)
	}

	logger.Info("Service stopped")
}

// subtitleSink prints translated text to stdout and records outcome metrics.
type subtitleSink struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func (s *subtitleSink) OnResult(o translation.Outcome) {
	s.metrics.RecordOutcome(o.Kind.String())

	switch o.Kind {
	case translation.KindTranslated:
		fmt.Println(o.Text)
	case translation.KindCanceled:
		s.logger.Warn("Recognition canceled",
			slog.Uint64("sequence", o.Sequence),
			slog.String("reason", o.Reason),
		)
	}
}

func (s *subtitleSink) OnFatalError(err error) {
	s.metrics.RecordFatalError()
	s.logger.Error("Pipeline failed", slog.String("error", err.Error()))
}

// pollStatus refreshes the status-derived gauges once per second.
func pollStatus(ctx context.Context, controller *pipeline.Controller, m *metrics.Metrics) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		status := controller.GetStatus()
		m.SetPipelineState(int(controller.State()))
		m.SetQueueDepth(status.QueueDepth, status.QueueCapacity)
		if status.Capture != nil {
			m.SetChunksCaptured(status.Capture.ChunksCaptured)
		}
		if status.Backend != nil {
			m.SetBackendStats(status.Backend.TotalRequests, status.Backend.FailedRequests,
				status.Backend.TotalRetries, status.Backend.AvgResponseTime)
		}
	}
}

// printDevices writes the capture device table for -list-devices.
func printDevices(catalog device.Catalog) {
	devices, err := catalog.InputDevices()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to enumerate devices: %v\n", err)
		os.Exit(1)
	}

	if len(devices) == 0 {
		fmt.Println("No capture devices found")
		return
	}

	for _, d := range devices {
		marker := " "
		if d.Default {
			marker = "*"
		}
		kind := "input"
		if d.Loopback {
			kind = "loopback"
		}
		fmt.Printf("%s %-8s %-40s %s\n", marker, kind, d.Name, d.ID)
	}
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr", "":
		output = os.Stderr
	case "stdout":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stderr\n", cfg.Output, err)
			output = os.Stderr
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
