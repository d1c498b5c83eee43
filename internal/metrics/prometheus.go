package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the translation pipeline
type Metrics struct {
	// Pipeline lifecycle metrics
	PipelineState prometheus.Gauge
	FatalErrors   prometheus.Counter

	// Capture metrics
	ChunksCaptured prometheus.Gauge
	QueueDepth     prometheus.Gauge
	QueueCapacity  prometheus.Gauge

	// Translation outcome metrics
	Outcomes *prometheus.CounterVec

	// Backend client metrics
	BackendRequests     prometheus.Gauge
	BackendFailures     prometheus.Gauge
	BackendRetries      prometheus.Gauge
	BackendResponseTime prometheus.Gauge

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Pipeline lifecycle metrics
		PipelineState: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "translator_pipeline_state",
			Help: "Current pipeline state (0=stopped, 1=starting, 2=running, 3=stopping, 4=failed)",
		}),
		FatalErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "translator_fatal_errors_total",
			Help: "Total number of fatal pipeline errors",
		}),

		// Capture metrics
		ChunksCaptured: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "translator_chunks_captured",
			Help: "Number of audio chunks captured by the current run",
		}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "translator_frame_queue_depth",
			Help: "Current number of frames waiting for translation",
		}),
		QueueCapacity: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "translator_frame_queue_capacity",
			Help: "Configured frame queue capacity",
		}),

		// Translation outcome metrics
		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "translator_outcomes_total",
			Help: "Total number of translation outcomes by kind",
		}, []string{"kind"}),

		// Backend client metrics
		BackendRequests: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "translator_backend_requests",
			Help: "Number of backend requests issued by the current run",
		}),
		BackendFailures: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "translator_backend_failures",
			Help: "Number of failed backend requests in the current run",
		}),
		BackendRetries: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "translator_backend_retries",
			Help: "Number of backend request retries in the current run",
		}),
		BackendResponseTime: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "translator_backend_avg_response_seconds",
			Help: "Average backend response time in the current run",
		}),

		// HTTP API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "translator_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "translator_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordOutcome increments the outcome counter for one kind label
func (m *Metrics) RecordOutcome(kind string) {
	m.Outcomes.WithLabelValues(kind).Inc()
}

// RecordFatalError increments the fatal error counter
func (m *Metrics) RecordFatalError() {
	m.FatalErrors.Inc()
}

// SetPipelineState sets the pipeline state gauge
func (m *Metrics) SetPipelineState(state int) {
	m.PipelineState.Set(float64(state))
}

// SetQueueDepth sets the current frame queue gauges
func (m *Metrics) SetQueueDepth(depth, capacity int) {
	m.QueueDepth.Set(float64(depth))
	m.QueueCapacity.Set(float64(capacity))
}

// SetChunksCaptured sets the captured chunk gauge
func (m *Metrics) SetChunksCaptured(chunks uint64) {
	m.ChunksCaptured.Set(float64(chunks))
}

// SetBackendStats sets the backend client gauges from a stats snapshot
func (m *Metrics) SetBackendStats(requests, failures, retries uint64, avgResponse time.Duration) {
	m.BackendRequests.Set(float64(requests))
	m.BackendFailures.Set(float64(failures))
	m.BackendRetries.Set(float64(retries))
	m.BackendResponseTime.Set(avgResponse.Seconds())
}
