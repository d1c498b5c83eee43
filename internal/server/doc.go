// Package server exposes the monitoring HTTP API: health, pipeline status,
// device listing, sanitized configuration, and Prometheus metrics.
package server
