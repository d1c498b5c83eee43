// Package config provides YAML configuration loading and validation for the
// live translation service: capture device and chunking parameters, filter
// design, translation backend credentials and transport, the monitoring HTTP
// API, and logging.
package config
