package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	Capture     CaptureConfig     `yaml:"capture"`
	Filter      FilterConfig      `yaml:"filter"`
	Translation TranslationConfig `yaml:"translation"`
	HTTP        HTTPConfig        `yaml:"http"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// CaptureConfig contains audio capture parameters
type CaptureConfig struct {
	DeviceID      string `yaml:"device_id"`      // empty selects the default input device
	Loopback      bool   `yaml:"loopback"`       // capture system output instead of a microphone
	SampleRate    int    `yaml:"sample_rate"`    // Hz
	Channels      int    `yaml:"channels"`
	ChunkSize     int    `yaml:"chunk_size"`     // samples per capture read
	QueueCapacity int    `yaml:"queue_capacity"` // frames buffered between capture and translation
}

// FilterConfig contains band-pass filter design parameters
type FilterConfig struct {
	LowCutHz  float64 `yaml:"low_cut_hz"`
	HighCutHz float64 `yaml:"high_cut_hz"`
	Order     int     `yaml:"order"`
}

// TranslationConfig contains translation backend configuration
type TranslationConfig struct {
	Transport      string `yaml:"transport"` // "http" or "websocket"
	Endpoint       string `yaml:"endpoint"`
	APIKey         string `yaml:"api_key"`
	InputLanguage  string `yaml:"input_language"`
	OutputLanguage string `yaml:"output_language"`
	Timeout        int    `yaml:"timeout"` // seconds
	MaxRetries     int    `yaml:"max_retries"`
}

// HTTPConfig contains monitoring API server configuration
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
	Enabled bool   `yaml:"enabled"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// applyDefaults fills unset fields with the values the original desktop
// deployment used.
func (c *Config) applyDefaults() {
	if c.Capture.SampleRate == 0 {
		c.Capture.SampleRate = 44100
	}
	if c.Capture.Channels == 0 {
		c.Capture.Channels = 2
	}
	if c.Capture.ChunkSize == 0 {
		c.Capture.ChunkSize = 1024
	}
	if c.Capture.QueueCapacity == 0 {
		c.Capture.QueueCapacity = 16
	}
	if c.Filter.LowCutHz == 0 {
		c.Filter.LowCutHz = 300
	}
	if c.Filter.HighCutHz == 0 {
		c.Filter.HighCutHz = 3000
	}
	if c.Filter.Order == 0 {
		c.Filter.Order = 5
	}
	if c.Translation.Transport == "" {
		c.Translation.Transport = "http"
	}
	if c.Translation.Timeout == 0 {
		c.Translation.Timeout = 30
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Capture.Validate(); err != nil {
		return fmt.Errorf("capture config: %w", err)
	}

	if err := c.Filter.Validate(c.Capture.SampleRate); err != nil {
		return fmt.Errorf("filter config: %w", err)
	}

	if err := c.Translation.Validate(); err != nil {
		return fmt.Errorf("translation config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates capture configuration
func (cc *CaptureConfig) Validate() error {
	if cc.SampleRate < 8000 || cc.SampleRate > 192000 {
		return fmt.Errorf("sample_rate must be between 8000 and 192000 Hz, got %d", cc.SampleRate)
	}

	if cc.Channels < 1 || cc.Channels > 2 {
		return fmt.Errorf("channels must be 1 or 2, got %d", cc.Channels)
	}

	if cc.ChunkSize < 64 || cc.ChunkSize > 65536 {
		return fmt.Errorf("chunk_size must be between 64 and 65536 samples, got %d", cc.ChunkSize)
	}

	if cc.QueueCapacity < 1 {
		return fmt.Errorf("queue_capacity must be at least 1, got %d", cc.QueueCapacity)
	}

	return nil
}

// Validate validates filter configuration against the capture sample rate
func (f *FilterConfig) Validate(sampleRate int) error {
	if f.LowCutHz <= 0 {
		return fmt.Errorf("low_cut_hz must be positive, got %f", f.LowCutHz)
	}

	if f.HighCutHz <= f.LowCutHz {
		return fmt.Errorf("high_cut_hz (%f) must be greater than low_cut_hz (%f)", f.HighCutHz, f.LowCutHz)
	}

	nyquist := float64(sampleRate) / 2
	if f.HighCutHz >= nyquist {
		return fmt.Errorf("high_cut_hz (%f) must be below the Nyquist frequency (%f)", f.HighCutHz, nyquist)
	}

	if f.Order < 1 || f.Order > 12 {
		return fmt.Errorf("order must be between 1 and 12, got %d", f.Order)
	}

	return nil
}

// Validate validates translation backend configuration
func (t *TranslationConfig) Validate() error {
	validTransports := map[string]bool{"http": true, "websocket": true}
	if !validTransports[t.Transport] {
		return fmt.Errorf("transport must be 'http' or 'websocket', got '%s'", t.Transport)
	}

	if t.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if t.APIKey == "" {
		return fmt.Errorf("api_key cannot be empty")
	}

	if t.InputLanguage == "" {
		return fmt.Errorf("input_language cannot be empty")
	}

	if t.OutputLanguage == "" {
		return fmt.Errorf("output_language cannot be empty")
	}

	if t.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", t.Timeout)
	}

	if t.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", t.MaxRetries)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetTimeoutDuration returns the translation timeout as a time.Duration
func (t *TranslationConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(t.Timeout) * time.Second
}

// ChunkDuration returns the play time covered by one capture chunk
func (cc *CaptureConfig) ChunkDuration() time.Duration {
	if cc.SampleRate <= 0 {
		return 0
	}
	return time.Duration(cc.ChunkSize) * time.Second / time.Duration(cc.SampleRate)
}
