package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/RyanBlaney/sonido-tuner/algorithms/tonal"
)

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid config")

// Config holds everything a tuning session needs
type Config struct {
	// Capture
	SampleRate     int `json:"sample_rate"`
	FrameSize      int `json:"frame_size"`       // Samples per analysis frame
	HopSize        int `json:"hop_size"`         // Samples between consecutive frames
	TickIntervalMs int `json:"tick_interval_ms"` // Scheduling period of the detection loop

	// Acceptance band, exclusive on both ends
	MinFrequency float64 `json:"min_frequency"`
	MaxFrequency float64 `json:"max_frequency"`

	HistoryCapacity int `json:"history_capacity"`

	Estimator tonal.EstimatorParams `json:"estimator"`
	Chords    tonal.ChordParams     `json:"chords"`
	Tuning    tonal.TuningParams    `json:"tuning"`

	// Outer surfaces
	HTTPAddr string `json:"http_addr"`
	LogLevel string `json:"log_level"`
}

// DefaultConfig returns the reference configuration
func DefaultConfig() *Config {
	return &Config{
		SampleRate:      44100,
		FrameSize:       2048,
		HopSize:         735, // one 60 Hz display refresh at 44.1 kHz
		TickIntervalMs:  16,
		MinFrequency:    40,
		MaxFrequency:    2000,
		HistoryCapacity: tonal.DefaultHistoryCapacity,
		Estimator:       tonal.DefaultEstimatorParams(),
		Chords:          tonal.DefaultChordParams(),
		Tuning:          tonal.DefaultTuningParams(),
		HTTPAddr:        ":8080",
		LogLevel:        "info",
	}
}

// Load reads a JSON file and overlays it on DefaultConfig. A "catalog" given in
// the file replaces the default catalog entirely.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sample_rate must be positive, got %d", ErrInvalidConfig, c.SampleRate)
	}
	if c.FrameSize < c.Estimator.MinFrameSize() {
		return fmt.Errorf("%w: frame_size %d is shorter than the minimum %d", ErrInvalidConfig, c.FrameSize, c.Estimator.MinFrameSize())
	}
	if c.HopSize <= 0 || c.HopSize > c.FrameSize {
		return fmt.Errorf("%w: hop_size must be in (0, frame_size], got %d", ErrInvalidConfig, c.HopSize)
	}
	if c.TickIntervalMs <= 0 {
		return fmt.Errorf("%w: tick_interval_ms must be positive, got %d", ErrInvalidConfig, c.TickIntervalMs)
	}
	if c.MinFrequency < 0 || c.MaxFrequency <= c.MinFrequency {
		return fmt.Errorf("%w: frequency band (%g, %g) is empty", ErrInvalidConfig, c.MinFrequency, c.MaxFrequency)
	}
	if c.HistoryCapacity < 3 {
		return fmt.Errorf("%w: history_capacity must hold at least 3 readings, got %d", ErrInvalidConfig, c.HistoryCapacity)
	}
	if err := c.Estimator.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Chords.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Tuning.InTuneCents < 0 || c.Tuning.SlightlyOffCents < c.Tuning.InTuneCents {
		return fmt.Errorf("%w: tuning thresholds must satisfy 0 <= in_tune_cents <= slightly_off_cents", ErrInvalidConfig)
	}
	return nil
}

// TickInterval returns the loop period as a duration
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

// Accepts reports whether a frequency lies inside the acceptance band
func (c *Config) Accepts(freq float64) bool {
	return freq > c.MinFrequency && freq < c.MaxFrequency
}
