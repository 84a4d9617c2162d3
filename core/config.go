package core

import (
	"encoding/json"
	"errors"
)

// Timer frequency limits. Below 19 Hz the 8254-style 16-bit divisor
// overflows; above 1000 Hz interrupt overhead dominates.
const (
	MinTimerFreq     = 19
	MaxTimerFreq     = 1000
	DefaultTimerFreq = 100

	// DefaultCalibrationStart is the first loop count tried by Calibrate
	DefaultCalibrationStart = 1 << 10
)

var (
	ErrFrequencyRange   = errors.New("timer frequency must be between 19 and 1000 Hz")
	ErrCalibrationStart = errors.New("calibration start must be a power of two")
)

// Config holds the timer core settings fixed at boot
type Config struct {
	Frequency        int    `json:"frequency"`
	MLFQS            bool   `json:"mlfqs"`
	CalibrationStart uint32 `json:"calibration_start"`
}

// DefaultConfig returns the configuration used when none is supplied
func DefaultConfig() Config {
	return Config{
		Frequency:        DefaultTimerFreq,
		CalibrationStart: DefaultCalibrationStart,
	}
}

// LoadConfig parses a JSON configuration and fills in defaults
func LoadConfig(jsonData []byte) (*Config, error) {
	var cfg Config

	if err := json.Unmarshal(jsonData, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in missing configuration values
func applyDefaults(cfg *Config) {
	if cfg.Frequency == 0 {
		cfg.Frequency = DefaultTimerFreq
	}
	if cfg.CalibrationStart == 0 {
		cfg.CalibrationStart = DefaultCalibrationStart
	}
}

// Validate checks the configuration against the hardware limits
func (c *Config) Validate() error {
	if c.Frequency < MinTimerFreq || c.Frequency > MaxTimerFreq {
		return ErrFrequencyRange
	}
	if c.CalibrationStart == 0 || c.CalibrationStart&(c.CalibrationStart-1) != 0 {
		return ErrCalibrationStart
	}
	return nil
}
