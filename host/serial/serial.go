package serial

import (
	"errors"
	"io"
)

var ErrNoDevice = errors.New("serial device not set")

// Port is a byte stream to a board running the timer core. The monitor only
// needs io.ReadWriter; the rest lets tools manage the device.
type Port interface {
	io.ReadWriteCloser

	// Flush discards data received but not yet read
	Flush() error
}

// Config holds serial port settings
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate; USB CDC boards ignore it
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns settings for device suitable for the diagnostics link
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 50,
	}
}

// Validate checks that the settings can open a port
func (c *Config) Validate() error {
	if c.Device == "" {
		return ErrNoDevice
	}
	if c.Baud <= 0 {
		return errors.New("baud rate must be positive")
	}
	if c.ReadTimeout < 0 {
		return errors.New("read timeout must not be negative")
	}
	return nil
}
