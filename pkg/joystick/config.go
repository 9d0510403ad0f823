// Package joystick transmits SBUS frames from a joystick.
package joystick

import (
	"flag"
	"time"

	"github.com/robotalks/sbus.go/pkg/joystick/device"
)

// Config defines the configurations for the transmitter.
type Config struct {
	DeviceIndex int
	ButtonBase  int
	Period      time.Duration
	Verbose     bool
}

var defaultConfig = Config{
	DeviceIndex: -1,
	ButtonBase:  8,
	Period:      DefaultPeriod,
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.IntVar(&defaultConfig.DeviceIndex, "device", defaultConfig.DeviceIndex, "Device index, -1 for auto detection.")
	flag.IntVar(&defaultConfig.ButtonBase, "button-base", defaultConfig.ButtonBase, "Channel of the first button.")
	flag.DurationVar(&defaultConfig.Period, "period", defaultConfig.Period, "Interval between frames.")
	flag.BoolVar(&defaultConfig.Verbose, "verbose", defaultConfig.Verbose, "Print joystick events.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewTransmitter creates a transmitter using the config.
func (c *Config) NewTransmitter(w FrameWriter) *Transmitter {
	t := NewTransmitter(w)
	t.Mapper.ButtonBase = c.ButtonBase
	t.Period = c.Period
	t.Verbose = c.Verbose
	if index := c.DeviceIndex; index >= 0 {
		t.Open = func() (device.Device, error) { return device.Open(index) }
	}
	return t
}
