// Package daemon configures and assembles the SBUS node daemon.
package daemon

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/denisbrodbeck/machineid"
	"gopkg.in/yaml.v3"

	"github.com/robotalks/sbus.go/pkg/sbus"
)

// Config provides options of the daemon.
type Config struct {
	// Port is the serial device, or a product name or serial number.
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud"`
	// Read starts reading once connected.
	Read bool `yaml:"read"`

	ID          string            `yaml:"id"`
	Description string            `yaml:"description"`
	Labels      map[string]string `yaml:"labels"`

	// MQTTBrokerURL specifies the MQTT broker to register with.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string `yaml:"mqtt"`
	// TCPAddr accepts length-prefixed packet peers.
	TCPAddr string `yaml:"tcp"`
	// WebSocketAddr serves WebSocket peers on /sbus.
	WebSocketAddr string `yaml:"ws"`
	// MetricsAddr serves Prometheus metrics on /metrics.
	MetricsAddr string `yaml:"metrics"`

	// QueueSize enables dispatching frames on a separate goroutine.
	QueueSize       int           `yaml:"queue"`
	PublishInterval time.Duration `yaml:"publish_interval"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	StopTimeout     time.Duration `yaml:"stop_timeout"`
}

var (
	defaultConfig = Config{
		BaudRate:    sbus.DefaultBaudRate,
		Read:        true,
		Description: "SBUS node",
		ReadTimeout: sbus.DefaultReadTimeout,
		StopTimeout: sbus.DefaultStopTimeout,
	}
	configFile string
)

func init() {
	if val := os.Getenv("SBUS_PORT"); val != "" {
		defaultConfig.Port = val
	}
	if val := os.Getenv("SBUS_BAUD"); val != "" {
		if baud, err := strconv.Atoi(val); err == nil {
			defaultConfig.BaudRate = baud
		}
	}
	if val := os.Getenv("SBUS_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("SBUS_ID"); val != "" {
		defaultConfig.ID = val
	} else {
		defaultConfig.ID = MachineID()
	}
}

// MachineID retrieves the unique ID identifying the machine, or the host
// name when it's unavailable.
func MachineID() string {
	id, err := machineid.ID()
	if err == nil && id != "" {
		return id
	}
	host, _ := os.Hostname()
	return host
}

// BindFlags binds c to flags in fs.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Port, "port", c.Port, "Serial port, product name or serial number")
	fs.IntVar(&c.BaudRate, "baud", c.BaudRate, "Baud rate")
	fs.BoolVar(&c.Read, "read", c.Read, "Start reading once connected")
	fs.StringVar(&c.ID, "id", c.ID, "Node ID")
	fs.StringVar(&c.Description, "desc", c.Description, "Node description")
	fs.StringVar(&c.MQTTBrokerURL, "mqtt", c.MQTTBrokerURL, "MQTT broker URL")
	fs.StringVar(&c.TCPAddr, "tcp", c.TCPAddr, "Listen address for TCP peers")
	fs.StringVar(&c.WebSocketAddr, "ws", c.WebSocketAddr, "Listen address for WebSocket peers")
	fs.StringVar(&c.MetricsAddr, "metrics", c.MetricsAddr, "Listen address for Prometheus metrics")
	fs.IntVar(&c.QueueSize, "queue", c.QueueSize, "Frame queue size, 0 dispatches inline")
	fs.DurationVar(&c.PublishInterval, "publish-interval", c.PublishInterval, "Minimum interval between published frames")
	fs.DurationVar(&c.ReadTimeout, "read-timeout", c.ReadTimeout, "Serial read timeout")
	fs.DurationVar(&c.StopTimeout, "stop-timeout", c.StopTimeout, "Timeout waiting for the reader to stop")
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	defaultConfig.BindFlags(flag.CommandLine)
	flag.StringVar(&configFile, "config", configFile, "YAML config file")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations. If a config
// file is specified, it's loaded after flags are parsed.
func NewConfig() (*Config, error) {
	if configFile != "" {
		if err := defaultConfig.LoadFile(configFile, flag.CommandLine); err != nil {
			return nil, err
		}
	}
	conf := defaultConfig
	return &conf, nil
}

// LoadFile merges the YAML file into c. Flags explicitly set on fs, which
// must be bound to c, keep their values. fs may be nil.
func (c *Config) LoadFile(path string, fs *flag.FlagSet) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	set := make(map[string]string)
	if fs != nil {
		fs.Visit(func(f *flag.Flag) {
			set[f.Name] = f.Value.String()
		})
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	for name, val := range set {
		if err := fs.Set(name, val); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks required options.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("serial port must be specified")
	}
	if c.ID == "" {
		return fmt.Errorf("node id must be specified")
	}
	return nil
}
