package sh

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"

	"github.com/robotalks/sbus.go/pkg/comm"
	"github.com/robotalks/sbus.go/pkg/comm/mqtt"
	"github.com/robotalks/sbus.go/pkg/comm/stream"
	"github.com/robotalks/sbus.go/pkg/comm/websocket"
	fx "github.com/robotalks/sbus.go/pkg/framework"
)

// Config provides options to reach nodes.
type Config struct {
	// Node is a node ID, or a tcp:// or ws:// URL of a node.
	Node string

	// RegistryURL specifies where nodes register.
	// e.g. mqtt://host:port/topic-prefix
	RegistryURL string
}

var defaultConfig = Config{
	RegistryURL: "mqtt://localhost:1883/",
}

func init() {
	if val := os.Getenv("SBUS_NODE"); val != "" {
		defaultConfig.Node = val
	}
	if val := os.Getenv("SBUS_MQTT_URL"); val != "" {
		defaultConfig.RegistryURL = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Node, "node", defaultConfig.Node, "Node ID or URL to connect.")
	flag.StringVar(&defaultConfig.RegistryURL, "mqtt", defaultConfig.RegistryURL, "MQTT broker URL nodes register with.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewConnector creates a Connector using current config.
func (c *Config) NewConnector() (comm.Connector, error) {
	parsedURL, err := url.Parse(c.RegistryURL)
	if err != nil {
		return nil, fmt.Errorf("invalid registry URL: %w", err)
	}
	switch parsedURL.Scheme {
	case "mqtt", "tcp", "ssl", "ws", "wss":
		return mqtt.NewConnector(c.RegistryURL)
	default:
		return nil, fmt.Errorf("unknown registry URL scheme: %q", parsedURL.Scheme)
	}
}

// IsURL indicates node is addressed directly instead of by ID.
func IsURL(node string) bool {
	return strings.Contains(node, "://")
}

// Connect connects to node, which is either an ID registered with the
// registry or a URL.
func (c *Config) Connect(ctx context.Context, node string) (comm.NodeConn, error) {
	if IsURL(node) {
		return Dial(node)
	}
	connector, err := c.NewConnector()
	if err != nil {
		return nil, err
	}
	return connector.Connect(ctx, comm.NodeRef{ID: node})
}

// Dial connects a node directly using tcp://host:port or ws://host:port/sbus.
func Dial(nodeURL string) (comm.NodeConn, error) {
	parsedURL, err := url.Parse(nodeURL)
	if err != nil {
		return nil, fmt.Errorf("invalid node URL: %w", err)
	}
	var rw comm.PacketReadWriter
	switch parsedURL.Scheme {
	case "tcp":
		conn, err := net.Dial("tcp", parsedURL.Host)
		if err != nil {
			return nil, err
		}
		rw = stream.New(conn)
	case "ws", "wss":
		if rw, err = websocket.Dial(nodeURL); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown node URL scheme: %q", parsedURL.Scheme)
	}
	return runConn(comm.NewConn(rw)), nil
}

type directConn struct {
	*comm.Conn
	cancel context.CancelFunc
	done   chan struct{}
}

func runConn(conn *comm.Conn) *directConn {
	ctx, cancel := context.WithCancel(context.Background())
	c := &directConn{Conn: conn, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(c.done)
		fx.NewRunnerWith(ctx).Go(conn).Wait()
	}()
	return c
}

func (c *directConn) Close() error {
	c.cancel()
	<-c.done
	return nil
}
