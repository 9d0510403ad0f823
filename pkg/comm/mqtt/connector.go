package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/robotalks/sbus.go/pkg/comm"
	fx "github.com/robotalks/sbus.go/pkg/framework"
)

// Connector implements comm.Connector using MQTT.
type Connector struct {
	DiscoverTimeout time.Duration

	options     *paho.ClientOptions
	topicPrefix string
}

// DefaultDiscoverTimeout defines the default timeout value of discovery.
const DefaultDiscoverTimeout = 500 * time.Millisecond

// NewConnector creates a Connector.
func NewConnector(brokerURL string) (*Connector, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return &Connector{
		DiscoverTimeout: DefaultDiscoverTimeout,
		options:         opts,
		topicPrefix:     topicPrefix,
	}, nil
}

// ParseMetaTopic extracts the node ref from sbus/<id>/meta.
func ParseMetaTopic(topic string) (comm.NodeRef, bool) {
	items := strings.Split(topic, "/")
	if len(items) != 3 || items[0] != "sbus" || items[2] != "meta" || items[1] == "" {
		return comm.NodeRef{}, false
	}
	return comm.NodeRef{ID: items[1]}, true
}

// Discover implements Connector. Nodes are found by their retained meta.
func (c *Connector) Discover(ctx context.Context) (res []comm.NodeInfo, err error) {
	q := NewQueue(c.options, c.topicPrefix)
	token := q.Connect()
	token.Wait()
	if err = token.Error(); err != nil {
		return
	}
	defer q.Close()
	resCh := make(chan comm.NodeInfo, 16)
	sub := q.Sub("sbus/+/meta", Handler(func(topic string, payload []byte) {
		ref, ok := ParseMetaTopic(topic)
		if !ok || len(payload) == 0 {
			return
		}
		info := comm.NodeInfo{Ref: ref}
		if err := json.Unmarshal(payload, &info.Meta); err != nil {
			glog.Warningf("invalid meta of %s: %v", ref.Name(), err)
		}
		select {
		case resCh <- info:
		case <-time.After(time.Second):
		}
	}))
	defer sub.Close()

	dur := c.DiscoverTimeout
	if dur <= 0 {
		dur = DefaultDiscoverTimeout
	}
	timeout := time.After(dur)
	for {
		select {
		case info := <-resCh:
			res = append(res, info)
		case <-timeout:
			return
		case <-ctx.Done():
			err = ctx.Err()
			return
		}
	}
}

// Connect implements Connector.
func (c *Connector) Connect(ctx context.Context, ref comm.NodeRef) (comm.NodeConn, error) {
	q := NewQueue(c.options, c.topicPrefix)
	token := q.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, err
	}
	rw := NewPacketReadWriter(q).ForConnector(ref)
	conn := &NodeConn{Conn: comm.NewConn(rw), Queue: q}
	runCtx, cancel := context.WithCancel(context.Background())
	conn.cancel = cancel
	conn.done = make(chan struct{})
	go func() {
		defer close(conn.done)
		fx.NewRunnerWith(runCtx).Go(rw, conn.Conn).Wait()
	}()
	return conn, nil
}

// NodeConn implements comm.NodeConn using MQTT.
type NodeConn struct {
	*comm.Conn
	Queue *Queue

	cancel context.CancelFunc
	done   chan struct{}
}

// Close implements io.Closer.
func (c *NodeConn) Close() error {
	c.cancel()
	<-c.done
	return c.Queue.Close()
}
