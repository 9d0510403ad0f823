package daemon

import (
	"context"
	"log"
	"net"
	"net/http"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/robotalks/sbus.go/pkg/comm"
	"github.com/robotalks/sbus.go/pkg/comm/mqtt"
	"github.com/robotalks/sbus.go/pkg/comm/stream"
	"github.com/robotalks/sbus.go/pkg/comm/websocket"
	fx "github.com/robotalks/sbus.go/pkg/framework"
	"github.com/robotalks/sbus.go/pkg/node"
	"github.com/robotalks/sbus.go/pkg/sbus"
	"github.com/robotalks/sbus.go/pkg/sbus/metrics"
)

// Daemon reads SBUS frames from a serial port and serves them to peers.
type Daemon struct {
	Config *Config
	Bus    *sbus.Bus
	Hub    *comm.Hub
	Node   *node.Node
	// Queue is nil when frames are dispatched inline.
	Queue *sbus.Queue
	// Registrar is nil without an MQTT broker.
	Registrar *mqtt.Registrar
	Metrics   *prometheus.Registry

	ctx     context.Context
	runners []fx.Runnable
}

// Info returns the node info registered for discovery.
func (c *Config) Info() comm.NodeInfo {
	return comm.NodeInfo{
		Ref: comm.NodeRef{ID: c.ID},
		Meta: comm.NodeMeta{
			Description: c.Description,
			Port:        c.Port,
			BaudRate:    c.BaudRate,
			Labels:      c.Labels,
		},
	}
}

// NewDaemon assembles the daemon. Ports are opened with dialer.
func (c *Config) NewDaemon(dialer sbus.Dialer) (*Daemon, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	d := &Daemon{
		Config: c,
		Bus:    sbus.NewBus(dialer),
		Hub:    &comm.Hub{},
		ctx:    context.Background(),
	}
	d.Bus.ReadTimeout = c.ReadTimeout
	d.Bus.StopTimeout = c.StopTimeout
	d.Node = node.New(d.Bus, d.Hub)
	d.Node.PublishInterval = c.PublishInterval
	d.Hub.Handler = d.Node

	var handler sbus.ValueHandler = d.Node
	if c.QueueSize > 0 {
		d.Queue = sbus.NewQueue(d.Node, c.QueueSize)
		handler = d.Queue
		d.runners = append(d.runners, fx.NamedRun("queue", d.Queue))
	}
	d.Bus.SetHandler(handler)

	if c.MQTTBrokerURL != "" {
		reg, err := mqtt.NewRegistrar(c.MQTTBrokerURL, c.Info(), d.Hub)
		if err != nil {
			return nil, err
		}
		d.Registrar = reg
		d.Hub.Add(reg)
		d.runners = append(d.runners, fx.NamedRun("mqtt", reg))
	}
	if c.TCPAddr != "" {
		d.runners = append(d.runners, fx.NamedRun("tcp", fx.RunFunc(d.serveTCP)))
	}

	muxes := make(map[string]*http.ServeMux)
	mux := func(addr string) *http.ServeMux {
		m := muxes[addr]
		if m == nil {
			m = http.NewServeMux()
			muxes[addr] = m
		}
		return m
	}
	if c.WebSocketAddr != "" {
		mux(c.WebSocketAddr).Handle("/sbus", websocket.Handler(func(rw *websocket.ReadWriter) {
			d.Hub.Serve(d.ctx, rw)
		}))
	}
	if c.MetricsAddr != "" {
		var queue metrics.DropCounter
		if d.Queue != nil {
			queue = d.Queue
		}
		collector := metrics.NewCollector(d.Bus, queue, prometheus.Labels{"node": c.ID})
		d.Metrics = metrics.NewRegistry(collector)
		mux(c.MetricsAddr).Handle("/metrics", metrics.Handler(d.Metrics))
	}
	for addr, m := range muxes {
		d.runners = append(d.runners, fx.NamedRun("http "+addr, serveHTTP(addr, m)))
	}
	return d, nil
}

// MustNewDaemon creates the daemon and fails on error.
func (c *Config) MustNewDaemon(dialer sbus.Dialer) *Daemon {
	d, err := c.NewDaemon(dialer)
	if err != nil {
		log.Fatalln(err)
	}
	return d
}

// Run implements Runnable. It opens the port, serves peers until ctx is
// done, then closes the port.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Bus.Connect(d.Config.Port, d.Config.BaudRate); err != nil {
		return err
	}
	var errs fx.AggregatedError
	if d.Config.Read {
		if err := d.Bus.StartReading(); err != nil {
			errs.Add(err)
		}
	}
	if errs.Aggregate() == nil {
		d.ctx = ctx
		runner := fx.NewRunnerWith(ctx).Go(d.runners...)
		if len(d.runners) == 0 {
			<-ctx.Done()
		}
		errs.Add(runner.Wait())
	}
	errs.Add(d.Bus.Disconnect())
	return errs.Aggregate()
}

func (d *Daemon) serveTCP(ctx context.Context) error {
	ln, err := net.Listen("tcp", d.Config.TCPAddr)
	if err != nil {
		return err
	}
	glog.Infof("accepting peers on %s", ln.Addr())
	return fx.RunWithContextCloser(ctx, ln, func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return err
			}
			glog.V(1).Infof("peer %s", conn.RemoteAddr())
			go d.Hub.Serve(ctx, stream.New(conn))
		}
	})
}

func serveHTTP(addr string, handler http.Handler) fx.Runnable {
	return fx.RunFunc(func(ctx context.Context) error {
		srv := &http.Server{Addr: addr, Handler: handler}
		glog.Infof("serving http on %s", addr)
		return fx.RunWithContextCloser(ctx, srv, srv.ListenAndServe)
	})
}
