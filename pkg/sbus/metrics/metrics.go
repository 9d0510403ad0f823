// Package metrics exports Bus counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robotalks/sbus.go/pkg/sbus"
)

const namespace = "sbus"

// Source is what Collector reads on every scrape. *sbus.Bus implements it.
type Source interface {
	Stats() sbus.Stats
	IsConnected() bool
	IsReading() bool
}

// DropCounter reports values dropped by a consumer queue.
type DropCounter interface {
	Dropped() uint64
}

// Collector implements prometheus.Collector.
type Collector struct {
	source Source
	queue  DropCounter

	frames       *prometheus.Desc
	frameLost    *prometheus.Desc
	skipped      *prometheus.Desc
	overflows    *prometheus.Desc
	dropped      *prometheus.Desc
	queueDropped *prometheus.Desc
	connected    *prometheus.Desc
	reading      *prometheus.Desc
}

// NewCollector creates a Collector. queue may be nil.
func NewCollector(source Source, queue DropCounter, constLabels prometheus.Labels) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, nil, constLabels)
	}
	return &Collector{
		source:       source,
		queue:        queue,
		frames:       desc("frames_total", "Decoded SBUS frames."),
		frameLost:    desc("frame_lost_total", "Decoded frames with the frame lost flag."),
		skipped:      desc("skipped_bytes_total", "Bytes skipped while searching for a frame header."),
		overflows:    desc("buffer_overflows_total", "Receive buffer resets on overflow."),
		dropped:      desc("dropped_bytes_total", "Buffered bytes discarded by overflow resets."),
		queueDropped: desc("queue_dropped_total", "Frames dropped because the consumer queue was full."),
		connected:    desc("connected", "Whether the serial port is open."),
		reading:      desc("reading", "Whether the reader is running."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.frames
	ch <- c.frameLost
	ch <- c.skipped
	ch <- c.overflows
	ch <- c.dropped
	if c.queue != nil {
		ch <- c.queueDropped
	}
	ch <- c.connected
	ch <- c.reading
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.source.Stats()
	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	counter(c.frames, stats.Frames)
	counter(c.frameLost, stats.FrameLost)
	counter(c.skipped, stats.SkippedBytes)
	counter(c.overflows, stats.Overflows)
	counter(c.dropped, stats.DroppedBytes)
	if c.queue != nil {
		counter(c.queueDropped, c.queue.Dropped())
	}
	ch <- prometheus.MustNewConstMetric(c.connected, prometheus.GaugeValue, boolValue(c.source.IsConnected()))
	ch <- prometheus.MustNewConstMetric(c.reading, prometheus.GaugeValue, boolValue(c.source.IsReading()))
}

// NewRegistry creates a registry with c and the Go runtime collectors.
func NewRegistry(c *Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		c,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves reg in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
