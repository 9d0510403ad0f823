package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/sbus.go/pkg/sbus"
)

type testSource struct {
	stats     sbus.Stats
	connected bool
	reading   bool
}

func (s *testSource) Stats() sbus.Stats { return s.stats }
func (s *testSource) IsConnected() bool { return s.connected }
func (s *testSource) IsReading() bool   { return s.reading }

type testQueue uint64

func (q testQueue) Dropped() uint64 { return uint64(q) }

func gather(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	families, err := reg.Gather()
	require.NoError(t, err)
	values := make(map[string]float64)
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "sbus_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				values[mf.GetName()] = c.GetValue()
			} else if g := m.GetGauge(); g != nil {
				values[mf.GetName()] = g.GetValue()
			}
		}
	}
	return values
}

func TestCollector(t *testing.T) {
	src := &testSource{
		stats:     sbus.Stats{Frames: 10, FrameLost: 2, SkippedBytes: 5, Overflows: 1, DroppedBytes: 240},
		connected: true,
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(src, testQueue(3), prometheus.Labels{"port": "ttyS0"}))
	require.Equal(t, map[string]float64{
		"sbus_frames_total":           10,
		"sbus_frame_lost_total":       2,
		"sbus_skipped_bytes_total":    5,
		"sbus_buffer_overflows_total": 1,
		"sbus_dropped_bytes_total":    240,
		"sbus_queue_dropped_total":    3,
		"sbus_connected":              1,
		"sbus_reading":                0,
	}, gather(t, reg))

	src.reading = true
	src.stats.Frames = 11
	values := gather(t, reg)
	require.Equal(t, float64(1), values["sbus_reading"])
	require.Equal(t, float64(11), values["sbus_frames_total"])
}

func TestCollectorWithoutQueue(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(&testSource{}, nil, nil))
	_, ok := gather(t, reg)["sbus_queue_dropped_total"]
	require.False(t, ok)
}

func TestHandler(t *testing.T) {
	reg := NewRegistry(NewCollector(&testSource{connected: true}, nil, nil))
	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	require.Contains(t, rec.Body.String(), "sbus_connected 1")
	require.Contains(t, rec.Body.String(), "go_goroutines")
}
