package joystick

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/sbus.go/pkg/joystick/device"
	"github.com/robotalks/sbus.go/pkg/sbus"
)

// DefaultPeriod is the interval between transmitted frames.
const DefaultPeriod = 14 * time.Millisecond

// FrameWriter transmits frames. *sbus.Bus implements it.
type FrameWriter interface {
	WriteFrame(sbus.Value)
}

// Transmitter turns a joystick into an SBUS transmitter. The latest
// value is written every Period, also while no joystick is attached.
type Transmitter struct {
	Writer FrameWriter
	Mapper Mapper
	Period time.Duration
	// Open opens the joystick. It may return nil Device when none found.
	Open    func() (device.Device, error)
	Verbose bool

	lock  sync.RWMutex
	value sbus.Value
}

// NewTransmitter creates a Transmitter with all channels centered.
func NewTransmitter(w FrameWriter) *Transmitter {
	return &Transmitter{
		Writer: w,
		Period: DefaultPeriod,
		Open:   func() (device.Device, error) { return device.DetectAndOpen(0) },
		value:  sbus.CenteredValue(),
	}
}

// Value returns the value being transmitted.
func (t *Transmitter) Value() sbus.Value {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.value
}

// Run implements Runnable.
func (t *Transmitter) Run(ctx context.Context) error {
	period := t.Period
	if period <= 0 {
		period = DefaultPeriod
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	var dev device.Device
	var eventCh chan device.Event
	defer func() {
		if dev != nil {
			dev.Close()
		}
	}()
	deviceTimer := time.After(0)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deviceTimer:
			deviceTimer = nil
			js, err := t.Open()
			if err != nil || js == nil {
				if err != nil {
					glog.Warningf("open joystick: %v", err)
				} else {
					glog.V(1).Info("no joystick detected")
				}
				deviceTimer = time.After(time.Second)
				break
			}
			glog.Infof("joystick %d %q opened, %d axes, %d buttons",
				js.Index(), js.Name(), js.AxisCount(), js.ButtonCount())
			dev, eventCh = js, make(chan device.Event, 16)
			go t.poll(ctx, dev, eventCh)
		case ev, ok := <-eventCh:
			if !ok {
				glog.Warning("joystick lost")
				dev.Close()
				dev, eventCh = nil, nil
				deviceTimer = time.After(time.Second)
				break
			}
			t.lock.Lock()
			t.Mapper.Apply(ev, &t.value)
			t.lock.Unlock()
		case <-ticker.C:
			t.Writer.WriteFrame(t.Value())
		}
	}
}

func (t *Transmitter) poll(ctx context.Context, dev device.Device, ch chan<- device.Event) {
	defer close(ch)
	for {
		ev, err := dev.ReadEvent()
		if err != nil {
			glog.V(1).Infof("joystick read: %v", err)
			return
		}
		if t.Verbose {
			switch e := ev.(type) {
			case device.AxisEvent:
				glog.Infof("axis %d: %d init=%t", e.Index(), e.Value(), e.IsInit())
			case device.ButtonEvent:
				glog.Infof("button %d: %t init=%t", e.Index(), e.Pressed(), e.IsInit())
			}
		}
		select {
		case ch <- ev:
		case <-ctx.Done():
			return
		}
	}
}
