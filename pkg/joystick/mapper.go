package joystick

import (
	"github.com/robotalks/sbus.go/pkg/joystick/device"
	"github.com/robotalks/sbus.go/pkg/sbus"
)

// AxisMax is the magnitude of a full axis deflection.
const AxisMax = 32767

// Mapper maps joystick events to channels. Axis i drives channel i, and
// button j drives channel ButtonBase+j. Events beyond the channel count
// are ignored.
type Mapper struct {
	ButtonBase int
}

// AxisValue maps an axis position in [-32767, 32767] to
// [ChannelMin, ChannelMax] with 0 at ChannelCenter.
func AxisValue(pos int) uint16 {
	if pos > AxisMax {
		pos = AxisMax
	} else if pos < -AxisMax {
		pos = -AxisMax
	}
	center := int(sbus.ChannelCenter)
	if pos >= 0 {
		return uint16(center + pos*(int(sbus.ChannelMax)-center)/AxisMax)
	}
	return uint16(center + pos*(center-int(sbus.ChannelMin))/AxisMax)
}

// ButtonValue maps a button state.
func ButtonValue(pressed bool) uint16 {
	if pressed {
		return sbus.ChannelMax
	}
	return sbus.ChannelMin
}

// Apply updates v from ev. It reports whether a channel changed.
func (m *Mapper) Apply(ev device.Event, v *sbus.Value) bool {
	var ch int
	var val uint16
	switch e := ev.(type) {
	case device.AxisEvent:
		ch, val = e.Index(), AxisValue(e.Value())
	case device.ButtonEvent:
		ch, val = m.ButtonBase+e.Index(), ButtonValue(e.Pressed())
	default:
		return false
	}
	if ch < 0 || ch >= sbus.NumChannels || v.Channels[ch] == val {
		return false
	}
	v.Channels[ch] = val
	return true
}
