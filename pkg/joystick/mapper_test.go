package joystick

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/sbus.go/pkg/joystick/device"
	"github.com/robotalks/sbus.go/pkg/sbus"
)

func axisEvent(t *testing.T, index uint8, value int16) device.Event {
	ev, err := device.DecodeEvent([]byte{0, 0, 0, 0, byte(value), byte(uint16(value) >> 8), 0x02, index})
	require.NoError(t, err)
	return ev
}

func buttonEvent(t *testing.T, index uint8, pressed bool) device.Event {
	var v byte
	if pressed {
		v = 1
	}
	ev, err := device.DecodeEvent([]byte{0, 0, 0, 0, v, 0, 0x01, index})
	require.NoError(t, err)
	return ev
}

func TestAxisValue(t *testing.T) {
	require.Equal(t, sbus.ChannelCenter, AxisValue(0))
	require.Equal(t, sbus.ChannelMax, AxisValue(AxisMax))
	require.Equal(t, sbus.ChannelMin, AxisValue(-AxisMax))
	require.Equal(t, sbus.ChannelMax, AxisValue(40000))
	require.Equal(t, sbus.ChannelMin, AxisValue(-32768))
	require.True(t, AxisValue(100) > sbus.ChannelCenter)
	require.True(t, AxisValue(-100) < sbus.ChannelCenter)
}

func TestMapperApply(t *testing.T) {
	m := Mapper{ButtonBase: 8}
	v := sbus.CenteredValue()

	require.True(t, m.Apply(axisEvent(t, 2, 32767), &v))
	require.Equal(t, sbus.ChannelMax, v.Channels[2])
	require.False(t, m.Apply(axisEvent(t, 2, 32767), &v))

	require.True(t, m.Apply(buttonEvent(t, 1, true), &v))
	require.Equal(t, sbus.ChannelMax, v.Channels[9])
	require.True(t, m.Apply(buttonEvent(t, 1, false), &v))
	require.Equal(t, sbus.ChannelMin, v.Channels[9])

	require.False(t, m.Apply(buttonEvent(t, 8, true), &v))
	require.False(t, m.Apply(axisEvent(t, 16, 0), &v))
	require.Equal(t, sbus.ChannelCenter, v.Channels[15])
}
