package device

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeEvent(t *testing.T) {
	ev, err := DecodeEvent([]byte{1, 0, 0, 0, 0x01, 0x80, 0x02, 0x03})
	require.NoError(t, err)
	axis, ok := ev.(AxisEvent)
	require.True(t, ok)
	require.Equal(t, 3, axis.Index())
	require.Equal(t, -32767, axis.Value())
	require.False(t, axis.IsInit())

	ev, err = DecodeEvent([]byte{0, 0, 0, 0, 0x01, 0x00, 0x81, 0x05})
	require.NoError(t, err)
	btn, ok := ev.(ButtonEvent)
	require.True(t, ok)
	require.Equal(t, 5, btn.Index())
	require.True(t, btn.Pressed())
	require.True(t, btn.IsInit())

	ev, err = DecodeEvent([]byte{0, 0, 0, 0, 0, 0, 0x04, 0})
	require.NoError(t, err)
	_, isAxis := ev.(AxisEvent)
	_, isBtn := ev.(ButtonEvent)
	require.False(t, isAxis || isBtn)

	_, err = DecodeEvent([]byte{0, 0})
	require.Error(t, err)
}
