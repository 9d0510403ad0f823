package uart

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
	"go.bug.st/serial"

	"github.com/robotalks/sbus.go/pkg/sbus"
)

func TestSerialPortIsSbusPort(t *testing.T) {
	portType := reflect.TypeOf((*serial.Port)(nil)).Elem()
	require.True(t, portType.Implements(reflect.TypeOf((*sbus.Port)(nil)).Elem()))
	_, hasDrain := portType.MethodByName("Drain")
	require.True(t, hasDrain)
}

func TestMode(t *testing.T) {
	m := Mode(0)
	require.Equal(t, sbus.DefaultBaudRate, m.BaudRate)
	require.Equal(t, 8, m.DataBits)
	require.Equal(t, serial.EvenParity, m.Parity)
	require.Equal(t, serial.TwoStopBits, m.StopBits)
	require.Equal(t, 200000, Mode(200000).BaudRate)
}

func TestResolve(t *testing.T) {
	ports := []PortInfo{
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyUSB0", USB: true, VID: "0403", PID: "6001", Product: "FT232R USB UART", SerialNumber: "A50285BI"},
	}
	cases := []struct {
		in, out string
	}{
		{"/dev/ttyS0", "/dev/ttyS0"},
		{"FT232R USB UART", "/dev/ttyUSB0"},
		{"A50285BI", "/dev/ttyUSB0"},
		{"unknown", "unknown"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.out, resolve(ports, tc.in), tc.in)
	}
}

func TestPortInfoString(t *testing.T) {
	require.Equal(t, "/dev/ttyS0", PortInfo{Name: "/dev/ttyS0"}.String())
	require.Equal(t, "/dev/ttyUSB0 [0403:6001] FT232R (A5)",
		PortInfo{Name: "/dev/ttyUSB0", USB: true, VID: "0403", PID: "6001", Product: "FT232R", SerialNumber: "A5"}.String())
}
