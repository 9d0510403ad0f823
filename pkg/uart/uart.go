// Package uart opens serial ports configured for SBUS.
package uart

import (
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"github.com/robotalks/sbus.go/pkg/sbus"
)

// Dialer opens ports with Open.
var Dialer = sbus.DialFunc(Open)

var _ sbus.Port = (serial.Port)(nil)

// Mode returns the SBUS line setting: 8 data bits, even parity, 2 stop bits.
func Mode(baudRate int) *serial.Mode {
	if baudRate <= 0 {
		baudRate = sbus.DefaultBaudRate
	}
	return &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.EvenParity,
		StopBits: serial.TwoStopBits,
	}
}

// Open opens the named device. name may also be a product name or serial
// number known to the enumerator. A read returns 0 bytes when nothing
// arrives within readTimeout.
func Open(name string, baudRate int, readTimeout time.Duration) (sbus.Port, error) {
	device := Resolve(name)
	port, err := serial.Open(device, Mode(baudRate))
	if err != nil {
		return nil, err
	}
	if readTimeout > 0 {
		if err := port.SetReadTimeout(readTimeout); err != nil {
			port.Close()
			return nil, fmt.Errorf("set read timeout: %w", err)
		}
	}
	return port, nil
}

// PortInfo describes a serial port found on the system.
type PortInfo struct {
	Name         string
	Product      string
	SerialNumber string
	USB          bool
	VID          string
	PID          string
}

// String implements fmt.Stringer.
func (p PortInfo) String() string {
	if !p.USB {
		return p.Name
	}
	s := fmt.Sprintf("%s [%s:%s]", p.Name, p.VID, p.PID)
	if p.Product != "" {
		s += " " + p.Product
	}
	if p.SerialNumber != "" {
		s += " (" + p.SerialNumber + ")"
	}
	return s
}

// Ports lists serial ports.
func Ports() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		names, lerr := serial.GetPortsList()
		if lerr != nil {
			return nil, err
		}
		ports := make([]PortInfo, 0, len(names))
		for _, name := range names {
			ports = append(ports, PortInfo{Name: name})
		}
		return ports, nil
	}
	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		ports = append(ports, PortInfo{
			Name:         d.Name,
			Product:      d.Product,
			SerialNumber: d.SerialNumber,
			USB:          d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
		})
	}
	return ports, nil
}

// Resolve maps a product name or serial number to the device name. Device
// paths and unknown names are returned unchanged.
func Resolve(name string) string {
	if strings.HasPrefix(name, "/") || strings.HasPrefix(strings.ToUpper(name), "COM") {
		return name
	}
	ports, err := Ports()
	if err != nil {
		return name
	}
	return resolve(ports, name)
}

func resolve(ports []PortInfo, name string) string {
	for _, p := range ports {
		if p.Name == name {
			return name
		}
	}
	for _, p := range ports {
		if p.Product == name || (p.SerialNumber != "" && p.SerialNumber == name) {
			return p.Name
		}
	}
	return name
}
