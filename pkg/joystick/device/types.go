// Package device reads Linux joystick devices (/dev/input/jsN).
package device

import (
	"encoding/binary"
	"errors"
	"io"
)

// ErrUnsupported indicates joysticks are not supported on the platform.
var ErrUnsupported = errors.New("joystick unsupported on this platform")

// Event defines the base event interface.
type Event interface {
	// IsInit indicates this is the init state.
	IsInit() bool
	// Index returns either Axis or Button index.
	Index() int
}

// AxisEvent represents the change on an axis.
type AxisEvent interface {
	Event
	Value() int
}

// ButtonEvent represents the change on a button.
type ButtonEvent interface {
	Event
	Pressed() bool
}

// Device represents an opened joystick.
type Device interface {
	io.Closer
	// Index returns the index of the device on the system.
	Index() int
	// Name returns the name of the device.
	Name() string
	// AxisCount returns the number of Axis on the device.
	AxisCount() int
	// ButtonCount returns the number of buttons on the device.
	ButtonCount() int
	// ReadEvent reads one event from the device.
	ReadEvent() (Event, error)
}

// EventSize is the size of a js_event.
const EventSize = 8

const (
	evINIT uint8 = 0x80
	evBTN  uint8 = 0x01
	evAXIS uint8 = 0x02
)

// DecodeEvent decodes a js_event: time (u32), value (s16), type (u8),
// number (u8), little endian.
func DecodeEvent(b []byte) (Event, error) {
	if len(b) < EventSize {
		return nil, io.ErrUnexpectedEOF
	}
	ev := event{
		time:   binary.LittleEndian.Uint32(b[0:]),
		value:  int16(binary.LittleEndian.Uint16(b[4:])),
		typ:    b[6],
		number: b[7],
	}
	switch ev.typ &^ evINIT {
	case evBTN:
		return &buttonEvent{event: ev}, nil
	case evAXIS:
		return &axisEvent{event: ev}, nil
	}
	return &ev, nil
}

type event struct {
	time   uint32
	value  int16
	typ    uint8
	number uint8
}

func (e *event) IsInit() bool {
	return e.typ&evINIT != 0
}

func (e *event) Index() int {
	return int(e.number)
}

type axisEvent struct {
	event
}

func (e *axisEvent) Value() int {
	return int(e.value)
}

type buttonEvent struct {
	event
}

func (e *buttonEvent) Pressed() bool {
	return e.value != 0
}
