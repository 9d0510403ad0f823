package sbus

import (
	"io"
	"time"
)

// DefaultBaudRate is the SBUS line rate.
const DefaultBaudRate = 100000

// Port is an opened serial transport. Read may return 0 bytes when the
// read timeout expires.
type Port interface {
	io.ReadWriteCloser
	// Drain blocks until written bytes are transmitted.
	Drain() error
}

// Dialer opens a Port configured for SBUS (8 data bits, even parity,
// 2 stop bits).
type Dialer interface {
	Dial(name string, baudRate int, readTimeout time.Duration) (Port, error)
}

// DialFunc is func type of Dialer.
type DialFunc func(name string, baudRate int, readTimeout time.Duration) (Port, error)

// Dial implements Dialer.
func (f DialFunc) Dial(name string, baudRate int, readTimeout time.Duration) (Port, error) {
	return f(name, baudRate, readTimeout)
}
