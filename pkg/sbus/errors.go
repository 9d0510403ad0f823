package sbus

import "errors"

var (
	// ErrNotConnected indicates no port is open.
	ErrNotConnected = errors.New("not connected")
	// ErrStopTimeout indicates the intake goroutine didn't exit in time.
	ErrStopTimeout = errors.New("timeout waiting for reader to stop")
)
