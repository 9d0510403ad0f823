package sbus

import (
	"context"

	"github.com/golang/glog"
)

// ValueHandler is called when a frame is decoded.
type ValueHandler interface {
	HandleValue(context.Context, Value)
}

// HandleValueFunc is func type of ValueHandler.
type HandleValueFunc func(context.Context, Value)

// HandleValue implements ValueHandler.
func (f HandleValueFunc) HandleValue(ctx context.Context, v Value) {
	f(ctx, v)
}

// Op names the transport operation which failed.
type Op string

// Transport operations reported to ErrorNotifier.
const (
	OpRead  Op = "read"
	OpWrite Op = "write"
	OpClose Op = "close"
)

// ErrorNotifier is told about transport errors which are not returned
// to any caller.
type ErrorNotifier interface {
	ErrorOccurred(Op, error)
}

// ErrorOccurredFunc is func type of ErrorNotifier.
type ErrorOccurredFunc func(Op, error)

// ErrorOccurred implements ErrorNotifier.
func (f ErrorOccurredFunc) ErrorOccurred(op Op, err error) {
	f(op, err)
}

// LogErrors is the default ErrorNotifier.
var LogErrors = ErrorOccurredFunc(func(op Op, err error) {
	glog.Warningf("sbus %s error: %v", op, err)
})
