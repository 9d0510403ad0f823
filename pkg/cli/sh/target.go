package sh

import (
	"context"

	"github.com/robotalks/sbus.go/pkg/comm"
	"github.com/robotalks/sbus.go/pkg/msgs"
	"github.com/robotalks/sbus.go/pkg/sbus"
)

// Target is what the shell commands operate on, either a local bus or a
// remote node.
type Target interface {
	Name() string
	Status(context.Context) (*msgs.SbusStatus, error)
	Write(context.Context, sbus.Value) error
	SetReading(ctx context.Context, enable bool) error
	// Watch calls fn for each received frame until the returned func is
	// called.
	Watch(fn func(sbus.Value)) (stop func())
}

// LocalTarget operates a Bus in process.
type LocalTarget struct {
	Bus *sbus.Bus
}

// Name implements Target.
func (t *LocalTarget) Name() string {
	return t.Bus.PortName()
}

// Status implements Target.
func (t *LocalTarget) Status(context.Context) (*msgs.SbusStatus, error) {
	return msgs.NewSbusStatus(t.Bus.PortName(), t.Bus.IsConnected(), t.Bus.IsReading(), t.Bus.Stats()), nil
}

// Write implements Target.
func (t *LocalTarget) Write(_ context.Context, v sbus.Value) error {
	if !t.Bus.IsConnected() {
		return sbus.ErrNotConnected
	}
	t.Bus.WriteFrame(v)
	return nil
}

// SetReading implements Target.
func (t *LocalTarget) SetReading(_ context.Context, enable bool) error {
	if enable {
		return t.Bus.StartReading()
	}
	return t.Bus.StopReading()
}

// Watch implements Target.
func (t *LocalTarget) Watch(fn func(sbus.Value)) func() {
	t.Bus.SetHandlerFunc(func(_ context.Context, v sbus.Value) { fn(v) })
	return func() { t.Bus.SetHandler(nil) }
}

// RemoteTarget operates a node using commands.
type RemoteTarget struct {
	Node string
	Conn comm.NodeConn
}

// Name implements Target.
func (t *RemoteTarget) Name() string {
	return t.Node
}

// Status implements Target.
func (t *RemoteTarget) Status(ctx context.Context) (*msgs.SbusStatus, error) {
	reply, err := comm.Do(ctx, t.Conn, &msgs.SbusStatusQuery{})
	if err != nil {
		return nil, err
	}
	status, ok := reply.(*msgs.SbusStatus)
	if !ok {
		return nil, &msgs.ErrUnknownType{TypeID: reply.TypeID()}
	}
	return status, nil
}

// Write implements Target.
func (t *RemoteTarget) Write(ctx context.Context, v sbus.Value) error {
	_, err := comm.Do(ctx, t.Conn, msgs.NewSbusWrite(v))
	return err
}

// SetReading implements Target.
func (t *RemoteTarget) SetReading(ctx context.Context, enable bool) error {
	_, err := comm.Do(ctx, t.Conn, &msgs.SbusReading{Enable: enable})
	return err
}

// Watch implements Target.
func (t *RemoteTarget) Watch(fn func(sbus.Value)) func() {
	t.Conn.SetEventHandler(comm.HandleEventFunc(func(_ context.Context, msg msgs.Message) {
		if frame, ok := msg.(*msgs.SbusFrame); ok {
			fn(frame.Value())
		}
	}))
	return func() { t.Conn.SetEventHandler(nil) }
}
