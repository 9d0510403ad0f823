package node

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/sbus.go/pkg/comm"
	"github.com/robotalks/sbus.go/pkg/msgs"
	"github.com/robotalks/sbus.go/pkg/sbus"
)

type testDevice struct {
	connected bool
	reading   bool
	written   []sbus.Value
	stats     sbus.Stats
}

func (d *testDevice) PortName() string   { return "ttyTEST" }
func (d *testDevice) IsConnected() bool  { return d.connected }
func (d *testDevice) IsReading() bool    { return d.reading }
func (d *testDevice) Stats() sbus.Stats  { return d.stats }
func (d *testDevice) StopReading() error { d.reading = false; return nil }

func (d *testDevice) StartReading() error {
	if !d.connected {
		return sbus.ErrNotConnected
	}
	d.reading = true
	return nil
}

func (d *testDevice) WriteFrame(v sbus.Value) {
	d.written = append(d.written, v)
}

type testCommand struct {
	msg   msgs.Message
	reply msgs.Message
}

func (c *testCommand) Msg() msgs.Message { return c.msg }

func (c *testCommand) Done(reply msgs.Message) error {
	c.reply = reply
	return nil
}

func (c *testCommand) errorMessage() string {
	if cmdErr, ok := c.reply.(*msgs.CommandErr); ok {
		return cmdErr.Message
	}
	return ""
}

func do(n *Node, msg msgs.Message) *testCommand {
	cmd := &testCommand{msg: msg}
	n.HandleCommand(context.Background(), cmd)
	return cmd
}

func TestCommands(t *testing.T) {
	dev := &testDevice{}
	n := New(dev, comm.RegistrarFunc(func(context.Context, msgs.Message) error { return nil }))

	cmd := do(n, msgs.NewSbusWrite(sbus.Value{}))
	require.Equal(t, "not connected", cmd.errorMessage())
	cmd = do(n, &msgs.SbusReading{Enable: true})
	require.Equal(t, "not connected", cmd.errorMessage())

	dev.connected = true
	var v sbus.Value
	v.Channels[0] = 992
	cmd = do(n, msgs.NewSbusWrite(v))
	require.IsType(t, &msgs.CommandOK{}, cmd.reply)
	require.Equal(t, []sbus.Value{v}, dev.written)

	cmd = do(n, &msgs.SbusReading{Enable: true})
	require.IsType(t, &msgs.CommandOK{}, cmd.reply)
	require.True(t, dev.reading)

	dev.stats.Frames = 5
	cmd = do(n, &msgs.SbusStatusQuery{})
	status, ok := cmd.reply.(*msgs.SbusStatus)
	require.True(t, ok)
	require.Equal(t, "ttyTEST", status.Port)
	require.True(t, status.Connected)
	require.True(t, status.Reading)
	require.Equal(t, uint64(5), status.Frames)

	cmd = do(n, &msgs.SbusReading{})
	require.IsType(t, &msgs.CommandOK{}, cmd.reply)
	require.False(t, dev.reading)

	cmd = do(n, &msgs.SbusFrame{})
	require.Equal(t, msgs.ErrUnsupportedCommand.Error(), cmd.errorMessage())
}

func TestPublishFrames(t *testing.T) {
	var published []msgs.Message
	n := New(&testDevice{}, comm.RegistrarFunc(func(ctx context.Context, msg msgs.Message) error {
		published = append(published, msg)
		return nil
	}))
	var v sbus.Value
	v.Channels[1] = 1811
	v.FrameLost = true
	n.HandleValue(context.Background(), v)
	require.Len(t, published, 1)
	frame, ok := published[0].(*msgs.SbusFrame)
	require.True(t, ok)
	require.Equal(t, v, frame.Value())

	n.PublishInterval = time.Hour
	n.HandleValue(context.Background(), v)
	n.HandleValue(context.Background(), v)
	require.Len(t, published, 2)
}
