// Package node exposes an SBUS bus to remote peers.
package node

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/sbus.go/pkg/comm"
	"github.com/robotalks/sbus.go/pkg/msgs"
	"github.com/robotalks/sbus.go/pkg/sbus"
)

// Device is the bus served by a Node. *sbus.Bus implements it.
type Device interface {
	PortName() string
	IsConnected() bool
	IsReading() bool
	StartReading() error
	StopReading() error
	WriteFrame(sbus.Value)
	Stats() sbus.Stats
}

// Node publishes decoded frames as SbusFrame events and serves commands.
type Node struct {
	Device Device
	Events comm.Registrar
	// PublishInterval is the minimum interval between published frames.
	// Zero publishes every frame.
	PublishInterval time.Duration

	lock        sync.Mutex
	lastPublish time.Time
}

// New creates a Node.
func New(dev Device, events comm.Registrar) *Node {
	return &Node{Device: dev, Events: events}
}

// HandleValue implements sbus.ValueHandler.
func (n *Node) HandleValue(ctx context.Context, v sbus.Value) {
	if n.PublishInterval > 0 {
		now := time.Now()
		n.lock.Lock()
		skip := now.Sub(n.lastPublish) < n.PublishInterval
		if !skip {
			n.lastPublish = now
		}
		n.lock.Unlock()
		if skip {
			return
		}
	}
	if err := n.Events.SendEvent(ctx, msgs.NewSbusFrame(v)); err != nil {
		glog.V(2).Infof("publish frame: %v", err)
	}
}

// HandleCommand implements comm.CommandHandler.
func (n *Node) HandleCommand(ctx context.Context, cmd comm.Command) {
	reply, err := n.execute(cmd.Msg())
	switch {
	case err == msgs.ErrUnsupportedCommand:
		err = comm.ReplyUnsupported(cmd)
	case err != nil:
		err = cmd.Done(msgs.NewCommandErr(err))
	default:
		err = cmd.Done(reply)
	}
	if err != nil {
		glog.Warningf("reply %T: %v", cmd.Msg(), err)
	}
}

func (n *Node) execute(msg msgs.Message) (msgs.Message, error) {
	dev := n.Device
	switch m := msg.(type) {
	case *msgs.SbusWrite:
		if !dev.IsConnected() {
			return nil, sbus.ErrNotConnected
		}
		dev.WriteFrame(m.Value())
		return msgs.NewCommandOK(), nil
	case *msgs.SbusReading:
		var err error
		if m.Enable {
			err = dev.StartReading()
		} else {
			err = dev.StopReading()
		}
		if err != nil {
			return nil, err
		}
		return msgs.NewCommandOK(), nil
	case *msgs.SbusStatusQuery:
		return msgs.NewSbusStatus(dev.PortName(), dev.IsConnected(), dev.IsReading(), dev.Stats()), nil
	}
	return nil, msgs.ErrUnsupportedCommand
}
