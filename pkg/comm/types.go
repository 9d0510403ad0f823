package comm

import (
	"context"
	"errors"
	"io"

	"github.com/robotalks/sbus.go/pkg/msgs"
)

// PacketReader reads packets in bytes.
type PacketReader interface {
	ReadPacket() ([]byte, error)
}

// PacketWriter writes packets in bytes.
type PacketWriter interface {
	WritePacket([]byte) error
}

// PacketReadWriter reads/writes packets in bytes.
type PacketReadWriter interface {
	PacketReader
	PacketWriter
}

var (
	// ErrNoReply indicates a command expired without a reply.
	ErrNoReply = errors.New("no reply")
	// ErrClosed indicates the connection closed before a reply arrived.
	ErrClosed = errors.New("connection closed")
)

// NodeRef is a reference to an SBUS node.
type NodeRef struct {
	// ID is the unique ID of the node.
	ID string
}

// Name is the topic path of the node.
func (r NodeRef) Name() string {
	return "sbus/" + r.ID
}

// IsValid indicates NodeRef is valid.
func (r NodeRef) IsValid() bool {
	return r.ID != ""
}

// NodeMeta is published by a node for discovery.
type NodeMeta struct {
	Description string            `json:"description,omitempty"`
	Port        string            `json:"port,omitempty"`
	BaudRate    int               `json:"baud_rate,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// NodeInfo provides information of a node.
type NodeInfo struct {
	Ref  NodeRef
	Meta NodeMeta
}

// Registrar delivers events to remote peers.
type Registrar interface {
	SendEvent(context.Context, msgs.Message) error
}

// Command represents a received command to be processed.
type Command interface {
	Msg() msgs.Message
	// Done sends the reply.
	Done(msgs.Message) error
}

// CommandHandler processes commands from remote peers.
type CommandHandler interface {
	HandleCommand(context.Context, Command)
}

// HandleCommandFunc is func form of CommandHandler.
type HandleCommandFunc func(context.Context, Command)

// HandleCommand implements CommandHandler.
func (f HandleCommandFunc) HandleCommand(ctx context.Context, cmd Command) {
	f(ctx, cmd)
}

// EventHandler receives events from a node.
type EventHandler interface {
	HandleEvent(context.Context, msgs.Message)
}

// HandleEventFunc is func form of EventHandler.
type HandleEventFunc func(context.Context, msgs.Message)

// HandleEvent implements EventHandler.
func (f HandleEventFunc) HandleEvent(ctx context.Context, msg msgs.Message) {
	f(ctx, msg)
}

// Connector is used by clients to reach nodes.
type Connector interface {
	// Discover enumerates registered nodes.
	Discover(context.Context) ([]NodeInfo, error)
	// Connect connects to the specified node.
	Connect(context.Context, NodeRef) (NodeConn, error)
}

// NodeConn is the client connection to a node.
type NodeConn interface {
	// DoCommand sends a command.
	DoCommand(msgs.Message) CommandFuture
	// SetEventHandler receives events published by the node.
	SetEventHandler(EventHandler)
	io.Closer
}

// Result represents result of a command.
type Result struct {
	Msg msgs.Message
	Err error
}

// CommandFuture is the future of sent command.
type CommandFuture interface {
	ResultChan() <-chan Result
}

// Wait waits for the reply of a command.
func Wait(ctx context.Context, f CommandFuture) (msgs.Message, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r, ok := <-f.ResultChan():
		if !ok {
			return nil, ErrClosed
		}
		return r.Msg, r.Err
	}
}

// Do sends a command on conn and waits for the reply.
func Do(ctx context.Context, conn NodeConn, msg msgs.Message) (msgs.Message, error) {
	return Wait(ctx, conn.DoCommand(msg))
}

// RegistrarFunc is func form of Registrar.
type RegistrarFunc func(context.Context, msgs.Message) error

// SendEvent implements Registrar.
func (f RegistrarFunc) SendEvent(ctx context.Context, msg msgs.Message) error {
	return f(ctx, msg)
}
