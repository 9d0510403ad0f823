package comm

import (
	"context"

	fx "github.com/robotalks/sbus.go/pkg/framework"
	"github.com/robotalks/sbus.go/pkg/msgs"
)

// Peer serves a node to one remote peer: events go out, commands come
// in and are passed to Handler.
type Peer struct {
	Handler CommandHandler

	pipe Pipe
}

// NewPeer creates a Peer.
func NewPeer(rw PacketReadWriter, handler CommandHandler) *Peer {
	p := &Peer{Handler: handler}
	p.pipe.ReadWriter = rw
	p.pipe.Handler = msgs.HandleTypedMsgFunc(p.handleTypedMsg)
	return p
}

// SendEvent implements Registrar.
func (p *Peer) SendEvent(ctx context.Context, msg msgs.Message) error {
	return p.pipe.SendEventMsg(msg)
}

// Run implements Runnable. The connection is closed when it returns.
func (p *Peer) Run(ctx context.Context) error {
	return fx.RunWithContextCloser(ctx, &p.pipe, func() error {
		return p.pipe.Run(ctx)
	})
}

// Close closes the connection.
func (p *Peer) Close() error {
	return p.pipe.Close()
}

func (p *Peer) handleTypedMsg(ctx context.Context, msg msgs.Message, typed *msgs.Typed) error {
	if !typed.IsCommand() || typed.IsReply() {
		return nil
	}
	cmd := &command{seq: typed.Sequence, msg: msg, pipe: &p.pipe}
	if h := p.Handler; h != nil {
		h.HandleCommand(ctx, cmd)
		return nil
	}
	return ReplyUnsupported(cmd)
}

// ReplyUnsupported replies CommandErr with ErrUnsupportedCommand.
func ReplyUnsupported(cmd Command) error {
	return cmd.Done(msgs.NewCommandErr(msgs.ErrUnsupportedCommand))
}

type command struct {
	seq  uint32
	msg  msgs.Message
	pipe *Pipe
}

func (c *command) Msg() msgs.Message {
	return c.msg
}

func (c *command) Done(msg msgs.Message) error {
	return c.pipe.SendCommandMsg(msg, c.seq)
}
