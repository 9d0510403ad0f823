package comm

import (
	"context"
	"sync"
	"time"

	fx "github.com/robotalks/sbus.go/pkg/framework"
	"github.com/robotalks/sbus.go/pkg/msgs"
)

// DefaultCommandExpiration is the default expiration expecting a reply.
const DefaultCommandExpiration = 1 * time.Second

// Conn is the client side of a Pipe. It correlates replies to commands
// by sequence number, and delivers events to the event handler.
type Conn struct {
	Expiration time.Duration

	pipe    Pipe
	seq     uint32
	pending map[uint32]*commandFuture
	events  EventHandler
	closed  bool
	lock    sync.Mutex
}

// NewConn creates a Conn over rw.
func NewConn(rw PacketReadWriter) *Conn {
	c := &Conn{
		Expiration: DefaultCommandExpiration,
		pending:    make(map[uint32]*commandFuture),
	}
	c.pipe.ReadWriter = rw
	c.pipe.Handler = msgs.HandleTypedMsgFunc(c.handleTypedMsg)
	return c
}

// DoCommand implements NodeConn.
func (c *Conn) DoCommand(msg msgs.Message) CommandFuture {
	f := &commandFuture{result: make(chan Result, 1)}
	c.lock.Lock()
	if c.closed {
		c.lock.Unlock()
		f.complete(Result{Err: ErrClosed})
		return f
	}
	c.seq++
	if c.seq == 0 {
		c.seq++
	}
	f.seq = c.seq
	expiration := c.Expiration
	if expiration <= 0 {
		expiration = DefaultCommandExpiration
	}
	f.timer = time.AfterFunc(expiration, func() {
		if c.take(f.seq) != nil {
			f.complete(Result{Err: ErrNoReply})
		}
	})
	c.pending[f.seq] = f
	c.lock.Unlock()

	if err := c.pipe.SendCommandMsg(msg, f.seq); err != nil {
		if c.take(f.seq) != nil {
			f.complete(Result{Err: err})
		}
	}
	return f
}

// SetEventHandler implements NodeConn.
func (c *Conn) SetEventHandler(h EventHandler) {
	c.lock.Lock()
	c.events = h
	c.lock.Unlock()
}

// Run implements Runnable. Pending commands fail with ErrClosed when it
// returns.
func (c *Conn) Run(ctx context.Context) error {
	err := fx.RunWithContextCloser(ctx, &c.pipe, func() error {
		return c.pipe.Run(ctx)
	})
	c.lock.Lock()
	c.closed = true
	pending := c.pending
	c.pending = make(map[uint32]*commandFuture)
	c.lock.Unlock()
	for _, f := range pending {
		f.complete(Result{Err: ErrClosed})
	}
	return err
}

// Close implements io.Closer.
func (c *Conn) Close() error {
	return c.pipe.Close()
}

func (c *Conn) take(seq uint32) *commandFuture {
	c.lock.Lock()
	defer c.lock.Unlock()
	f := c.pending[seq]
	delete(c.pending, seq)
	return f
}

func (c *Conn) handleTypedMsg(ctx context.Context, msg msgs.Message, typed *msgs.Typed) error {
	if typed.IsEvent() {
		c.lock.Lock()
		h := c.events
		c.lock.Unlock()
		if h != nil {
			h.HandleEvent(ctx, msg)
		}
		return nil
	}
	if !typed.IsReply() {
		return nil
	}
	f := c.take(typed.Sequence)
	if f == nil {
		return nil
	}
	result := Result{Msg: msg}
	if cmdErr, ok := msg.(*msgs.CommandErr); ok {
		result.Err = cmdErr
	}
	f.complete(result)
	return nil
}

type commandFuture struct {
	seq    uint32
	timer  *time.Timer
	result chan Result
	once   sync.Once
}

func (f *commandFuture) ResultChan() <-chan Result {
	return f.result
}

func (f *commandFuture) complete(r Result) {
	f.once.Do(func() {
		if f.timer != nil {
			f.timer.Stop()
		}
		f.result <- r
		close(f.result)
	})
}
