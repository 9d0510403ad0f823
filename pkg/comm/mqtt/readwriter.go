package mqtt

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/robotalks/sbus.go/pkg/comm"
)

// DefaultPublishTimeout bounds waiting for a publish to complete.
const DefaultPublishTimeout = 5 * time.Second

// ErrPublishTimeout indicates the broker didn't acknowledge in time.
var ErrPublishTimeout = errors.New("publish timeout")

// ReadWriter implements PacketReadWriter over a pair of topics.
type ReadWriter struct {
	Queue          *Queue
	SubTopic       string
	PubTopic       string
	PublishTimeout time.Duration

	packetCh  chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewPacketReadWriter creates the ReadWriter.
func NewPacketReadWriter(q *Queue) *ReadWriter {
	return &ReadWriter{
		Queue:          q,
		PublishTimeout: DefaultPublishTimeout,
		packetCh:       make(chan []byte, 16),
		done:           make(chan struct{}),
	}
}

// WithTopics specifies the topics.
func (p *ReadWriter) WithTopics(sub, pub string) *ReadWriter {
	p.SubTopic, p.PubTopic = sub, pub
	return p
}

// ForConnector sets topics for a client of node ref:
// SubTopic = sbus/<id>/msg
// PubTopic = sbus/<id>/cmd
func (p *ReadWriter) ForConnector(ref comm.NodeRef) *ReadWriter {
	prefix := ref.Name()
	return p.WithTopics(prefix+"/msg", prefix+"/cmd")
}

// ForNode sets topics for node ref itself:
// SubTopic = sbus/<id>/cmd
// PubTopic = sbus/<id>/msg
func (p *ReadWriter) ForNode(ref comm.NodeRef) *ReadWriter {
	prefix := ref.Name()
	return p.WithTopics(prefix+"/cmd", prefix+"/msg")
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-p.packetCh:
		return pkt, nil
	case <-p.done:
		return nil, io.EOF
	}
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	token := p.Queue.Pub(p.PubTopic, pkt)
	if !token.WaitTimeout(p.PublishTimeout) {
		return ErrPublishTimeout
	}
	return token.Error()
}

// Close implements io.Closer. Pending reads return io.EOF.
func (p *ReadWriter) Close() error {
	p.closeOnce.Do(func() { close(p.done) })
	return nil
}

// Run implements Runnable. It subscribes SubTopic until ctx is done or
// the ReadWriter is closed.
func (p *ReadWriter) Run(ctx context.Context) error {
	sub := p.Queue.Sub(p.SubTopic, Handler(p.handleMsg))
	defer sub.Close()
	defer p.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return nil
	}
}

func (p *ReadWriter) handleMsg(_ string, payload []byte) {
	select {
	case p.packetCh <- payload:
	case <-p.done:
	}
}
