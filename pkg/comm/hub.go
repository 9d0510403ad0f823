package comm

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/golang/glog"

	fx "github.com/robotalks/sbus.go/pkg/framework"
	"github.com/robotalks/sbus.go/pkg/msgs"
)

// DefaultPeerQueueSize is the number of events buffered for each peer.
const DefaultPeerQueueSize = 64

// Hub fans events out to registrars and connected peers, and passes
// commands from all of them to Handler.
// Events to peers are queued and written by a goroutine per peer, so a
// peer which stops reading only loses its own events.
type Hub struct {
	Handler       CommandHandler
	PeerQueueSize int

	lock       sync.RWMutex
	registrars []Registrar
	peers      map[*Peer]chan msgs.Message
	dropped    atomic.Uint64
}

// Add adds registrars which live as long as the Hub.
func (h *Hub) Add(regs ...Registrar) {
	h.lock.Lock()
	h.registrars = append(h.registrars, regs...)
	h.lock.Unlock()
}

// Serve runs a Peer over rw until the connection fails or ctx is done.
func (h *Hub) Serve(ctx context.Context, rw PacketReadWriter) error {
	peer := NewPeer(rw, HandleCommandFunc(h.handleCommand))
	size := h.PeerQueueSize
	if size <= 0 {
		size = DefaultPeerQueueSize
	}
	events := make(chan msgs.Message, size)
	h.lock.Lock()
	if h.peers == nil {
		h.peers = make(map[*Peer]chan msgs.Message)
	}
	h.peers[peer] = events
	count := len(h.peers)
	h.lock.Unlock()
	glog.V(1).Infof("peer connected, %d peers", count)

	sendDone := make(chan struct{})
	go func() {
		defer close(sendDone)
		for msg := range events {
			if err := peer.SendEvent(ctx, msg); err != nil {
				glog.V(2).Infof("peer send: %v", err)
			}
		}
	}()

	err := peer.Run(ctx)

	h.lock.Lock()
	delete(h.peers, peer)
	count = len(h.peers)
	h.lock.Unlock()
	close(events)
	<-sendDone
	glog.V(1).Infof("peer disconnected: %v, %d peers", err, count)
	return err
}

// Peers returns the number of connected peers.
func (h *Hub) Peers() int {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return len(h.peers)
}

// Dropped returns the number of events dropped for peers which didn't
// keep up.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// SendEvent implements Registrar. It doesn't wait for peers.
func (h *Hub) SendEvent(ctx context.Context, msg msgs.Message) error {
	h.lock.RLock()
	regs := make([]Registrar, len(h.registrars))
	copy(regs, h.registrars)
	for _, events := range h.peers {
		select {
		case events <- msg:
		default:
			h.dropped.Add(1)
		}
	}
	h.lock.RUnlock()

	var errs fx.AggregatedError
	for _, reg := range regs {
		errs.Add(reg.SendEvent(ctx, msg))
	}
	return errs.Aggregate()
}

// HandleCommand implements CommandHandler so registrars can pass their
// commands to the Hub.
func (h *Hub) HandleCommand(ctx context.Context, cmd Command) {
	h.handleCommand(ctx, cmd)
}

func (h *Hub) handleCommand(ctx context.Context, cmd Command) {
	if handler := h.Handler; handler != nil {
		handler.HandleCommand(ctx, cmd)
		return
	}
	ReplyUnsupported(cmd)
}
