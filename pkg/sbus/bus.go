package sbus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
)

// Defaults for Bus timing.
const (
	DefaultReadTimeout  = 100 * time.Millisecond
	DefaultIdleInterval = time.Millisecond
	DefaultStopTimeout  = time.Second
)

// Bus reads and writes SBUS frames over a Port. Reading runs in a
// goroutine owned by the Bus; decoded values are delivered to the
// handler synchronously on that goroutine, so a slow handler delays
// further reads (wrap it with a Queue to decouple).
type Bus struct {
	Dialer   Dialer
	Notifier ErrorNotifier
	// ReadTimeout bounds a single Read, and thus how quickly reading stops.
	ReadTimeout time.Duration
	// IdleInterval is the pause after a read returning no data.
	IdleInterval time.Duration
	// StopTimeout bounds how long StopReading waits for the reader.
	StopTimeout time.Duration

	decoder Decoder

	ctlLock  sync.Mutex
	reading  atomic.Bool
	cancel   context.CancelFunc
	readDone chan struct{}

	portLock sync.RWMutex
	port     Port
	portName string

	writeLock sync.Mutex

	handlerLock sync.RWMutex
	handler     ValueHandler
}

// NewBus creates a Bus opening ports with dialer.
func NewBus(dialer Dialer) *Bus {
	b := &Bus{
		Dialer:       dialer,
		ReadTimeout:  DefaultReadTimeout,
		IdleInterval: DefaultIdleInterval,
		StopTimeout:  DefaultStopTimeout,
	}
	b.decoder.Handler = HandleValueFunc(b.dispatch)
	return b
}

// Connect opens the named port. baudRate <= 0 selects DefaultBaudRate.
// Connecting an already connected Bus does nothing.
func (b *Bus) Connect(name string, baudRate int) error {
	b.ctlLock.Lock()
	defer b.ctlLock.Unlock()
	if b.IsConnected() {
		return nil
	}
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}
	port, err := b.Dialer.Dial(name, baudRate, b.ReadTimeout)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	b.portLock.Lock()
	b.port, b.portName = port, name
	b.portLock.Unlock()
	glog.Infof("sbus: %s opened, %d baud", name, baudRate)
	return nil
}

// Disconnect stops reading and closes the port.
func (b *Bus) Disconnect() error {
	b.ctlLock.Lock()
	defer b.ctlLock.Unlock()
	b.stopLocked()
	b.portLock.Lock()
	port, name := b.port, b.portName
	b.port, b.portName = nil, ""
	b.portLock.Unlock()
	if port == nil {
		return b.waitLocked()
	}
	// closing unblocks a pending Read.
	err := port.Close()
	if err != nil {
		b.notify(OpClose, err)
	}
	if werr := b.waitLocked(); werr != nil {
		return werr
	}
	glog.Infof("sbus: %s closed", name)
	return err
}

// Close implements io.Closer.
func (b *Bus) Close() error {
	return b.Disconnect()
}

// IsConnected indicates a port is open.
func (b *Bus) IsConnected() bool {
	b.portLock.RLock()
	defer b.portLock.RUnlock()
	return b.port != nil
}

// PortName returns the name of the open port.
func (b *Bus) PortName() string {
	b.portLock.RLock()
	defer b.portLock.RUnlock()
	return b.portName
}

// IsReading indicates the reader is enabled.
func (b *Bus) IsReading() bool {
	return b.reading.Load()
}

// StartReading spawns the reader goroutine.
func (b *Bus) StartReading() error {
	b.ctlLock.Lock()
	defer b.ctlLock.Unlock()
	b.portLock.RLock()
	port := b.port
	b.portLock.RUnlock()
	if port == nil {
		return ErrNotConnected
	}
	if b.reading.Load() {
		return nil
	}
	// a previous reader may still be exiting.
	if err := b.waitLocked(); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel, b.readDone = cancel, make(chan struct{})
	b.reading.Store(true)
	go b.run(ctx, port, b.readDone)
	return nil
}

// StopReading disables the reader and waits up to StopTimeout for the
// goroutine to exit.
func (b *Bus) StopReading() error {
	b.ctlLock.Lock()
	defer b.ctlLock.Unlock()
	b.stopLocked()
	return b.waitLocked()
}

// Run implements Runnable. It reads until ctx is done.
func (b *Bus) Run(ctx context.Context) error {
	if err := b.StartReading(); err != nil {
		return err
	}
	<-ctx.Done()
	if err := b.StopReading(); err != nil {
		return err
	}
	return ctx.Err()
}

// SetHandler replaces the handler. It takes effect from the next decoded
// frame and doesn't wait for a handler call in progress.
func (b *Bus) SetHandler(h ValueHandler) {
	b.handlerLock.Lock()
	b.handler = h
	b.handlerLock.Unlock()
}

// SetHandlerFunc is SetHandler with a func.
func (b *Bus) SetHandlerFunc(fn func(context.Context, Value)) {
	if fn == nil {
		b.SetHandler(nil)
		return
	}
	b.SetHandler(HandleValueFunc(fn))
}

// FrameLostCount returns the number of frames received with frame lost set.
func (b *Bus) FrameLostCount() uint64 {
	return b.decoder.FrameLostCount()
}

// Stats returns decoder counters.
func (b *Bus) Stats() Stats {
	return b.decoder.Stats()
}

// WriteFrame encodes v and writes the frame. It does nothing when not
// connected. Errors go to Notifier and the frame is dropped.
func (b *Bus) WriteFrame(v Value) {
	f := EncodeFrame(v)
	b.writeLock.Lock()
	defer b.writeLock.Unlock()
	b.portLock.RLock()
	defer b.portLock.RUnlock()
	if b.port == nil {
		return
	}
	if _, err := f.WriteTo(b.port); err != nil {
		b.notify(OpWrite, err)
		return
	}
	if err := b.port.Drain(); err != nil {
		b.notify(OpWrite, err)
	}
}

func (b *Bus) stopLocked() {
	b.reading.Store(false)
	if b.cancel != nil {
		b.cancel()
	}
}

func (b *Bus) waitLocked() error {
	if b.readDone == nil {
		return nil
	}
	timeout := b.StopTimeout
	if timeout <= 0 {
		timeout = DefaultStopTimeout
	}
	select {
	case <-b.readDone:
		b.readDone, b.cancel = nil, nil
		return nil
	case <-time.After(timeout):
		return ErrStopTimeout
	}
}

func (b *Bus) run(ctx context.Context, port Port, done chan struct{}) {
	defer close(done)
	glog.V(2).Info("sbus: reader started")
	defer glog.V(2).Info("sbus: reader stopped")
	idle := b.IdleInterval
	if idle <= 0 {
		idle = DefaultIdleInterval
	}
	for b.reading.Load() {
		n, err := port.Read(b.decoder.Next(FrameSize))
		if !b.reading.Load() {
			return
		}
		if n > 0 {
			b.decoder.Commit(ctx, n)
		}
		if err != nil {
			b.notify(OpRead, err)
		} else if n > 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(idle):
		}
	}
}

func (b *Bus) dispatch(ctx context.Context, v Value) {
	b.handlerLock.RLock()
	h := b.handler
	b.handlerLock.RUnlock()
	if h != nil {
		h.HandleValue(ctx, v)
	}
}

func (b *Bus) notify(op Op, err error) {
	if n := b.Notifier; n != nil {
		n.ErrorOccurred(op, err)
		return
	}
	LogErrors.ErrorOccurred(op, err)
}
