package sbus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errTestPortClosed = errors.New("port closed")

type testPort struct {
	timeout  time.Duration
	readCh   chan []byte
	readErrs chan error
	writeCh  chan []byte
	writeErr error
	drains   atomic.Int32
	closed   chan struct{}
	once     sync.Once
}

func newTestPort(timeout time.Duration) *testPort {
	return &testPort{
		timeout:  timeout,
		readCh:   make(chan []byte, 64),
		readErrs: make(chan error, 4),
		writeCh:  make(chan []byte, 128),
		closed:   make(chan struct{}),
	}
}

func (p *testPort) Read(b []byte) (int, error) {
	select {
	case data := <-p.readCh:
		return copy(b, data), nil
	case err := <-p.readErrs:
		return 0, err
	case <-p.closed:
		return 0, errTestPortClosed
	case <-time.After(p.timeout):
		return 0, nil
	}
}

func (p *testPort) Write(b []byte) (int, error) {
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	p.writeCh <- append([]byte(nil), b...)
	return len(b), nil
}

func (p *testPort) Drain() error {
	p.drains.Add(1)
	return nil
}

func (p *testPort) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func (p *testPort) inject(data []byte) {
	for len(data) > 0 {
		n := FrameSize
		if n > len(data) {
			n = len(data)
		}
		p.readCh <- data[:n]
		data = data[n:]
	}
}

func (p *testPort) isClosed() bool {
	select {
	case <-p.closed:
		return true
	default:
		return false
	}
}

type busTestCtx struct {
	t        *testing.T
	bus      *Bus
	port     *testPort
	dials    int
	baudRate int
	valueCh  chan Value
	errCh    chan Op
}

func newBusTestCtx(t *testing.T) *busTestCtx {
	c := &busTestCtx{
		t:       t,
		valueCh: make(chan Value, 64),
		errCh:   make(chan Op, 16),
	}
	c.bus = NewBus(DialFunc(func(name string, baudRate int, readTimeout time.Duration) (Port, error) {
		c.dials++
		c.baudRate = baudRate
		c.port = newTestPort(readTimeout)
		return c.port, nil
	}))
	c.bus.ReadTimeout = 10 * time.Millisecond
	c.bus.Notifier = ErrorOccurredFunc(func(op Op, err error) {
		c.errCh <- op
	})
	c.bus.SetHandlerFunc(func(ctx context.Context, v Value) {
		c.valueCh <- v
	})
	return c
}

func (c *busTestCtx) connectAndRead() *busTestCtx {
	require.NoError(c.t, c.bus.Connect("test", 0))
	require.NoError(c.t, c.bus.StartReading())
	return c
}

func (c *busTestCtx) expectValue(expected Value) *busTestCtx {
	select {
	case v := <-c.valueCh:
		require.Equal(c.t, expected, v)
	case <-time.After(500 * time.Millisecond):
		c.t.Fatal("expect value timeout")
	}
	return c
}

func (c *busTestCtx) expectNoValue() *busTestCtx {
	select {
	case v := <-c.valueCh:
		c.t.Fatalf("unexpected value %v", v)
	case <-time.After(50 * time.Millisecond):
	}
	return c
}

func (c *busTestCtx) expectError(op Op) *busTestCtx {
	select {
	case actual := <-c.errCh:
		require.Equal(c.t, op, actual)
	case <-time.After(500 * time.Millisecond):
		c.t.Fatalf("expect %s error timeout", op)
	}
	return c
}

func TestBusConnect(t *testing.T) {
	c := newBusTestCtx(t)
	require.False(t, c.bus.IsConnected())
	require.NoError(t, c.bus.Connect("ttyS0", 0))
	require.True(t, c.bus.IsConnected())
	require.Equal(t, "ttyS0", c.bus.PortName())
	require.Equal(t, DefaultBaudRate, c.baudRate)

	require.NoError(t, c.bus.Connect("ttyS1", 115200))
	require.Equal(t, 1, c.dials)
	require.Equal(t, "ttyS0", c.bus.PortName())

	port := c.port
	require.NoError(t, c.bus.Disconnect())
	require.False(t, c.bus.IsConnected())
	require.True(t, port.isClosed())
	require.NoError(t, c.bus.Disconnect())
}

func TestBusConnectError(t *testing.T) {
	dialErr := errors.New("no such device")
	bus := NewBus(DialFunc(func(string, int, time.Duration) (Port, error) {
		return nil, dialErr
	}))
	err := bus.Connect("ttyX", 0)
	require.Error(t, err)
	require.True(t, errors.Is(err, dialErr))
	require.False(t, bus.IsConnected())
	require.Equal(t, ErrNotConnected, bus.StartReading())
}

func TestBusReading(t *testing.T) {
	c := newBusTestCtx(t).connectAndRead()
	defer c.bus.Disconnect()
	require.True(t, c.bus.IsReading())
	require.NoError(t, c.bus.StartReading())

	v1 := Value{Channels: channels(992, 992, 172, 1811)}
	v2 := Value{Channels: channels(1, 2, 3), FrameLost: true}
	c.port.inject(append(append(garbage(3), rawFrame(v1, 0x04)...), rawFrame(v2, 0x00)...))
	c.expectValue(v1).expectValue(v2)
	require.Equal(t, uint64(1), c.bus.FrameLostCount())
	stats := c.bus.Stats()
	require.Equal(t, uint64(2), stats.Frames)
	require.Equal(t, uint64(3), stats.SkippedBytes)
}

func TestBusStopReading(t *testing.T) {
	c := newBusTestCtx(t).connectAndRead()
	defer c.bus.Disconnect()
	require.NoError(t, c.bus.StopReading())
	require.False(t, c.bus.IsReading())
	require.True(t, c.bus.IsConnected())
	require.NoError(t, c.bus.StopReading())

	v := Value{Channels: channels(100)}
	c.port.inject(rawFrame(v, EndByte))
	c.expectNoValue()

	require.NoError(t, c.bus.StartReading())
	c.expectValue(v)
}

func TestBusStopTimeout(t *testing.T) {
	c := newBusTestCtx(t).connectAndRead()
	defer c.bus.Disconnect()
	c.bus.StopTimeout = 20 * time.Millisecond
	entered, release := make(chan struct{}), make(chan struct{})
	c.bus.SetHandlerFunc(func(ctx context.Context, v Value) {
		close(entered)
		<-release
	})
	c.port.inject(rawFrame(Value{}, EndByte))
	<-entered
	require.Equal(t, ErrStopTimeout, c.bus.StopReading())
	require.False(t, c.bus.IsReading())
	close(release)
	require.NoError(t, c.bus.StopReading())
}

func TestBusReadError(t *testing.T) {
	c := newBusTestCtx(t).connectAndRead()
	defer c.bus.Disconnect()
	c.port.readErrs <- errors.New("parity error")
	c.expectError(OpRead)

	v := Value{Channels: channels(7)}
	c.port.inject(rawFrame(v, EndByte))
	c.expectValue(v)
	require.True(t, c.bus.IsReading())
}

func TestBusSetHandler(t *testing.T) {
	c := newBusTestCtx(t).connectAndRead()
	defer c.bus.Disconnect()
	otherCh := make(chan Value, 1)
	c.bus.SetHandlerFunc(func(ctx context.Context, v Value) {
		otherCh <- v
	})
	v := Value{Channels: channels(42)}
	c.port.inject(rawFrame(v, EndByte))
	select {
	case actual := <-otherCh:
		require.Equal(t, v, actual)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expect value timeout")
	}
	c.expectNoValue()

	c.bus.SetHandler(nil)
	c.port.inject(rawFrame(v, EndByte))
	c.expectNoValue()
}

func TestBusWriteFrame(t *testing.T) {
	c := newBusTestCtx(t)
	c.bus.WriteFrame(Value{Channels: channels(1)})

	require.NoError(t, c.bus.Connect("test", 0))
	defer c.bus.Disconnect()
	v := Value{Channels: channels(172, 992, 1811), FailSafe: true}
	c.bus.WriteFrame(v)
	expected := EncodeFrame(v)
	select {
	case b := <-c.port.writeCh:
		require.Equal(t, expected.Bytes(), b)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expect write timeout")
	}
	require.Equal(t, int32(1), c.port.drains.Load())
}

func TestBusWriteError(t *testing.T) {
	c := newBusTestCtx(t)
	require.NoError(t, c.bus.Connect("test", 0))
	defer c.bus.Disconnect()
	c.port.writeErr = errors.New("device gone")
	c.bus.WriteFrame(Value{})
	c.expectError(OpWrite)
	require.Equal(t, int32(0), c.port.drains.Load())
}

func TestBusConcurrentWrites(t *testing.T) {
	c := newBusTestCtx(t).connectAndRead()
	defer c.bus.Disconnect()
	const writers, frames = 8, 10
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for n := 0; n < frames; n++ {
				c.bus.WriteFrame(Value{Channels: channels(uint16(w), uint16(n))})
			}
		}(w)
	}
	wg.Wait()
	require.Len(t, c.port.writeCh, writers*frames)
	for n := 0; n < writers*frames; n++ {
		b := <-c.port.writeCh
		require.Len(t, b, FrameSize)
		_, ok := DecodeFrame(b)
		require.True(t, ok)
	}
}

func TestBusRun(t *testing.T) {
	c := newBusTestCtx(t)
	require.NoError(t, c.bus.Connect("test", 0))
	defer c.bus.Disconnect()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.bus.Run(ctx) }()

	v := Value{Channels: channels(5)}
	c.port.inject(rawFrame(v, EndByte))
	c.expectValue(v)
	cancel()
	select {
	case err := <-errCh:
		require.Equal(t, context.Canceled, err)
	case <-time.After(time.Second):
		t.Fatal("run not stopped")
	}
	require.False(t, c.bus.IsReading())
}

func TestBusDisconnectWhileReading(t *testing.T) {
	c := newBusTestCtx(t).connectAndRead()
	require.NoError(t, c.bus.Disconnect())
	require.False(t, c.bus.IsReading())
	require.False(t, c.bus.IsConnected())
	require.Equal(t, ErrNotConnected, c.bus.StartReading())
}
