package sbus

import (
	"context"
	"sync/atomic"
)

// BufferSize is the capacity of the Decoder accumulation buffer.
const BufferSize = 256

// Stats are the Decoder counters.
type Stats struct {
	// Frames is the number of decoded frames.
	Frames uint64
	// FrameLost is the number of decoded frames with the frame lost flag.
	FrameLost uint64
	// SkippedBytes counts bytes skipped to find the next frame header.
	SkippedBytes uint64
	// Overflows counts buffer resets because incoming data didn't fit.
	Overflows uint64
	// DroppedBytes counts buffered bytes discarded by overflow resets.
	DroppedBytes uint64
}

// Decoder locates frames in a byte stream. Received bytes are appended
// to a fixed buffer, scanned for frames and compacted. When incoming
// data doesn't fit, the whole buffer is discarded.
//
// Buffer methods must be called from a single goroutine. Counters can be
// read concurrently.
type Decoder struct {
	Handler ValueHandler

	buf   [BufferSize]byte
	front int // start of bytes not consumed
	end   int // end of bytes received

	frames    atomic.Uint64
	frameLost atomic.Uint64
	skipped   atomic.Uint64
	overflows atomic.Uint64
	dropped   atomic.Uint64
}

// Next returns the buffer region where the next read of up to n bytes
// must be placed. If n bytes don't fit after the received data, the
// buffer is reset first.
func (d *Decoder) Next(n int) []byte {
	if n > len(d.buf) {
		n = len(d.buf)
	}
	if d.end+n > len(d.buf) {
		d.overflows.Add(1)
		d.dropped.Add(uint64(d.end - d.front))
		d.Reset()
	}
	return d.buf[d.end : d.end+n]
}

// Commit appends n bytes already copied into the region returned by
// Next, and delivers all complete frames to Handler in stream order.
func (d *Decoder) Commit(ctx context.Context, n int) {
	if n <= 0 {
		return
	}
	if d.end += n; d.end > len(d.buf) {
		d.end = len(d.buf)
	}
	d.scan(ctx)
}

// Write implements io.Writer. p is fed in batches of FrameSize bytes,
// the same way the Bus reader feeds it.
func (d *Decoder) Write(p []byte) (int, error) {
	return d.WriteContext(context.Background(), p)
}

// WriteContext is Write passing ctx to Handler.
func (d *Decoder) WriteContext(ctx context.Context, p []byte) (int, error) {
	total := len(p)
	for len(p) > 0 {
		n := len(p)
		if n > FrameSize {
			n = FrameSize
		}
		n = copy(d.Next(n), p)
		d.Commit(ctx, n)
		p = p[n:]
	}
	return total, nil
}

// Buffered returns the number of received bytes not consumed.
func (d *Decoder) Buffered() int {
	return d.end - d.front
}

// Reset discards all buffered bytes. Counters are kept.
func (d *Decoder) Reset() {
	d.buf = [BufferSize]byte{}
	d.front, d.end = 0, 0
}

// FrameLostCount returns the number of frames decoded with frame lost set.
func (d *Decoder) FrameLostCount() uint64 {
	return d.frameLost.Load()
}

// Stats returns a snapshot of the counters.
func (d *Decoder) Stats() Stats {
	return Stats{
		Frames:       d.frames.Load(),
		FrameLost:    d.frameLost.Load(),
		SkippedBytes: d.skipped.Load(),
		Overflows:    d.overflows.Load(),
		DroppedBytes: d.dropped.Load(),
	}
}

func (d *Decoder) scan(ctx context.Context) {
	consumed := d.front
	for i := d.front; i+FrameSize <= d.end; {
		v, ok := DecodeFrame(d.buf[i:d.end])
		if !ok {
			i++
			continue
		}
		if skipped := i - consumed; skipped > 0 {
			d.skipped.Add(uint64(skipped))
		}
		d.frames.Add(1)
		if v.FrameLost {
			d.frameLost.Add(1)
		}
		if h := d.Handler; h != nil {
			h.HandleValue(ctx, v)
		}
		i += FrameSize
		consumed = i
	}
	d.front = consumed

	if len(d.buf)-d.end < FrameSize {
		copy(d.buf[:], d.buf[d.front:d.end])
		d.end -= d.front
		d.front = 0
	}
	if d.front == d.end {
		d.front, d.end = 0, 0
	}
}
