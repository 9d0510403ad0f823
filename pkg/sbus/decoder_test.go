package sbus

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type valueRecorder struct {
	values []Value
}

func (r *valueRecorder) HandleValue(ctx context.Context, v Value) {
	r.values = append(r.values, v)
}

func newTestDecoder() (*Decoder, *valueRecorder) {
	r := &valueRecorder{}
	return &Decoder{Handler: r}, r
}

func garbage(n int) []byte {
	return bytes.Repeat([]byte{0xAA}, n)
}

func TestDecoderResync(t *testing.T) {
	d, r := newTestDecoder()
	v := Value{Channels: channels(992, 172, 1811)}
	d.Write(append(garbage(5), rawFrame(v, EndByte)...))
	require.Equal(t, []Value{v}, r.values)
	require.Equal(t, 0, d.Buffered())
	require.Equal(t, Stats{Frames: 1, SkippedBytes: 5}, d.Stats())
}

func TestDecoderBackToBack(t *testing.T) {
	d, r := newTestDecoder()
	v1 := Value{Channels: channels(1, 2, 3)}
	v2 := Value{Channels: channels(4, 5, 6), FailSafe: true}
	d.Write(append(rawFrame(v1, 0x00), rawFrame(v2, 0x14)...))
	require.Equal(t, []Value{v1, v2}, r.values)
}

func TestDecoderSplitFrame(t *testing.T) {
	d, r := newTestDecoder()
	v := Value{Channels: channels(0x0F, 0x0F, 0x0F)}
	raw := rawFrame(v, EndByte)
	d.Write(raw[:10])
	d.Write(raw[10:20])
	require.Empty(t, r.values)
	require.Equal(t, 20, d.Buffered())
	d.Write(raw[20:])
	require.Equal(t, []Value{v}, r.values)
	require.Equal(t, 0, d.Buffered())
}

func TestDecoderEndMarkers(t *testing.T) {
	cases := []struct {
		end    byte
		decode bool
	}{
		{0x00, true},
		{0x04, true},
		{0x14, true},
		{0x24, true},
		{0x34, true},
		{0x01, false},
		{0x44, false},
		{0xFF, false},
	}
	for _, tc := range cases {
		d, r := newTestDecoder()
		d.Write(rawFrame(Value{Channels: channels(500)}, tc.end))
		if tc.decode {
			require.Len(t, r.values, 1, "end byte %#02x", tc.end)
		} else {
			require.Empty(t, r.values, "end byte %#02x", tc.end)
		}
	}
}

func TestDecoderFalseHeader(t *testing.T) {
	d, r := newTestDecoder()
	v := Value{Channels: channels(300)}
	v.Channels[15] = ChannelMask
	// the 0x0F in garbage is followed by a non end byte 24 bytes later.
	in := append([]byte{0x0F, 0xAA, 0xAA}, rawFrame(v, EndByte)...)
	d.Write(in)
	require.Equal(t, []Value{v}, r.values)
	require.Equal(t, uint64(3), d.Stats().SkippedBytes)
}

func TestDecoderFrameLostCount(t *testing.T) {
	d, r := newTestDecoder()
	const total = 20
	lost := 0
	for n := 0; n < total; n++ {
		v := Value{FrameLost: n%3 == 0}
		if v.FrameLost {
			lost++
		}
		d.Write(rawFrame(v, EndByte))
	}
	require.Len(t, r.values, total)
	require.Equal(t, uint64(lost), d.FrameLostCount())
	require.Equal(t, uint64(total), d.Stats().Frames)
}

func TestDecoderOverflow(t *testing.T) {
	d, r := newTestDecoder()
	d.Write(garbage(240))
	require.Equal(t, 240, d.Buffered())

	v := Value{Channels: channels(1234)}
	d.Write(rawFrame(v, EndByte))
	require.Equal(t, []Value{v}, r.values)
	stats := d.Stats()
	require.Equal(t, uint64(1), stats.Overflows)
	require.Equal(t, uint64(240), stats.DroppedBytes)
	require.Equal(t, 0, d.Buffered())
}

func TestDecoderCompaction(t *testing.T) {
	d, r := newTestDecoder()
	var stream []byte
	stream = append(stream, garbage(7)...)
	var expected []Value
	for n := 0; n < 40; n++ {
		v := Value{Channels: channels(uint16(n), uint16(n*2))}
		expected = append(expected, v)
		stream = append(stream, rawFrame(v, EndByte)...)
	}
	for len(stream) > 0 {
		n := FrameSize
		if n > len(stream) {
			n = len(stream)
		}
		d.Write(stream[:n])
		stream = stream[n:]
	}
	require.Equal(t, expected, r.values)
	stats := d.Stats()
	require.Equal(t, uint64(0), stats.Overflows)
	require.Equal(t, uint64(7), stats.SkippedBytes)
}

func TestDecoderLargeWrite(t *testing.T) {
	d, r := newTestDecoder()
	var stream []byte
	for n := 0; n < 30; n++ {
		stream = append(stream, rawFrame(Value{Channels: channels(uint16(n))}, EndByte)...)
	}
	n, err := d.Write(stream)
	require.NoError(t, err)
	require.Equal(t, len(stream), n)
	require.Len(t, r.values, 30)
	for i, v := range r.values {
		require.Equal(t, uint16(i), v.Channels[0])
	}
	require.Equal(t, uint64(0), d.Stats().Overflows)
}
