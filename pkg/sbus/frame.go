package sbus

import "io"

// Frame is a raw 25-byte SBUS frame.
type Frame [FrameSize]byte

// Channel i occupies bits [11i, 11i+10] of the 176-bit payload in bytes
// 1-22, least significant bit first. The start bit of each channel:
//
//	ch   0   1   2   3   4   5   6   7   8   9  10  11  12  13  14  15
//	bit  0  11  22  33  44  55  66  77  88  99 110 121 132 143 154 165
//
// A channel spans 2 bytes, or 3 when its start bit within the first byte
// is 6 or 7 (channels 2, 5, 10, 13).
func channelOffset(i int) (byteOffset int, shift uint) {
	bit := i * channelBits
	return payloadOffset + bit/8, uint(bit % 8)
}

// EncodeFrame builds a frame from v. Channel values are masked to 11 bits.
// The flags byte is always written as zero: digital, frame lost and failsafe
// bits are generated by receivers, and transmitting them is left undecided.
func EncodeFrame(v Value) (f Frame) {
	f[0] = HeaderByte
	for i, ch := range v.Channels {
		off, shift := channelOffset(i)
		bits := uint32(ch&ChannelMask) << shift
		for n := 0; bits != 0 && off+n < flagsOffset; n++ {
			f[off+n] |= byte(bits)
			bits >>= 8
		}
	}
	f[flagsOffset] = 0
	f[endOffset] = EndByte
	return
}

// DecodeFrame decodes b if it starts with a valid frame.
func DecodeFrame(b []byte) (v Value, ok bool) {
	if len(b) < FrameSize || b[0] != HeaderByte || !IsEndByte(b[endOffset]) {
		return
	}
	for i := range v.Channels {
		off, shift := channelOffset(i)
		var bits uint32
		for n := 0; n < 3 && off+n < flagsOffset; n++ {
			bits |= uint32(b[off+n]) << (8 * uint(n))
		}
		v.Channels[i] = uint16(bits>>shift) & ChannelMask
	}
	v.SetFlags(b[flagsOffset])
	return v, true
}

// Bytes returns the frame as a slice.
func (f *Frame) Bytes() []byte {
	return f[:]
}

// Valid reports whether the header and end marker are accepted.
func (f *Frame) Valid() bool {
	return f[0] == HeaderByte && IsEndByte(f[endOffset])
}

// WriteTo implements io.WriterTo.
func (f *Frame) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(f[:])
	return int64(n), err
}
