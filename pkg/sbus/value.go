package sbus

import "fmt"

// Frame layout constants.
const (
	FrameSize   = 25
	NumChannels = 16
	HeaderByte  = 0x0F
	// EndByte is the end marker written by the encoder.
	EndByte = 0x00

	ChannelMask uint16 = 0x07FF
	channelBits        = 11

	payloadOffset = 1
	payloadSize   = NumChannels * channelBits / 8
	flagsOffset   = payloadOffset + payloadSize
	endOffset     = FrameSize - 1
)

// Flag bits in byte 23.
const (
	FlagDigital1  byte = 0x01
	FlagDigital2  byte = 0x02
	FlagFrameLost byte = 0x04
	FlagFailSafe  byte = 0x08
)

// Channel value range commonly produced by receivers.
const (
	ChannelMin    uint16 = 172
	ChannelCenter uint16 = 992
	ChannelMax    uint16 = 1811
)

// IsEndByte reports whether b is an accepted end marker. Besides 0x00,
// some Futaba receivers cycle the end byte through 0x04, 0x14, 0x24 and 0x34.
func IsEndByte(b byte) bool {
	switch b {
	case 0x00, 0x04, 0x14, 0x24, 0x34:
		return true
	}
	return false
}

// Value is the decoded content of a frame.
type Value struct {
	Channels  [NumChannels]uint16
	Digital1  bool // channel 17
	Digital2  bool // channel 18
	FrameLost bool
	FailSafe  bool
}

// CenteredValue has every channel at ChannelCenter.
func CenteredValue() Value {
	var v Value
	for i := range v.Channels {
		v.Channels[i] = ChannelCenter
	}
	return v
}

// Flags packs the boolean fields into the flags byte layout.
func (v *Value) Flags() byte {
	var f byte
	if v.Digital1 {
		f |= FlagDigital1
	}
	if v.Digital2 {
		f |= FlagDigital2
	}
	if v.FrameLost {
		f |= FlagFrameLost
	}
	if v.FailSafe {
		f |= FlagFailSafe
	}
	return f
}

// SetFlags unpacks the flags byte.
func (v *Value) SetFlags(f byte) {
	v.Digital1 = f&FlagDigital1 != 0
	v.Digital2 = f&FlagDigital2 != 0
	v.FrameLost = f&FlagFrameLost != 0
	v.FailSafe = f&FlagFailSafe != 0
}

// String implements fmt.Stringer.
func (v Value) String() string {
	return fmt.Sprintf("%v d1=%t d2=%t lost=%t failsafe=%t",
		v.Channels, v.Digital1, v.Digital2, v.FrameLost, v.FailSafe)
}
