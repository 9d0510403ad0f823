// Package sbus provides SBUS frame encoding and stream decoding.
package sbus

// SBUS is produced by RC receivers over an inverted UART at 100000 baud
// with 8 data bits, even parity and 2 stop bits. Each frame is 25 bytes:
//
//	byte 0       header 0x0F
//	bytes 1-22   16 channels, 11 bits each, packed LSB first
//	byte 23      flags: bit0 ch17, bit1 ch18, bit2 frame lost, bit3 failsafe
//	byte 24      end marker, one of 0x00 0x04 0x14 0x24 0x34
//
// There is no checksum. A frame is recognized only by its header and end
// marker, so the Decoder resynchronizes byte by byte after noise or when
// attached to a stream in the middle of a frame.
//
// Producer: RC receiver (or a Bus writing frames)
// Consumer: flight controller, bridge (Bus reading frames)
