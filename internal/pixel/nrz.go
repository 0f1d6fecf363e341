package pixel

import "encoding/binary"

// nrzTiming names the SPI-over-GPIO oversample ratio used to bit-bang an
// NRZ one-wire protocol: each output bit is 4 SPI bits wide, sent as one of
// two duty-cycle patterns (more 1s = logical 1, more 0s = logical 0) without
// a dedicated clock line.
type nrzTiming struct{}

var ws2812Timing = nrzTiming{}

// nrzLUT expands every possible input byte into the 4-byte SPI pattern that
// bit-bangs it out as WS2812-family NRZ: two bits of input per output byte,
// each represented as a 0b1000 ("0") or 0b1100 ("1") nibble pair.
var nrzLUT [256]uint32

func init() {
	for c := uint32(0); c < 256; c++ {
		nrzLUT[c] = 0x88888888 |
			(((c >> 4) | (c << 6) | (c << 16) | (c << 26)) & 0x04040404) |
			(((c >> 1) | (c << 9) | (c << 19) | (c << 29)) & 0x40404040)
	}
}

// nrzEncoder implements Encoder for the one-wire WS2812-family chips: no
// clock, 3 (or 4 for RGBW) components per pixel, each byte expanded 4x.
type nrzEncoder struct {
	timing nrzTiming
}

func newNRZEncoder(t nrzTiming) Encoder {
	return &nrzEncoder{timing: t}
}

func (e *nrzEncoder) Encode(dst []byte, components []uint16) []byte {
	for _, v := range components {
		word := nrzLUT[uint8(v)]
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], word)
		dst = append(dst, buf[:]...)
	}
	return dst
}

// Head is empty: WS2812-family chips latch on a minimum low period, not a
// framing preamble.
func (e *nrzEncoder) Head() []byte { return nil }

// Tail returns the reset/latch low period appended once per frame, long
// enough to cover every pixel's final bit regardless of strip length.
func (e *nrzEncoder) Tail(pixelCount int) []byte {
	const latchBytes = 64
	return make([]byte, latchBytes)
}

func (e *nrzEncoder) NeedsClock() bool { return false }
