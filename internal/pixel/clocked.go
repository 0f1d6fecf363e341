package pixel

import "encoding/binary"

// clockedEncoder implements Encoder for the APA102/SK9822/HDS107S family:
// a clocked protocol with a per-pixel global-brightness header byte, a
// 4-byte start frame and an end frame long enough to clock out every
// pixel's latch. The HD108 variant doubles every component and the header
// to 16 bits.
type clockedEncoder struct {
	sixteenBit bool
}

func newClockedEncoder(sixteenBit bool) Encoder {
	return &clockedEncoder{sixteenBit: sixteenBit}
}

func (e *clockedEncoder) Encode(dst []byte, components []uint16) []byte {
	if e.sixteenBit {
		// HD108: 16-bit global header (0xFFFF, full brightness - the
		// pipeline already applies brightness upstream) then 16-bit
		// components.
		var hdr [2]byte
		binary.BigEndian.PutUint16(hdr[:], 0xFFFF)
		dst = append(dst, hdr[:]...)
		for _, v := range components {
			var buf [2]byte
			binary.BigEndian.PutUint16(buf[:], v)
			dst = append(dst, buf[:]...)
		}
		return dst
	}

	// APA102-style: 3 header bits (111) + 5-bit brightness, full here
	// since brightness is applied upstream; components are 8-bit.
	dst = append(dst, 0xFF)
	for _, v := range components {
		dst = append(dst, uint8(v))
	}
	return dst
}

func (e *clockedEncoder) Head() []byte {
	if e.sixteenBit {
		return make([]byte, 8)
	}
	return make([]byte, 4)
}

func (e *clockedEncoder) Tail(pixelCount int) []byte {
	// End-frame clocks: at least pixelCount/2 bits of 0 to finish shifting
	// every pixel through the daisy chain.
	n := (pixelCount + 15) / 16
	if n < 1 {
		n = 1
	}
	if e.sixteenBit {
		n *= 2
	}
	return make([]byte, n)
}

func (e *clockedEncoder) NeedsClock() bool { return true }

// simpleClockedEncoder implements Encoder for WS2801: clocked, no global
// brightness header, no end-frame requirement.
type simpleClockedEncoder struct{}

func newSimpleClockedEncoder() Encoder { return &simpleClockedEncoder{} }

func (e *simpleClockedEncoder) Encode(dst []byte, components []uint16) []byte {
	for _, v := range components {
		dst = append(dst, uint8(v))
	}
	return dst
}

func (e *simpleClockedEncoder) Head() []byte           { return nil }
func (e *simpleClockedEncoder) Tail(pixelCount int) []byte { return nil }
func (e *simpleClockedEncoder) NeedsClock() bool       { return true }

// p9813Encoder implements Encoder for P9813: clocked, per-pixel checksum
// header byte, 4-byte start and end frames.
type p9813Encoder struct{}

func newP9813Encoder() Encoder { return &p9813Encoder{} }

func (e *p9813Encoder) Encode(dst []byte, components []uint16) []byte {
	r, g, b := uint8(0), uint8(0), uint8(0)
	if len(components) >= 3 {
		r, g, b = uint8(components[0]), uint8(components[1]), uint8(components[2])
	}
	checksum := byte(0xC0) |
		((^b & 0xC0) >> 2) |
		((^g & 0xC0) >> 4) |
		((^r & 0xC0) >> 6)
	dst = append(dst, checksum, b, g, r)
	return dst
}

func (e *p9813Encoder) Head() []byte              { return make([]byte, 4) }
func (e *p9813Encoder) Tail(pixelCount int) []byte { return make([]byte, 4) }
func (e *p9813Encoder) NeedsClock() bool          { return true }
