// Package ddp parses and validates Distributed Display Protocol packets.
// The original firmware's own DDP data-packet handler is a stub (a
// verified packet is accepted and then dropped with a "// TODO"); this
// port preserves that boundary explicitly instead of silently discarding
// the payload - Dispatch always returns ErrNotWired for an otherwise-valid
// data packet so a caller can log/count it distinctly from a parse
// failure.
package ddp

import "errors"

// ErrNotWired is returned by Dispatch for a structurally valid DDP data
// packet: parsing and verification succeeded, but no pixel destination is
// wired to DDP ingress.
var ErrNotWired = errors.New("ddp: valid packet has no wired destination")

// ErrInvalid is returned for a packet that fails header/length validation.
var ErrInvalid = errors.New("ddp: invalid packet")

const (
	flagTimecode = 0x10
	flagQuery    = 0x02
)

// PacketType classifies a DDP packet after header validation.
type PacketType int

const (
	PacketInvalid PacketType = iota
	PacketData
	PacketQuery
)

// MaybeValid validates buf's DDP header and reports its packet type.
func MaybeValid(buf []byte) PacketType {
	if len(buf) < 10 {
		return PacketInvalid
	}
	if buf[0]>>6 != 1 {
		return PacketInvalid
	}
	timecode := buf[0]&flagTimecode != 0
	dataLen := int(buf[8])<<8 | int(buf[9])
	want := len(buf) - 10
	if timecode {
		want -= 4
	}
	if dataLen != want {
		return PacketInvalid
	}
	if buf[0]&flagQuery != 0 {
		return PacketQuery
	}
	return PacketData
}

// Dispatch validates buf. It returns ErrInvalid if the header doesn't
// parse, nil, nil for a query frame, and ErrNotWired for a data frame,
// since nothing in this topology consumes DDP pixel data; no payload is
// ever returned.
func Dispatch(buf []byte) ([]byte, error) {
	switch MaybeValid(buf) {
	case PacketInvalid:
		return nil, ErrInvalid
	case PacketQuery:
		return nil, nil
	default:
		return nil, ErrNotWired
	}
}
