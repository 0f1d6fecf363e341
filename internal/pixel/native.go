// Package pixel implements the strip engine: accepting universe payloads in
// whatever layout a DMX512 slot carries, converting them to a chip's native
// pixel representation, and encoding that into the wire format the chip's
// line protocol expects (NRZ bit-expanded, clocked, or Manchester).
package pixel

import "github.com/tinic/lightkraken/internal/topology"

// NativeType is the in-memory pixel representation a chip encoder consumes.
type NativeType int

const (
	NativeRGB8 NativeType = iota
	NativeRGBW8
	NativeRGB16
)

// DMXMaxLen is the number of slots in one DMX512 universe.
const DMXMaxLen = 512

// BytesMaxLen is the largest component buffer a strip can hold: one
// universe slot per mapped universe.
const BytesMaxLen = DMXMaxLen * topology.UniverseSlots

// nativeTypeFor maps a chip family to the native pixel layout its encoder
// operates on.
func nativeTypeFor(t topology.StripOutputType) NativeType {
	switch t {
	case topology.HD108:
		return NativeRGB16
	default:
		return NativeRGB8
	}
}

// reorderTable maps wire position -> native component index, e.g. WS2812's
// default GRB wire order reads native RGB as {1,0,2}.
var reorderTable = map[topology.StripOutputType][4]int{
	topology.WS2812:  {1, 0, 2, 3},
	topology.SK6812:  {1, 0, 2, 3},
	topology.TM1804:  {1, 0, 2, 3},
	topology.UCS1904: {1, 0, 2, 3},
	topology.GS8202:  {1, 0, 2, 3},
	topology.APA102:  {2, 1, 0, 3},
	topology.APA107:  {2, 1, 0, 3},
	topology.P9813:   {1, 0, 2, 3},
	topology.SK9822:  {1, 0, 2, 3},
	topology.HDS107S: {1, 0, 2, 3},
	topology.LPD8806: {2, 0, 1, 3},
	topology.TLS3001: {0, 1, 2, 3},
	topology.TM1829:  {1, 0, 2, 3},
	topology.WS2801:  {1, 0, 2, 3},
	topology.HD108:   {0, 1, 2, 3},
}

// Reorder returns a, b, c permuted from native (r, g, b) order into the
// chip's wire order.
func Reorder(t topology.StripOutputType, r, g, b uint16) (a, b2, c uint16) {
	order, ok := reorderTable[t]
	if !ok {
		return r, g, b
	}
	vals := [4]uint16{r, g, b, 0}
	return vals[order[0]], vals[order[1]], vals[order[2]]
}

// CollapseRGBW reduces an RGBW quad to RGB by additively folding the white
// channel into each color component, clamped to the component's max value.
func CollapseRGBW(r, g, b, w uint16, max uint16) (cr, cg, cb uint16) {
	clamp := func(v uint32) uint16 {
		if v > uint32(max) {
			return max
		}
		return uint16(v)
	}
	cr = clamp(uint32(r) + uint32(w))
	cg = clamp(uint32(g) + uint32(w))
	cb = clamp(uint32(b) + uint32(w))
	return
}

// ExpandRGBToRGBW splits an RGB triple into an RGBW quad by extracting the
// shared minimum as the white channel. The strip engine stores and encodes
// RGB only and does not call it.
func ExpandRGBToRGBW(r, g, b uint16) (or, og, ob, ow uint16) {
	w := r
	if g < w {
		w = g
	}
	if b < w {
		w = b
	}
	return r - w, g - w, b - w, w
}
