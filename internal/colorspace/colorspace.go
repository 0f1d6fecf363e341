// Package colorspace converts between sRGB-encoded 8-bit component values
// and the linear PWM/LED drive values the pixel pipeline needs, and holds
// the fixed lookup tables a couple of chip families require to hit their
// full dynamic range without banding.
//
// The WS2816 error LUT and HD108 log-response table are precomputed once
// at package init, mirroring the teacher firmware's static initialization
// of its own per-chip tables.
package colorspace

import (
	"fmt"
	"math"
)

// WS2816ErrorExtent is the number of distinct low-end codes the WS2816's
// internal dither needs remapped to avoid visible banding near black.
const WS2816ErrorExtent = 438

var ws2816ErrorLUT [WS2816ErrorExtent]uint16

func init() {
	for c := 0; c < WS2816ErrorExtent; c++ {
		ws2816ErrorLUT[c] = uint16((c * 255) / WS2816ErrorExtent)
	}
}

// FixWS2816 remaps a 16-bit linear value through the WS2816 low-value error
// table when it falls within the table's extent, otherwise passes it
// through unchanged.
func FixWS2816(v uint16) uint16 {
	if int(v) < WS2816ErrorExtent {
		return ws2816ErrorLUT[v]
	}
	return v
}

// hd108Table holds the three per-channel 256-entry curves HD108 chips need:
// R is a straight power curve, G and B are inverse-log curves matching the
// chip's internal current-drive nonlinearity.
var hd108Table [3][256]uint16

func init() {
	const (
		rConst = 1.000
		gConst = 0.760
		bConst = 0.550
	)

	gaConst := math.Exp(-gConst) - 1.0
	gaiConst := 1.0 / gaConst
	gbiConst := -1.0 / gConst

	baConst := math.Exp(-bConst) - 1.0
	baiConst := 1.0 / baConst
	bbiConst := -1.0 / bConst

	for d := 0; d < 256; d++ {
		t := float64(d) / 255.0
		hd108Table[0][d] = uint16(math.Pow(t*rConst, 2.4) * 65535.0)
		hd108Table[1][d] = uint16(math.Pow(math.Log((t+gaiConst)*gaConst)*gbiConst, 2.4) * 65535.0)
		hd108Table[2][d] = uint16(math.Pow(math.Log((t+baiConst)*baConst)*bbiConst, 2.4) * 65535.0)
	}
}

// HD108Lookup returns the 16-bit drive value for channel (0=R,1=G,2=B) and
// an 8-bit input component.
func HD108Lookup(channel int, v uint8) uint16 {
	return hd108Table[channel][v]
}

// Matrix is a 3x3 RGB-to-XYZ matrix for a named working space.
type Matrix [3][3]float64

// Named working spaces available to the converter, selectable per strip via
// the topology's colorspace setting.
var (
	MatrixSRGB = Matrix{
		{0.4124564, 0.3575761, 0.1804375},
		{0.2126729, 0.7151522, 0.0721750},
		{0.0193339, 0.1191920, 0.9503041},
	}
	MatrixAdobeRGB = Matrix{
		{0.5767309, 0.1855540, 0.1881852},
		{0.2973769, 0.6273491, 0.0752741},
		{0.0270343, 0.0706872, 0.9911085},
	}
	MatrixDCIP3 = Matrix{
		{0.4451698, 0.2771344, 0.1722827},
		{0.2094917, 0.7215953, 0.0689131},
		{0.0000000, 0.0470606, 0.9073554},
	}
)

// MatrixByName resolves one of the named working spaces by the string a
// settings PUT or HTTP colorspace request would carry.
func MatrixByName(name string) (Matrix, error) {
	switch name {
	case "sRGB", "":
		return MatrixSRGB, nil
	case "AdobeRGB":
		return MatrixAdobeRGB, nil
	case "DCI-P3":
		return MatrixDCIP3, nil
	default:
		return Matrix{}, fmt.Errorf("colorspace: unknown working space %q", name)
	}
}

// Converter maps sRGB-encoded 8-bit components through a gamma decode and
// an optional working-space matrix into linear drive values scaled to the
// chip's PWM resolution (255 or 65535).
type Converter struct {
	matrix Matrix
}

// NewConverter returns a Converter defaulted to the sRGB working space.
func NewConverter() *Converter {
	return &Converter{matrix: MatrixSRGB}
}

// SetMatrix switches the working space used for gamut correction.
func (c *Converter) SetMatrix(m Matrix) {
	c.matrix = m
}

func srgbToLinear(v float64) float64 {
	if v <= 0.04045 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}

// xyzToSRGB is the standard linear-XYZ -> linear-sRGB primaries matrix,
// used to bring a non-sRGB working space (AdobeRGB/DCI-P3) back onto the
// LED's native sRGB-ish primaries after the working-space matrix projects
// into XYZ.
var xyzToSRGB = Matrix{
	{3.2404542, -1.5371385, -0.4985314},
	{-0.9692660, 1.8760108, 0.0415560},
	{0.0556434, -0.2040259, 1.0572252},
}

// SRGB8ToLEDPWM decodes 8-bit sRGB components to linear drive values scaled
// to [0, pwmMax]. pwmMax is typically 255 for 8-bit chips or 65535 for
// 16-bit chips such as HD108/WS2816.
func (c *Converter) SRGB8ToLEDPWM(sr, sg, sb uint8, pwmMax uint32) (lr, lg, lb uint32) {
	r := srgbToLinear(float64(sr) / 255.0)
	g := srgbToLinear(float64(sg) / 255.0)
	b := srgbToLinear(float64(sb) / 255.0)

	x := c.matrix[0][0]*r + c.matrix[0][1]*g + c.matrix[0][2]*b
	y := c.matrix[1][0]*r + c.matrix[1][1]*g + c.matrix[1][2]*b
	z := c.matrix[2][0]*r + c.matrix[2][1]*g + c.matrix[2][2]*b

	dr := xyzToSRGB[0][0]*x + xyzToSRGB[0][1]*y + xyzToSRGB[0][2]*z
	dg := xyzToSRGB[1][0]*x + xyzToSRGB[1][1]*y + xyzToSRGB[1][2]*z
	db := xyzToSRGB[2][0]*x + xyzToSRGB[2][1]*y + xyzToSRGB[2][2]*z

	scale := float64(pwmMax)
	lr = uint32(clamp01(dr) * scale)
	lg = uint32(clamp01(dg) * scale)
	lb = uint32(clamp01(db) * scale)
	return
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
