// Package analog drives the RGBWWW PWM terminals: it holds each terminal's
// current 5-component color (R, G, B, WW, WHW), applies gamut correction
// and a PWM headroom limit, and hands pulse widths to the injected PWM
// setter.
package analog

import (
	"sync"

	"github.com/tinic/lightkraken/internal/colorspace"
)

// TerminalCount is the number of independent RGBWWW analog outputs.
const TerminalCount = 2

// ComponentCount is the number of PWM channels per terminal (R, G, B, WW, WHW).
const ComponentCount = 5

// RGBWWW is a 5-tuple analog color: red, green, blue, warm-white, cool-white.
type RGBWWW [ComponentCount]uint16

// PulseSetter writes a 16-bit PWM pulse width to a hardware channel index.
type PulseSetter func(channel int, pulse uint16)

// Terminal is one analog output's live state.
type Terminal struct {
	mu        sync.Mutex
	color     RGBWWW
	pwmLimit  float64
	converter *colorspace.Converter
	setPulse  PulseSetter
}

// Driver owns every analog terminal.
type Driver struct {
	terminals [TerminalCount]*Terminal
}

// NewDriver builds a Driver with every terminal defaulted to full PWM
// headroom and the sRGB working space.
func NewDriver(setPulse PulseSetter) *Driver {
	d := &Driver{}
	for i := range d.terminals {
		base := i * ComponentCount
		d.terminals[i] = &Terminal{
			pwmLimit:  1.0,
			converter: colorspace.NewConverter(),
			setPulse: func(channel int, pulse uint16) {
				setPulse(base+channel, pulse)
			},
		}
	}
	return d
}

// Terminal returns the terminal at index, wrapping out-of-range indices
// the same way the firmware's modulo-indexed array access does.
func (d *Driver) Terminal(index int) *Terminal {
	return d.terminals[index%TerminalCount]
}

// SetRGBWW stores a new target color for this terminal. It takes effect on
// the next Sync call, matching the set/sync split of the original driver
// (color changes batch until a sync pulse, so multiple channel writes from
// one universe update land on the same PWM cycle).
func (t *Terminal) SetRGBWW(c RGBWWW) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.color = c
}

// SRGBWWCIE returns the last color set, as stored (sRGB-encoded, pre-gamut
// correction) for readback via the HTTP surface.
func (t *Terminal) SRGBWWCIE() RGBWWW {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.color
}

// Snapshot returns the terminal's current color and PWM limit as a
// JSON-friendly map, for the read-only HTTP debugging endpoint.
func (t *Terminal) Snapshot() map[string]interface{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return map[string]interface{}{
		"color":     t.color,
		"pwm_limit": t.pwmLimit,
	}
}

// SetRGBColorSpace switches the gamut-correction working space.
func (t *Terminal) SetRGBColorSpace(m colorspace.Matrix) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.converter.SetMatrix(m)
}

// SetPWMLimit clamps the fraction of full PWM range this terminal may
// reach, e.g. to stay under a power-supply budget.
func (t *Terminal) SetPWMLimit(limit float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if limit < 0 {
		limit = 0
	}
	if limit > 1 {
		limit = 1
	}
	t.pwmLimit = limit
}

// Sync converts the stored color through gamut correction and the PWM
// limit, then drives every channel's pulse width through the injected
// setter. Channels 0-2 (RGB) go through the converter; WW/WHW pass
// through linearly since they have no colorimetric meaning.
func (t *Terminal) Sync() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.setPulse == nil {
		return
	}

	r, g, b := uint8(t.color[0]>>8), uint8(t.color[1]>>8), uint8(t.color[2]>>8)
	lr, lg, lb := t.converter.SRGB8ToLEDPWM(r, g, b, 65535)

	pulses := [ComponentCount]uint16{
		uint16(float64(lr) * t.pwmLimit),
		uint16(float64(lg) * t.pwmLimit),
		uint16(float64(lb) * t.pwmLimit),
		uint16(float64(t.color[3]) * t.pwmLimit),
		uint16(float64(t.color[4]) * t.pwmLimit),
	}
	for ch, p := range pulses {
		t.setPulse(ch, p)
	}
}
