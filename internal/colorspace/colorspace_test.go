package colorspace

import "testing"

func TestFixWS2816PassThroughAboveExtent(t *testing.T) {
	if got := FixWS2816(1000); got != 1000 {
		t.Errorf("expected pass-through above extent, got %d", got)
	}
}

func TestFixWS2816RemapsLowValues(t *testing.T) {
	if got := FixWS2816(0); got != 0 {
		t.Errorf("expected 0 -> 0, got %d", got)
	}
	if got := FixWS2816(437); got == 437 {
		t.Error("expected value within extent to be remapped, not passed through")
	}
}

func TestHD108LookupMonotonic(t *testing.T) {
	for ch := 0; ch < 3; ch++ {
		prev := uint16(0)
		for v := 0; v < 256; v++ {
			cur := HD108Lookup(ch, uint8(v))
			if v > 0 && cur < prev {
				t.Fatalf("channel %d not monotonic at %d: %d < %d", ch, v, cur, prev)
			}
			prev = cur
		}
	}
}

func TestSRGB8ToLEDPWMBlackAndWhite(t *testing.T) {
	c := NewConverter()

	lr, lg, lb := c.SRGB8ToLEDPWM(0, 0, 0, 255)
	if lr != 0 || lg != 0 || lb != 0 {
		t.Errorf("expected black to map to 0,0,0, got %d,%d,%d", lr, lg, lb)
	}

	lr, lg, lb = c.SRGB8ToLEDPWM(255, 255, 255, 255)
	if lr < 250 || lg < 250 || lb < 250 {
		t.Errorf("expected white to map near max, got %d,%d,%d", lr, lg, lb)
	}
}

func TestSRGB8ToLEDPWMScalesToPWMMax(t *testing.T) {
	c := NewConverter()
	_, _, lb := c.SRGB8ToLEDPWM(0, 0, 255, 65535)
	if lb < 60000 {
		t.Errorf("expected blue scaled to 16-bit PWM range, got %d", lb)
	}
}

func TestSetMatrixChangesOutput(t *testing.T) {
	c := NewConverter()
	lr1, _, _ := c.SRGB8ToLEDPWM(200, 50, 50, 255)
	c.SetMatrix(MatrixDCIP3)
	lr2, _, _ := c.SRGB8ToLEDPWM(200, 50, 50, 255)
	if lr1 == lr2 {
		t.Error("expected switching working space to change the converted value")
	}
}
