package analog

import "testing"

func TestTerminalSetAndReadback(t *testing.T) {
	d := NewDriver(func(channel int, pulse uint16) {})
	term := d.Terminal(0)
	c := RGBWWW{100, 200, 300, 400, 500}
	term.SetRGBWW(c)
	if got := term.SRGBWWCIE(); got != c {
		t.Errorf("expected readback %v, got %v", c, got)
	}
}

func TestSyncRoutesChannelsWithTerminalOffset(t *testing.T) {
	var seen []int
	d := NewDriver(func(channel int, pulse uint16) {
		seen = append(seen, channel)
	})
	d.Terminal(0).SetRGBWW(RGBWWW{1, 1, 1, 1, 1})
	d.Terminal(0).Sync()
	d.Terminal(1).SetRGBWW(RGBWWW{1, 1, 1, 1, 1})
	d.Terminal(1).Sync()

	if len(seen) != 10 {
		t.Fatalf("expected 10 channel writes total, got %d", len(seen))
	}
	for i := 0; i < 5; i++ {
		if seen[i] != i {
			t.Errorf("terminal 0 channel %d: expected %d, got %d", i, i, seen[i])
		}
	}
	for i := 0; i < 5; i++ {
		if seen[5+i] != 5+i {
			t.Errorf("terminal 1 channel %d: expected %d, got %d", i, 5+i, seen[5+i])
		}
	}
}

func TestPWMLimitClamps(t *testing.T) {
	term := NewDriver(func(channel int, pulse uint16) {}).Terminal(0)
	term.SetPWMLimit(5.0)
	term.SetPWMLimit(-5.0)
	// no panic, clamped internally; verify via Sync not overflowing
	term.SetRGBWW(RGBWWW{65535, 65535, 65535, 65535, 65535})
	term.Sync()
}
