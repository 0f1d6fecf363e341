package pixel

import (
	"testing"

	"github.com/tinic/lightkraken/internal/topology"
)

func TestReorderWS2812IsGRB(t *testing.T) {
	r, g, b := Reorder(topology.WS2812, 10, 20, 30)
	if r != 20 || g != 10 || b != 30 {
		t.Errorf("expected GRB reorder [20,10,30], got [%d,%d,%d]", r, g, b)
	}
}

func TestReorderByChipFamily(t *testing.T) {
	// native (r, g, b) = (10, 20, 30); want is the wire-order triple each
	// chip family's line protocol expects it permuted into.
	cases := []struct {
		name string
		ty   topology.StripOutputType
		want [3]uint16
	}{
		{"APA102 is BGR", topology.APA102, [3]uint16{30, 20, 10}},
		{"APA107 is BGR", topology.APA107, [3]uint16{30, 20, 10}},
		{"P9813 is GRB", topology.P9813, [3]uint16{20, 10, 30}},
		{"SK9822 is GRB", topology.SK9822, [3]uint16{20, 10, 30}},
		{"HDS107S is GRB", topology.HDS107S, [3]uint16{20, 10, 30}},
		{"LPD8806 is BRG", topology.LPD8806, [3]uint16{30, 10, 20}},
		{"WS2801 is GRB", topology.WS2801, [3]uint16{20, 10, 30}},
		{"HD108 is RGB", topology.HD108, [3]uint16{10, 20, 30}},
		{"TLS3001 is RGB", topology.TLS3001, [3]uint16{10, 20, 30}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			a, b, cc := Reorder(c.ty, 10, 20, 30)
			got := [3]uint16{a, b, cc}
			if got != c.want {
				t.Errorf("%v: expected %v, got %v", c.ty, c.want, got)
			}
		})
	}
}

func TestCollapseRGBWClamps(t *testing.T) {
	r, g, b := CollapseRGBW(200, 200, 200, 100, 255)
	if r != 255 || g != 255 || b != 255 {
		t.Errorf("expected clamp to 255,255,255, got %d,%d,%d", r, g, b)
	}
}

func TestExpandRGBToRGBWExtractsSharedMinimum(t *testing.T) {
	r, g, b, w := ExpandRGBToRGBW(100, 150, 80)
	if w != 80 {
		t.Errorf("expected white channel 80, got %d", w)
	}
	if r != 20 || g != 70 || b != 0 {
		t.Errorf("expected [20,70,0], got [%d,%d,%d]", r, g, b)
	}
}

func TestRegistryBuildsKnownTypes(t *testing.T) {
	reg := NewRegistry()
	for _, ty := range []topology.StripOutputType{
		topology.WS2812, topology.APA102, topology.WS2801, topology.LPD8806,
		topology.TLS3001, topology.HD108, topology.P9813,
	} {
		enc, err := reg.New(ty)
		if err != nil {
			t.Errorf("expected encoder for %v, got error: %v", ty, err)
		}
		if enc == nil {
			t.Errorf("expected non-nil encoder for %v", ty)
		}
	}
}

func TestRegistryUnknownType(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.New(topology.StripOutputType(999)); err == nil {
		t.Error("expected error for unregistered output type")
	}
}

func TestNRZEncoderProducesFourBytesPerComponent(t *testing.T) {
	enc := newNRZEncoder(ws2812Timing)
	out := enc.Encode(nil, []uint16{0x00, 0xFF, 0x80})
	if len(out) != 12 {
		t.Errorf("expected 12 bytes (4 per component), got %d", len(out))
	}
}

func TestNRZEncoderNeedsNoClock(t *testing.T) {
	enc := newNRZEncoder(ws2812Timing)
	if enc.NeedsClock() {
		t.Error("WS2812-family should not need a clock")
	}
}

func TestClockedEncoderNeedsClock(t *testing.T) {
	enc := newClockedEncoder(false)
	if !enc.NeedsClock() {
		t.Error("APA102-family should need a clock")
	}
	if len(enc.Head()) != 4 {
		t.Errorf("expected 4-byte start frame, got %d", len(enc.Head()))
	}
}

func TestHD108EncoderUsesSixteenBitComponents(t *testing.T) {
	enc := newClockedEncoder(true)
	out := enc.Encode(nil, []uint16{0x1234, 0x5678, 0x9ABC})
	// 2-byte header + 3 * 2-byte components = 8 bytes
	if len(out) != 8 {
		t.Errorf("expected 8 bytes, got %d", len(out))
	}
}

func TestStripSetUniverseDataAndPrepare(t *testing.T) {
	cfg := topology.StripConfig{
		OutputType: topology.WS2812,
		InputType:  topology.InRGB8,
		CompLimit:  1.0,
		GlobIllum:  1.0,
		LEDCount:   2,
	}
	reg := NewRegistry()
	s, err := NewStrip(cfg, reg)
	if err != nil {
		t.Fatalf("NewStrip: %v", err)
	}

	data := []byte{10, 20, 30, 40, 50, 60}
	s.SetUniverseData(0, data, topology.InRGB8)

	if !s.IsUniverseActive(0) {
		t.Error("expected universe 0 active after SetUniverseData")
	}

	out := s.Prepare()
	// 2 pixels * 3 components * 4 bytes/component (NRZ expansion) + 64 latch tail
	if len(out) != 2*3*4+64 {
		t.Errorf("expected %d bytes, got %d", 2*3*4+64, len(out))
	}
}

func TestStripSetUniverseDataIgnoresEmptyPayload(t *testing.T) {
	cfg := topology.StripConfig{OutputType: topology.WS2812, InputType: topology.InRGB8, LEDCount: 2, CompLimit: 1, GlobIllum: 1}
	reg := NewRegistry()
	s, _ := NewStrip(cfg, reg)
	s.SetUniverseData(0, nil, topology.InRGB8)
	if s.IsUniverseActive(0) {
		t.Error("expected empty payload to be a silent no-op")
	}
}

func TestStripTransferRejectsWhenBusy(t *testing.T) {
	cfg := topology.StripConfig{OutputType: topology.WS2812, InputType: topology.InRGB8, LEDCount: 1, CompLimit: 1, GlobIllum: 1}
	reg := NewRegistry()
	s, _ := NewStrip(cfg, reg)
	s.DMABusy = func() bool { return true }
	s.DMATransfer = func(data []byte) error { return nil }

	if err := s.Transfer(); err == nil {
		t.Error("expected Transfer to reject while transport busy")
	}
}
