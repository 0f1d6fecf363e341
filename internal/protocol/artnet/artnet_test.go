package artnet

import (
	"testing"

	"github.com/tinic/lightkraken/internal/analog"
	"github.com/tinic/lightkraken/internal/control"
	"github.com/tinic/lightkraken/internal/pixel"
	"github.com/tinic/lightkraken/internal/syncwatch"
	"github.com/tinic/lightkraken/internal/topology"
)

func newTestControl(t *testing.T) *control.Control {
	t.Helper()
	model := topology.NewModel()
	reg := pixel.NewRegistry()
	var strips [topology.StripChannels]*pixel.Strip
	for i := range strips {
		s, err := pixel.NewStrip(*model.StripConfig(i), reg)
		if err != nil {
			t.Fatalf("NewStrip: %v", err)
		}
		strips[i] = s
	}
	driver := analog.NewDriver(func(channel int, pulse uint16) {})
	return control.New(model, strips, driver)
}

func TestMaybeValidRejectsBadSignature(t *testing.T) {
	buf := make([]byte, 20)
	copy(buf, "NotArtNet")
	if _, ok := maybeValid(buf); ok {
		t.Error("expected bad signature to be rejected")
	}
}

func TestMaybeValidRejectsShortPacket(t *testing.T) {
	if _, ok := maybeValid([]byte("Art-Net\x00")); ok {
		t.Error("expected short packet to be rejected")
	}
}

func TestMaybeValidAcceptsOpOutput(t *testing.T) {
	buf := make([]byte, 20)
	copy(buf, signature)
	buf[8], buf[9] = 0x00, 0x50 // OpOutput little-endian
	op, ok := maybeValid(buf)
	if !ok || op != OpOutput {
		t.Errorf("expected OpOutput accepted, got op=%v ok=%v", op, ok)
	}
}

func TestHandlePacketDispatchesOutputToControl(t *testing.T) {
	ctrl := newTestControl(t)
	wd := syncwatch.New()
	s := NewServer(ctrl, wd)

	buf := make([]byte, 18+3)
	copy(buf, signature)
	buf[8], buf[9] = 0x00, 0x50 // OpOutput
	buf[14], buf[15] = 0x00, 0x00 // universe 0
	buf[16], buf[17] = 0x00, 0x03 // length 3 (big-endian)
	buf[18], buf[19], buf[20] = 10, 20, 30

	s.HandlePacket(buf, nil)

	if !ctrl.DataReceived() {
		t.Error("expected DataReceived after OpOutput dispatch")
	}
}

func TestHandlePacketSyncFeedsWatchdog(t *testing.T) {
	ctrl := newTestControl(t)
	wd := syncwatch.New()
	s := NewServer(ctrl, wd)

	buf := make([]byte, 14)
	copy(buf, signature)
	buf[8], buf[9] = 0x00, 0x52 // OpSync

	s.HandlePacket(buf, nil)

	if wd.Starved() {
		t.Error("expected watchdog fed after OpSync")
	}
}

func TestDeriveMACIsDeterministic(t *testing.T) {
	id := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	m1 := DeriveMAC(id)
	m2 := DeriveMAC(id)
	if m1 != m2 {
		t.Error("expected DeriveMAC to be deterministic for the same input")
	}
	if m1[0]&0x02 == 0 {
		t.Error("expected locally-administered bit set")
	}
}
