package systick

import (
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tinic/lightkraken/internal/analog"
	"github.com/tinic/lightkraken/internal/control"
	"github.com/tinic/lightkraken/internal/pixel"
	"github.com/tinic/lightkraken/internal/topology"
)

func newTestControl(t *testing.T) *control.Control {
	t.Helper()
	model := topology.NewModel()
	registry := pixel.NewRegistry()
	var strips [topology.StripChannels]*pixel.Strip
	for i := range strips {
		cfg := *model.StripConfig(i)
		strip, err := pixel.NewStrip(cfg, registry)
		if err != nil {
			t.Fatalf("NewStrip: %v", err)
		}
		strips[i] = strip
	}
	driver := analog.NewDriver(func(int, uint16) {})
	return control.New(model, strips, driver)
}

func TestScheduleColorFiresAfterEnoughTicksWithoutData(t *testing.T) {
	ctrl := newTestControl(t)
	s := New(ctrl, time.Hour, nil, nil, nil, nil)
	atomic.StoreInt32(&s.started, 1)

	for i := 0; i < ColorScheduleTicks; i++ {
		s.tick()
	}
	if ctrl.ColorScheduled() != true {
		t.Fatal("expected color schedule to be set once data never arrives")
	}
}

func TestScheduleColorDoesNotFireWhenDataReceived(t *testing.T) {
	ctrl := newTestControl(t)
	ctrl.SetDataReceived()
	s := New(ctrl, time.Hour, nil, nil, nil, nil)
	atomic.StoreInt32(&s.started, 1)

	for i := 0; i < ColorScheduleTicks; i++ {
		s.tick()
	}
	if ctrl.ColorScheduled() {
		t.Fatal("expected no color schedule once data has arrived")
	}
}

func TestSchedulePollReplyFiresAfterDelay(t *testing.T) {
	var fired int32
	var gotUniverse uint16
	sendPoll := func(addr *net.UDPAddr, universe uint16) {
		atomic.StoreInt32(&fired, 1)
		gotUniverse = universe
	}
	s := New(nil, time.Hour, sendPoll, nil, nil, nil)
	atomic.StoreInt32(&s.started, 1)

	addr := &net.UDPAddr{IP: net.ParseIP("10.0.0.5"), Port: 6454}
	s.SchedulePollReply(addr, 3, 2)

	s.tick()
	if atomic.LoadInt32(&fired) != 0 {
		t.Fatal("expected no reply before delay elapses")
	}
	s.tick()
	if atomic.LoadInt32(&fired) == 0 {
		t.Fatal("expected reply once delay elapses")
	}
	if gotUniverse != 3 {
		t.Fatalf("expected universe 3, got %d", gotUniverse)
	}
}

func TestSchedulePollReplyDropsWhenSlotsFull(t *testing.T) {
	s := New(nil, time.Hour, func(*net.UDPAddr, uint16) {}, nil, nil, nil)
	addr := &net.UDPAddr{}
	for i := 0; i < pollReplySlots; i++ {
		s.SchedulePollReply(addr, uint16(i), 1000)
	}
	// one more should be dropped silently, not panic or overwrite
	s.SchedulePollReply(addr, 99, 1000)

	found99 := false
	s.mu.Lock()
	for _, slot := range s.pollReply {
		if slot.universe == 99 {
			found99 = true
		}
	}
	s.mu.Unlock()
	if found99 {
		t.Fatal("expected slot table to stay full, dropping the 9th request")
	}
}

func TestScheduleResetFiresAfterCountTicks(t *testing.T) {
	var resetCalled int32
	s := New(nil, time.Hour, nil, nil, func() { atomic.StoreInt32(&resetCalled, 1) }, nil)
	atomic.StoreInt32(&s.started, 1)

	s.ScheduleReset(3)
	for i := 0; i < 2; i++ {
		s.tick()
	}
	if atomic.LoadInt32(&resetCalled) != 0 {
		t.Fatal("expected reset not yet fired")
	}
	s.tick()
	if atomic.LoadInt32(&resetCalled) == 0 {
		t.Fatal("expected reset to fire once countdown reaches zero")
	}
}

func TestSystemTickIncrementsOnEveryTick(t *testing.T) {
	s := New(nil, time.Hour, nil, nil, nil, nil)
	atomic.StoreInt32(&s.started, 1)
	s.tick()
	s.tick()
	if s.SystemTick() != 2 {
		t.Fatalf("expected tick count 2, got %d", s.SystemTick())
	}
}

func TestTickNoOpBeforeStart(t *testing.T) {
	s := New(nil, time.Hour, nil, nil, nil, nil)
	s.tick()
	if s.SystemTick() != 0 {
		t.Fatal("expected tick to no-op before Start sets started")
	}
}
