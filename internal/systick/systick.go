// Package systick drives the millisecond-granularity housekeeping that the
// firmware's hardware SysTick interrupt used to run: startup-pattern color
// scheduling when no live data has arrived, sACN discovery cadence, queued
// Art-Net poll-reply delays and a delayed self-reset countdown.
package systick

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/tinic/lightkraken/internal/control"
)

// TickInterval is the firmware's SysTick period, 1kHz.
const TickInterval = time.Millisecond

// ColorScheduleTicks is how many ticks pass between scheduling the startup
// color pattern while no universe data has arrived, mirroring the
// original's "& 0x00FF" tick mask.
const ColorScheduleTicks = 256

const pollReplySlots = 8

type pollReplySlot struct {
	addr     *net.UDPAddr
	universe uint16
	delay    int32
}

// PollReplyFunc sends a deferred Art-Net poll reply to addr for universe.
type PollReplyFunc func(addr *net.UDPAddr, universe uint16)

// DiscoveryFunc triggers an sACN universe discovery broadcast.
type DiscoveryFunc func()

// ResetFunc is called once a scheduled reset countdown reaches zero.
type ResetFunc func()

// Systick runs the 1kHz tick loop plus a cron-driven coarse job for sACN
// discovery, whose interval is independently configurable and too coarse
// to express as a tick mask.
type Systick struct {
	mu        sync.Mutex
	pollReply [pollReplySlots]pollReplySlot

	ctrl      *control.Control
	sendPoll  PollReplyFunc
	discover  DiscoveryFunc
	reset     ResetFunc
	log       *zap.Logger

	cron *cron.Cron

	started    int32
	resetCount int32
	systemTick uint64

	cancel context.CancelFunc
}

// New builds a Systick bound to ctrl. discoveryInterval is the sACN
// discovery cadence (cmd/lightkraken passes sacn.DiscoveryInterval; a
// non-positive value falls back to 10s); sendPoll and discover and reset wire the
// protocol/system side effects the original dispatched directly.
func New(ctrl *control.Control, discoveryInterval time.Duration, sendPoll PollReplyFunc, discover DiscoveryFunc, reset ResetFunc, log *zap.Logger) *Systick {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Systick{
		ctrl:     ctrl,
		sendPoll: sendPoll,
		discover: discover,
		reset:    reset,
		log:      log,
		cron:     cron.New(cron.WithSeconds()),
	}
	spec := everySpec(discoveryInterval)
	if _, err := s.cron.AddFunc(spec, s.runDiscovery); err != nil {
		s.log.Warn("systick: failed to schedule sACN discovery", zap.Error(err))
	}
	return s
}

func everySpec(d time.Duration) string {
	if d <= 0 {
		d = 10 * time.Second
	}
	return "@every " + d.String()
}

func (s *Systick) runDiscovery() {
	if s.discover != nil {
		s.discover()
	}
}

// Start begins the tick loop and the cron scheduler. Cancel ctx to stop.
func (s *Systick) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	atomic.StoreInt32(&s.started, 1)
	s.cron.Start()

	go func() {
		ticker := time.NewTicker(TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

// Stop halts the tick loop and the cron scheduler.
func (s *Systick) Stop() {
	atomic.StoreInt32(&s.started, 0)
	if s.cancel != nil {
		s.cancel()
	}
	<-s.cron.Stop().Done()
}

func (s *Systick) tick() {
	if atomic.LoadInt32(&s.started) == 0 {
		return
	}

	n := atomic.AddUint64(&s.systemTick, 1)
	if n%ColorScheduleTicks == 0 && s.ctrl != nil && !s.ctrl.DataReceived() {
		s.ctrl.ScheduleColor()
	}

	s.drainPollReplies()
	s.checkReset()
}

// SchedulePollReply queues a deferred poll reply in the first free slot of
// an 8-slot table: if all slots are occupied the request is dropped,
// matching firmware behavior under poll storms.
func (s *Systick) SchedulePollReply(addr *net.UDPAddr, universe uint16, delayTicks int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.pollReply {
		if s.pollReply[i].delay <= 0 {
			s.pollReply[i] = pollReplySlot{addr: addr, universe: universe, delay: delayTicks}
			return
		}
	}
}

func (s *Systick) drainPollReplies() {
	s.mu.Lock()
	var fire []pollReplySlot
	for i := range s.pollReply {
		if s.pollReply[i].delay <= 0 {
			continue
		}
		s.pollReply[i].delay--
		if s.pollReply[i].delay <= 0 {
			fire = append(fire, s.pollReply[i])
			s.pollReply[i] = pollReplySlot{}
		}
	}
	s.mu.Unlock()

	if s.sendPoll == nil {
		return
	}
	for _, slot := range fire {
		s.sendPoll(slot.addr, slot.universe)
	}
}

// ScheduleReset arms the reset countdown: the ResetFunc runs after count
// ticks (roughly count milliseconds). Used by the factory-reset and
// settings-erase HTTP handlers.
func (s *Systick) ScheduleReset(count int32) {
	atomic.StoreInt32(&s.resetCount, count)
}

func (s *Systick) checkReset() {
	n := atomic.LoadInt32(&s.resetCount)
	if n <= 0 {
		return
	}
	n = atomic.AddInt32(&s.resetCount, -1)
	if n <= 0 {
		atomic.StoreInt32(&s.resetCount, 0)
		if s.reset != nil {
			s.reset()
		}
	}
}

// SystemTick returns the running 1kHz tick counter since Start.
func (s *Systick) SystemTick() uint64 {
	return atomic.LoadUint64(&s.systemTick)
}
