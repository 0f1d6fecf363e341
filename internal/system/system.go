// Package system assembles the process-wide dependency graph into a single
// owned struct, constructed once in main and threaded through every
// protocol listener and HTTP handler instead of reached for through
// package-level singletons.
package system

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/tinic/lightkraken/internal/analog"
	"github.com/tinic/lightkraken/internal/control"
	"github.com/tinic/lightkraken/internal/health"
	"github.com/tinic/lightkraken/internal/metrics"
	"github.com/tinic/lightkraken/internal/pixel"
	"github.com/tinic/lightkraken/internal/protocol/artnet"
	"github.com/tinic/lightkraken/internal/protocol/sacn"
	"github.com/tinic/lightkraken/internal/settings"
	"github.com/tinic/lightkraken/internal/syncwatch"
	"github.com/tinic/lightkraken/internal/systick"
	"github.com/tinic/lightkraken/internal/topology"
	"github.com/tinic/lightkraken/internal/websocket"
)

// System bundles every long-lived subsystem the device runtime needs. Its
// fields are exported so cmd/lightkraken and internal/api can reach into
// them directly rather than going through a forwarding-method facade.
type System struct {
	Model    *topology.Model
	Strips   [topology.StripChannels]*pixel.Strip
	Analog   *analog.Driver
	Control  *control.Control
	Watchdog *syncwatch.Watchdog
	Settings *settings.Store
	Systick  *systick.Systick
	Metrics  *metrics.Metrics
	Health   *health.HealthChecker
	Hub      *websocket.Hub
	Log      *zap.Logger

	ArtNet *artnet.Server
	SACN   *sacn.Server
}

// Options configures New. SettingsPath/JournalSectorKB size the settings
// store; DiscoveryInterval sets the sACN discovery cron cadence. PulseSetter
// drives the analog PWM channels; a nil value leaves them a no-op, for
// builds/tests with no PWM hardware attached.
type Options struct {
	SettingsPath      string
	JournalSectorKB   int
	DiscoveryInterval time.Duration
	PulseSetter       analog.PulseSetter
	Log               *zap.Logger
}

// New opens the settings store and bumps its boot counter, constructs every
// subsystem against a fresh topology.NewModel(), and wires the health checks
// and metrics the HTTP surface exposes.
func New(opts Options) (*System, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	store, err := settings.Open(opts.SettingsPath, opts.JournalSectorKB, log)
	if err != nil {
		return nil, fmt.Errorf("system: open settings: %w", err)
	}
	if _, err := store.IncrementBootCount(); err != nil {
		return nil, fmt.Errorf("system: increment boot count: %w", err)
	}

	model := topology.NewModel()
	registry := pixel.NewRegistry()

	var strips [topology.StripChannels]*pixel.Strip
	for i := 0; i < topology.StripChannels; i++ {
		cfg := *model.StripConfig(i)
		strip, err := pixel.NewStrip(cfg, registry)
		if err != nil {
			return nil, fmt.Errorf("system: build strip %d: %w", i, err)
		}
		strips[i] = strip
	}

	pulseSetter := opts.PulseSetter
	if pulseSetter == nil {
		pulseSetter = func(int, uint16) {}
	}
	driver := analog.NewDriver(pulseSetter)
	ctrl := control.New(model, strips, driver)
	watchdog := syncwatch.New()
	m := metrics.NewMetrics()
	hub := websocket.NewHub()
	hc := health.NewHealthChecker()

	s := &System{
		Model:    model,
		Strips:   strips,
		Analog:   driver,
		Control:  ctrl,
		Watchdog: watchdog,
		Settings: store,
		Metrics:  m,
		Health:   hc,
		Hub:      hub,
		Log:      log,
	}

	s.registerHealthChecks()

	artnetSrv := artnet.NewServer(ctrl, watchdog)
	sacnSrv := sacn.NewServer(ctrl)
	artnetSrv.OnPollReply = func(addr *net.UDPAddr, universe uint16) {
		artnetSrv.SendPollReply(addr, universe)
		m.IncrementPollRepliesSent()
	}

	s.Systick = systick.New(ctrl, opts.DiscoveryInterval,
		func(addr *net.UDPAddr, universe uint16) {
			artnetSrv.SendPollReply(addr, universe)
			m.IncrementPollRepliesSent()
		},
		func() {
			if sacnSrv.SendDiscovery != nil {
				sacnSrv.SendDiscovery()
			}
		},
		// The reset callback only logs; it does not restart the process.
		func() { log.Warn("system: scheduled reset fired") },
		log,
	)

	s.ArtNet = artnetSrv
	s.SACN = sacnSrv

	return s, nil
}

func (s *System) registerHealthChecks() {
	s.Health.RegisterCheck("sync_watchdog", health.SyncWatchdogHealthCheck(
		s.Watchdog.StarvedFor, 100*time.Millisecond,
	), 5*time.Second)

	s.Health.RegisterCheck("settings_journal", health.SettingsJournalHealthCheck(
		s.Settings.JournalUsage,
	), 30*time.Second)

	for i := range s.Strips {
		strip := s.Strips[i]
		s.Health.RegisterCheck(fmt.Sprintf("strip_%d_dma", i), health.DMABusyHealthCheck(
			func() bool { return strip.ConsecutiveBusyRejects() > 0 },
			strip.ConsecutiveBusyRejects,
			5,
		), 5*time.Second)
	}

	s.Health.RegisterCheck("memory", health.MemoryHealthCheck(func() (used, total uint64) {
		return s.Metrics.MemoryUsage()
	}), 30*time.Second)

	s.Health.RegisterCheck("goroutines", health.GoroutineHealthCheck(
		s.Metrics.GoroutineCountNow, 2000,
	), 30*time.Second)
}

// Start brings up the tick loop and periodic health checks. Protocol
// listeners are started separately by cmd/lightkraken, since they own
// their own net.PacketConn lifetimes.
func (s *System) Start(ctx context.Context) {
	s.Systick.Start(ctx)
	s.Health.StartPeriodicChecks(ctx)
}

// Close releases file watchers and other resources that outlive a single
// request.
func (s *System) Close() error {
	return s.Settings.Close()
}
