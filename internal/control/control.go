// Package control fans Art-Net/sACN universe data out to the right strip
// or analog terminal for the active topology, runs the startup pattern
// before live data arrives, and drives the per-topology sync() dispatch.
package control

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/tinic/lightkraken/internal/analog"
	"github.com/tinic/lightkraken/internal/pixel"
	"github.com/tinic/lightkraken/internal/topology"
)

// Control owns the strips, the analog driver and the active topology, and
// dispatches incoming universe data to whichever of them the topology maps
// it to.
type Control struct {
	mu sync.Mutex

	model  *topology.Model
	strips [topology.StripChannels]*pixel.Strip
	driver *analog.Driver

	inStartup     int32
	colorSched    int32
	dataReceived  int32
	syncMode      int32
	startupRunID  string
}

// New builds a Control bound to model, with strips and driver already
// constructed by internal/system against the current topology.
func New(model *topology.Model, strips [topology.StripChannels]*pixel.Strip, driver *analog.Driver) *Control {
	c := &Control{model: model, strips: strips, driver: driver}
	atomic.StoreInt32(&c.inStartup, 1)
	return c
}

func (c *Control) InStartup() bool    { return atomic.LoadInt32(&c.inStartup) != 0 }
func (c *Control) SetStartup()        { atomic.StoreInt32(&c.inStartup, 1) }
func (c *Control) ClearStartup()      { atomic.StoreInt32(&c.inStartup, 0) }
func (c *Control) SetDataReceived()   { atomic.StoreInt32(&c.dataReceived, 1) }
func (c *Control) DataReceived() bool { return atomic.LoadInt32(&c.dataReceived) != 0 }
func (c *Control) ScheduleColor()     { atomic.StoreInt32(&c.colorSched, 1) }
func (c *Control) ColorScheduled() bool {
	return atomic.LoadInt32(&c.colorSched) != 0
}

// ClearColorSchedule resets the flag once the startup pattern has consumed
// a scheduled run.
func (c *Control) ClearColorSchedule() { atomic.StoreInt32(&c.colorSched, 0) }

func (c *Control) SetEnableSyncMode(state bool) {
	if state {
		atomic.StoreInt32(&c.syncMode, 1)
	} else {
		atomic.StoreInt32(&c.syncMode, 0)
	}
}
func (c *Control) SyncModeEnabled() bool { return atomic.LoadInt32(&c.syncMode) != 0 }

// SetArtnetUniverseOutputData routes one DMX512-sized Art-Net payload to
// every strip slot whose configuration maps to universe, whatever the
// active topology. Analog terminals are not fed from universe data. Silent
// no-op for a universe nothing maps to, per spec §7's invalid/inactive
// class - not a reportable error.
func (c *Control) SetArtnetUniverseOutputData(universe uint16, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.SetDataReceived()

	for s := 0; s < topology.StripChannels; s++ {
		cfg := c.model.StripConfig(s)
		for slot := 0; slot < topology.UniverseSlots; slot++ {
			if cfg.ArtNet[slot] == universe {
				c.strips[s].SetUniverseData(slot, data, cfg.InputType)
			}
		}
	}
}

// SetE131UniverseOutputData is SetArtnetUniverseOutputData's sACN twin.
func (c *Control) SetE131UniverseOutputData(universe uint16, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.SetDataReceived()

	for s := 0; s < topology.StripChannels; s++ {
		cfg := c.model.StripConfig(s)
		for slot := 0; slot < topology.UniverseSlots; slot++ {
			if cfg.E131[slot] == universe {
				c.strips[s].SetUniverseData(slot, data, cfg.InputType)
			}
		}
	}
}

// Sync transfers every channel the active topology says is a strip.
// Analog terminals are not synced here.
func (c *Control) Sync() {
	props := topology.Properties(c.model.OutputConfig())
	for i := 0; i < topology.StripChannels; i++ {
		if i < len(props.Strip) && props.Strip[i] {
			_ = c.strips[i].Transfer()
		}
	}
}

// CollectActiveArtnetUniverses returns the deduplicated set of Art-Net
// universes any strip currently has mapped and active, for ArtPoll replies.
func (c *Control) CollectActiveArtnetUniverses() []uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[uint16]bool)
	var out []uint16
	for s := 0; s < topology.StripChannels; s++ {
		cfg := c.model.StripConfig(s)
		for slot := 0; slot < topology.UniverseSlots; slot++ {
			if c.strips[s].IsUniverseActive(slot) && !seen[cfg.ArtNet[slot]] {
				seen[cfg.ArtNet[slot]] = true
				out = append(out, cfg.ArtNet[slot])
			}
		}
	}
	return out
}

// CollectActiveE131Universes is CollectActiveArtnetUniverses's sACN twin,
// used to build the periodic universe-discovery broadcast.
func (c *Control) CollectActiveE131Universes() []uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[uint16]bool)
	var out []uint16
	for s := 0; s < topology.StripChannels; s++ {
		cfg := c.model.StripConfig(s)
		for slot := 0; slot < topology.UniverseSlots; slot++ {
			if c.strips[s].IsUniverseActive(slot) && !seen[cfg.E131[slot]] {
				seen[cfg.E131[slot]] = true
				out = append(out, cfg.E131[slot])
			}
		}
	}
	return out
}

// StartupModePattern runs the configured startup-mode generator for every
// strip, whether or not it has received live data, tagging the run with a
// correlation ID for log/trace grouping.
func (c *Control) StartupModePattern() {
	c.mu.Lock()
	runID := uuid.NewString()
	c.startupRunID = runID
	c.mu.Unlock()

	for s := 0; s < topology.StripChannels; s++ {
		cfg := c.model.StripConfig(s)
		switch cfg.StartupMode {
		case topology.StartupColor:
			fillSolid(c.strips[s], 0, 80, 160)
		case topology.StartupRainbow:
			fillRainbow(c.strips[s])
		case topology.StartupTracer:
			fillTracer(c.strips[s], false)
		case topology.StartupSolidTracer:
			fillTracer(c.strips[s], true)
		case topology.StartupNoData:
			// intentionally blank
		}
		c.strips[s].SetPendingTransferFlag()
	}
}

func hueToRGB(h float64) (r, g, b uint8) {
	h = math.Mod(h, 360)
	x := 1 - math.Abs(math.Mod(h/60, 2)-1)
	var rf, gf, bf float64
	switch {
	case h < 60:
		rf, gf, bf = 1, x, 0
	case h < 120:
		rf, gf, bf = x, 1, 0
	case h < 180:
		rf, gf, bf = 0, 1, x
	case h < 240:
		rf, gf, bf = 0, x, 1
	case h < 300:
		rf, gf, bf = x, 0, 1
	default:
		rf, gf, bf = 1, 0, x
	}
	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func fillSolid(s *pixel.Strip, r, g, b byte) {
	n := s.PixelLen()
	data := make([]byte, n*3)
	for i := 0; i < n; i++ {
		data[i*3] = r
		data[i*3+1] = g
		data[i*3+2] = b
	}
	s.SetUniverseData(0, data, topology.InRGB8)
}

func fillRainbow(s *pixel.Strip) {
	n := s.PixelLen()
	data := make([]byte, n*3)
	for i := 0; i < n; i++ {
		r, g, b := hueToRGB(float64(i) / float64(n) * 360.0)
		data[i*3] = r
		data[i*3+1] = g
		data[i*3+2] = b
	}
	s.SetUniverseData(0, data, topology.InRGB8)
}

func fillTracer(s *pixel.Strip, solid bool) {
	n := s.PixelLen()
	data := make([]byte, n*3)
	for i := 0; i < n; i++ {
		if i == 0 || solid {
			data[i*3] = 255
		}
	}
	s.SetUniverseData(0, data, topology.InRGB8)
}
