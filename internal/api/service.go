// Package api exposes the HTTP surface: the fixed settings/reset/erase
// endpoints the firmware's own web server served, plus a small enrichment
// surface for topology, metrics, health and a live diagnostics feed.
package api

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/tinic/lightkraken/internal/analog"
	"github.com/tinic/lightkraken/internal/colorspace"
	"github.com/tinic/lightkraken/internal/logger"
	"github.com/tinic/lightkraken/internal/system"
	"github.com/tinic/lightkraken/internal/topology"
	"github.com/tinic/lightkraken/internal/websocket"
)

// Service wraps the process's System for the HTTP handlers, the way the
// teacher's own api.Service wraps its storage/registry/wsHub.
type Service struct {
	sys *system.System
}

// NewService builds a Service bound to sys.
func NewService(sys *system.System) *Service {
	return &Service{sys: sys}
}

func (s *Service) logActivity(level, message string) {
	l := logger.Get().With(zap.String("source", "api"))
	switch level {
	case "error":
		l.Error(message)
	case "warn":
		l.Warn(message)
	default:
		l.Info(message)
	}
}

// GetSettings returns every stored key with its type suffix stripped.
func (s *Service) GetSettings() (map[string]interface{}, error) {
	plain, err := s.sys.Settings.PlainDump()
	if err != nil {
		return nil, err
	}
	out := make(map[string]interface{}, len(plain))
	for k, v := range plain {
		out[k] = v
	}
	return out, nil
}

// ApplyRawPatch applies a PUT/POST body's fields, inferring each value's
// type tag from its JSON shape (the body carries no type information).
func (s *Service) ApplyRawPatch(fields map[string][]byte) error {
	for k, raw := range fields {
		if err := s.sys.Settings.PutPlain(k, raw); err != nil {
			return err
		}
	}
	s.sys.Hub.Broadcast(websocket.MessageTypeLog, map[string]interface{}{
		"message": "settings updated",
		"keys":    keysOf(fields),
	})
	return nil
}

// DeleteSettings removes every named bare key.
func (s *Service) DeleteSettings(keys []string) error {
	for _, k := range keys {
		if err := s.sys.Settings.DeleteAny(k); err != nil {
			return err
		}
	}
	return nil
}

// ScheduleReset arms the systick reset countdown (2000 ticks). When it
// expires the System's reset callback logs a warning; the process is not
// restarted.
func (s *Service) ScheduleReset() {
	s.sys.Systick.ScheduleReset(2000)
	s.logActivity("warn", "reset scheduled")
}

// EraseSettings deletes every stored key and arms a reset, mirroring the
// firmware's factory-erase path.
func (s *Service) EraseSettings() error {
	for _, k := range s.sys.Settings.Keys() {
		base := k
		if n := len(k); n >= 2 && k[n-2] == '@' {
			base = k[:n-2]
		}
		if err := s.sys.Settings.DeleteAny(base); err != nil {
			return err
		}
	}
	s.ScheduleReset()
	s.logActivity("warn", "settings erased")
	return nil
}

// GetTopology returns the active output config and every strip/analog
// channel's configuration.
func (s *Service) GetTopology() map[string]interface{} {
	model := s.sys.Model
	strips := make([]*topology.StripConfig, topology.StripChannels)
	for i := range strips {
		strips[i] = model.StripConfig(i)
	}
	analog := make([]*topology.AnalogConfig, topology.AnalogChannels)
	for i := range analog {
		analog[i] = model.AnalogConfig(i)
	}
	return map[string]interface{}{
		"output_config": model.OutputConfig(),
		"strips":        strips,
		"analog":        analog,
	}
}

// SetOutputConfig changes the active topology variant.
func (s *Service) SetOutputConfig(c topology.Config) error {
	if err := s.sys.Model.SetOutputConfig(c); err != nil {
		return err
	}
	s.sys.Hub.Broadcast(websocket.MessageTypeTopology, map[string]interface{}{
		"output_config": c,
	})
	return nil
}

// StripSnapshot returns channel's live pixel length and active-slot state,
// for the read-only debugging endpoint.
func (s *Service) StripSnapshot(channel int) (map[string]interface{}, error) {
	if channel < 0 || channel >= topology.StripChannels {
		return nil, fmt.Errorf("api: strip channel out of range")
	}
	strip := s.sys.Strips[channel]
	active := make([]bool, topology.UniverseSlots)
	for i := range active {
		active[i] = strip.IsUniverseActive(i)
	}
	return map[string]interface{}{
		"channel":      channel,
		"pixel_len":    strip.PixelLen(),
		"active_slots": active,
		"needs_clock":  strip.NeedsClock(),
	}, nil
}

// SetStripColorSpace changes channel's working color space by name.
func (s *Service) SetStripColorSpace(channel int, name string) error {
	if channel < 0 || channel >= topology.StripChannels {
		return fmt.Errorf("api: strip channel out of range")
	}
	m, err := colorspace.MatrixByName(name)
	if err != nil {
		return err
	}
	s.sys.Strips[channel].SetRGBColorSpace(m)
	return nil
}

// AnalogSnapshot returns terminal's current color and PWM limit.
func (s *Service) AnalogSnapshot(terminal int) (map[string]interface{}, error) {
	if terminal < 0 || terminal >= analog.TerminalCount {
		return nil, fmt.Errorf("api: analog terminal out of range")
	}
	return s.sys.Analog.Terminal(terminal).Snapshot(), nil
}

func keysOf(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
