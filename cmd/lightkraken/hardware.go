package main

import (
	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/tinic/lightkraken/internal/analog"
	"github.com/tinic/lightkraken/internal/config"
	"github.com/tinic/lightkraken/internal/transport"
)

const (
	pwmFrequency = 1 * physic.KiloHertz
	spiClockRate = 4 * physic.MegaHertz
)

// initHardware brings up periph.io's host drivers once per process. A
// failure here is not fatal: every hardware channel below degrades to
// "not attached" and the pipeline keeps running with no real output,
// which is what lets this also run on a dev machine with no periph.io
// drivers registered.
func initHardware(log *zap.Logger) {
	if _, err := host.Init(); err != nil {
		log.Warn("periph host init failed, hardware output disabled", zap.Error(err))
	}
}

// openSPITransports opens one SPI transport per non-empty bus name in
// cfg.SPIBus, grounded on periph.io's spireg/spi.Conn pair that
// internal/transport.SPITransport already wraps.
func openSPITransports(cfg config.HardwareConfig, log *zap.Logger) []*transport.SPITransport {
	out := make([]*transport.SPITransport, len(cfg.SPIBus))
	for i, name := range cfg.SPIBus {
		if name == "" {
			continue
		}
		port, err := spireg.Open(name)
		if err != nil {
			log.Warn("open SPI bus failed", zap.String("bus", name), zap.Error(err))
			continue
		}
		conn, err := port.Connect(spiClockRate, spi.Mode0, 8)
		if err != nil {
			log.Warn("connect SPI bus failed", zap.String("bus", name), zap.Error(err))
			continue
		}
		out[i] = transport.NewSPITransport(conn)
	}
	return out
}

// openPulseSetter resolves one periph.io GPIO pin per non-empty name in
// cfg.PWMPins and returns an analog.PulseSetter driving them.
func openPulseSetter(cfg config.HardwareConfig, log *zap.Logger) analog.PulseSetter {
	pins := make([]gpio.PinIO, len(cfg.PWMPins))
	for i, name := range cfg.PWMPins {
		if name == "" {
			continue
		}
		pin := gpioreg.ByName(name)
		if pin == nil {
			log.Warn("unknown PWM pin", zap.String("pin", name))
			continue
		}
		pins[i] = pin
	}
	return func(channel int, pulse uint16) {
		if channel < 0 || channel >= len(pins) || pins[channel] == nil {
			return
		}
		if err := pins[channel].PWM(gpio.Duty(pulse), pwmFrequency); err != nil {
			log.Debug("pwm write failed", zap.Error(err))
		}
	}
}
