package pixel

import (
	"fmt"
	"sync"

	"github.com/tinic/lightkraken/internal/colorspace"
	"github.com/tinic/lightkraken/internal/topology"
)

// BurstHeadLen is extra capacity reserved in Prepare's output buffer for
// head bytes. Transfer always hands the whole frame, head included, to the
// DMA closure in one call; no head is sent separately.
const BurstHeadLen = 128

// Strip is one strip-channel's live state: its configuration, its
// component buffer in native pixel order, and the encoder that turns that
// buffer into wire bytes for DMA hand-off.
type Strip struct {
	mu sync.Mutex

	config    topology.StripConfig
	converter *colorspace.Converter
	encoder   Encoder
	registry  *Registry

	compBuf      []uint16
	pixelCount   int
	active       [topology.UniverseSlots]bool
	transferFlag bool

	DMATransfer func(data []byte) error
	DMABusy     func() bool

	consecutiveBusyRejects int
}

// NewStrip builds a Strip bound to cfg, resolving its chip encoder from
// registry.
func NewStrip(cfg topology.StripConfig, registry *Registry) (*Strip, error) {
	enc, err := registry.New(cfg.OutputType)
	if err != nil {
		return nil, err
	}
	s := &Strip{
		config:    cfg,
		converter: colorspace.NewConverter(),
		encoder:   enc,
		registry:  registry,
	}
	s.SetPixelLen(cfg.LEDCount)
	return s, nil
}

// SetPixelLen resizes the component buffer. Components-per-pixel is fixed
// at 3 (RGB) in native storage; RGBW input is folded into RGB on decode, and
// the only encode-time mapping is the HD108 16-bit lookup in Prepare.
func (s *Strip) SetPixelLen(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pixelCount = n
	s.compBuf = make([]uint16, n*3)
}

func (s *Strip) PixelLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pixelCount
}

// NeedsClock reports whether the active chip family requires a clock line.
func (s *Strip) NeedsClock() bool {
	return s.encoder.NeedsClock()
}

// SetRGBColorSpace switches the working space used to decode incoming sRGB
// component data before it reaches the chip encoder.
func (s *Strip) SetRGBColorSpace(m colorspace.Matrix) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.converter.SetMatrix(m)
}

// IsUniverseActive reports whether DMX512 slot uniN of this strip's
// universe map has received data.
func (s *Strip) IsUniverseActive(uniN int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if uniN < 0 || uniN >= topology.UniverseSlots {
		return false
	}
	return s.active[uniN]
}

// SetUniverseData writes one DMX512 universe's worth of component data
// into the strip's native buffer at the offset implied by slot N.
// An empty payload, an out-of-range slot or an unknown input type is a
// silent no-op (spec's "invalid payload" class), not a Go error; a payload
// shorter than one pixel marks the slot active but writes no pixels.
func (s *Strip) SetUniverseData(n int, data []byte, inputType topology.StripInputType) {
	if n < 0 || n >= topology.UniverseSlots || len(data) == 0 {
		return
	}

	bpp := bytesPerInputPixel(inputType)
	if bpp == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.active[n] = true

	pixelsInUniverse := len(data) / bpp
	startPixel := n * (DMXMaxLen / bpp)

	for i := 0; i < pixelsInUniverse; i++ {
		destPixel := startPixel + i
		if destPixel >= s.pixelCount {
			break
		}
		off := i * bpp
		r, g, b := decodeComponents(data[off:off+bpp], inputType)
		if inputType == topology.InRGB8SRGB || inputType == topology.InRGBWSRGB {
			lr, lg, lb := s.converter.SRGB8ToLEDPWM(uint8(r), uint8(g), uint8(b), 255)
			r, g, b = uint16(lr), uint16(lg), uint16(lb)
		}
		base := destPixel * 3
		s.compBuf[base] = r
		s.compBuf[base+1] = g
		s.compBuf[base+2] = b
	}
}

func bytesPerInputPixel(t topology.StripInputType) int {
	switch t {
	case topology.InRGB8, topology.InRGB8SRGB:
		return 3
	case topology.InRGBW8, topology.InRGBWSRGB:
		return 4
	case topology.InRGB16MSB, topology.InRGB16LSB:
		return 6
	case topology.InRGBW16MSB, topology.InRGBW16LSB:
		return 8
	default:
		return 0
	}
}

func decodeComponents(data []byte, t topology.StripInputType) (r, g, b uint16) {
	switch t {
	case topology.InRGB8, topology.InRGB8SRGB:
		return uint16(data[0]), uint16(data[1]), uint16(data[2])
	case topology.InRGBW8, topology.InRGBWSRGB:
		cr, cg, cb := CollapseRGBW(uint16(data[0]), uint16(data[1]), uint16(data[2]), uint16(data[3]), 255)
		return cr, cg, cb
	case topology.InRGB16MSB:
		return u16msb(data[0:2]), u16msb(data[2:4]), u16msb(data[4:6])
	case topology.InRGB16LSB:
		return u16lsb(data[0:2]), u16lsb(data[2:4]), u16lsb(data[4:6])
	default:
		return 0, 0, 0
	}
}

func u16msb(b []byte) uint16 { return uint16(b[0])<<8 | uint16(b[1]) }
func u16lsb(b []byte) uint16 { return uint16(b[1])<<8 | uint16(b[0]) }

// Prepare encodes the current component buffer into wire bytes, applying
// component/global illumination limits, reordering into the chip's wire
// order, and running it through the chip-specific line encoder.
func (s *Strip) Prepare() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]byte, 0, len(s.compBuf)*4+BurstHeadLen)
	out = append(out, s.encoder.Head()...)

	limit := s.config.CompLimit * s.config.GlobIllum

	for p := 0; p < s.pixelCount; p++ {
		base := p * 3
		r := applyLimit(s.compBuf[base], limit)
		g := applyLimit(s.compBuf[base+1], limit)
		b := applyLimit(s.compBuf[base+2], limit)

		wr, wg, wb := Reorder(s.config.OutputType, r, g, b)
		if s.config.OutputType == topology.HD108 {
			wr = colorspace.HD108Lookup(0, uint8(wr))
			wg = colorspace.HD108Lookup(1, uint8(wg))
			wb = colorspace.HD108Lookup(2, uint8(wb))
		}

		out = s.encoder.Encode(out, []uint16{wr, wg, wb})
	}

	out = append(out, s.encoder.Tail(s.pixelCount)...)
	return out
}

func applyLimit(v uint16, limit float64) uint16 {
	if limit >= 1.0 {
		return v
	}
	return uint16(float64(v) * limit)
}

// SetPendingTransferFlag marks that a new frame is ready to go out.
func (s *Strip) SetPendingTransferFlag() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transferFlag = true
}

// PendingTransferFlag consumes and clears the pending-transfer flag.
func (s *Strip) PendingTransferFlag() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.transferFlag {
		s.transferFlag = false
		return true
	}
	return false
}

// Transfer hands the prepared frame to the injected DMA closure, rejecting
// the call outright (rather than queuing) if the transport reports busy -
// the next tick's frame supersedes this one anyway.
func (s *Strip) Transfer() error {
	s.mu.Lock()
	if s.DMABusy != nil && s.DMABusy() {
		s.consecutiveBusyRejects++
		s.mu.Unlock()
		return fmt.Errorf("pixel: transport busy")
	}
	if s.DMATransfer == nil {
		s.mu.Unlock()
		return fmt.Errorf("pixel: no transport attached")
	}
	s.consecutiveBusyRejects = 0
	transfer := s.DMATransfer
	s.mu.Unlock()
	return transfer(s.Prepare())
}

// ConsecutiveBusyRejects reports how many Transfer calls in a row have
// been rejected because the transport reported busy, for
// internal/health's DMA-busy check.
func (s *Strip) ConsecutiveBusyRejects() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consecutiveBusyRejects
}
