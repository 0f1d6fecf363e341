package pixel

import (
	"fmt"
	"sync"

	"github.com/tinic/lightkraken/internal/topology"
)

// Encoder turns a slice of native-order component bytes (already reordered,
// gamma-corrected and limited) into the wire bytes a transport sends to the
// chip, and reports the fixed head/tail framing bytes burst mode needs to
// see only once per transfer.
type Encoder interface {
	// Encode appends the wire encoding of one pixel's components to dst.
	Encode(dst []byte, components []uint16) []byte
	// Head returns any fixed start-frame bytes (e.g. APA102's 4 zero bytes).
	Head() []byte
	// Tail returns any fixed end-frame/latch bytes.
	Tail(pixelCount int) []byte
	// NeedsClock reports whether this chip family needs a clock line.
	NeedsClock() bool
}

// Factory builds a new Encoder for a strip output type.
type Factory func() Encoder

// Registry maps a chip output type to its Encoder factory, mirroring the
// type-string -> factory-function lookup idiom used elsewhere for
// pluggable, runtime-selected implementations.
type Registry struct {
	mu        sync.RWMutex
	factories map[topology.StripOutputType]Factory
}

// NewRegistry returns a Registry pre-populated with every chip family the
// topology package knows about.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[topology.StripOutputType]Factory)}
	r.Register(topology.WS2812, func() Encoder { return newNRZEncoder(ws2812Timing) })
	r.Register(topology.SK6812, func() Encoder { return newNRZEncoder(ws2812Timing) })
	r.Register(topology.TM1804, func() Encoder { return newNRZEncoder(ws2812Timing) })
	r.Register(topology.UCS1904, func() Encoder { return newNRZEncoder(ws2812Timing) })
	r.Register(topology.GS8202, func() Encoder { return newNRZEncoder(ws2812Timing) })
	r.Register(topology.TM1829, func() Encoder { return newNRZEncoder(ws2812Timing) })
	r.Register(topology.APA102, func() Encoder { return newClockedEncoder(false) })
	r.Register(topology.APA107, func() Encoder { return newClockedEncoder(false) })
	r.Register(topology.SK9822, func() Encoder { return newClockedEncoder(false) })
	r.Register(topology.HDS107S, func() Encoder { return newClockedEncoder(false) })
	r.Register(topology.HD108, func() Encoder { return newClockedEncoder(true) })
	r.Register(topology.P9813, func() Encoder { return newP9813Encoder() })
	r.Register(topology.WS2801, func() Encoder { return newSimpleClockedEncoder() })
	r.Register(topology.LPD8806, func() Encoder { return newLPD8806Encoder() })
	r.Register(topology.TLS3001, func() Encoder { return newManchesterEncoder() })
	return r
}

// Register adds or replaces the factory for a chip output type.
func (r *Registry) Register(t topology.StripOutputType, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[t] = f
}

// New builds a fresh Encoder for t.
func (r *Registry) New(t topology.StripOutputType) (Encoder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[t]
	if !ok {
		return nil, fmt.Errorf("pixel: no encoder registered for output type %d", int(t))
	}
	return f(), nil
}
