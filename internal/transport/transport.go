// Package transport wires a pixel.Strip's DMA-transfer closure to a real
// SPI bus via periph.io, with the single in-flight-transfer guard the strip
// engine depends on and a head/tail split helper for callers.
package transport

import (
	"fmt"
	"sync/atomic"

	"periph.io/x/conn/v3/spi"
)

// SPITransport drives one strip channel's output over a periph.io SPI
// port. Exactly one transfer may be in flight at a time; Transfer rejects
// a call outright rather than queuing it, matching the strip engine's
// busy-drop-frame policy (spec §4.2 / §7).
type SPITransport struct {
	conn spi.Conn
	busy int32

	// headSent is a head-sent latch cleared by Reset. Transfer neither sets
	// nor reads it: every Transfer sends the full frame, head included.
	headSent int32
}

// NewSPITransport wraps an already-opened SPI connection.
func NewSPITransport(conn spi.Conn) *SPITransport {
	return &SPITransport{conn: conn}
}

// Busy reports whether a transfer is currently in flight.
func (t *SPITransport) Busy() bool {
	return atomic.LoadInt32(&t.busy) != 0
}

// Reset clears the head-sent latch. It has no effect on Transfer, which
// always sends the full frame including its head bytes.
func (t *SPITransport) Reset() {
	atomic.StoreInt32(&t.headSent, 0)
}

// Transfer writes data to the SPI bus. It returns an error instead of
// blocking when a transfer is already in progress, since DMA busy is a
// caller-visible condition (internal/metrics.DMABusyRejects), not a
// protocol-level failure.
func (t *SPITransport) Transfer(data []byte) error {
	if !atomic.CompareAndSwapInt32(&t.busy, 0, 1) {
		return fmt.Errorf("transport: SPI transfer already in progress")
	}
	defer atomic.StoreInt32(&t.busy, 0)

	if t.conn == nil {
		return fmt.Errorf("transport: no SPI connection attached")
	}
	return t.conn.Tx(data, nil)
}

// HeadTailSplitter splits a prepared frame into a head segment (sent once
// per burst, e.g. a fixed preamble) and the remaining per-pixel body, so a
// caller driving burst mode across multiple strips can amortize the head
// across a run of frames that share it unchanged.
func HeadTailSplitter(frame []byte, headLen int) (head, body []byte) {
	if headLen > len(frame) {
		headLen = len(frame)
	}
	return frame[:headLen], frame[headLen:]
}
