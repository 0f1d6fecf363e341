// Package syncwatch implements the sync-mode watchdog: a single writer
// (the protocol ingress goroutine feeding ArtSync/sACN sync packets) and a
// single reader (the frame transmit path) share a monotonic "last fed"
// timestamp. If sync mode is enabled but no sync packet arrives for the
// starve timeout, the transmit path falls back to unsynced per-universe
// output rather than hanging indefinitely.
package syncwatch

import (
	"sync/atomic"
	"time"
)

// StarveTimeout is the maximum gap tolerated between feeds before the
// watchdog is considered starved.
const StarveTimeout = 4 * time.Millisecond

// Watchdog tracks the last time a sync pulse was fed to it. Zero value is
// ready to use and starts in the starved state (no feed has ever happened).
type Watchdog struct {
	lastFeedNanos int64
	tripCount     int64
}

// New returns a Watchdog in the starved state.
func New() *Watchdog {
	return &Watchdog{}
}

// Feed records that a sync pulse arrived now. Safe to call from exactly
// one goroutine; concurrent feeders would race on trip accounting even
// though the atomic store itself is safe.
func (w *Watchdog) Feed() {
	atomic.StoreInt64(&w.lastFeedNanos, time.Now().UnixNano())
}

// Starved reports whether more than StarveTimeout has elapsed since the
// last Feed, or no Feed has ever happened. Safe to call from exactly one
// reader goroutine concurrently with the single feeder.
func (w *Watchdog) Starved() bool {
	last := atomic.LoadInt64(&w.lastFeedNanos)
	if last == 0 {
		return true
	}
	starved := time.Since(time.Unix(0, last)) > StarveTimeout
	if starved {
		atomic.AddInt64(&w.tripCount, 1)
	}
	return starved
}

// StarvedFor returns how long the watchdog has been starved, or zero if it
// is currently fed. Used by internal/health's sync-watchdog check.
func (w *Watchdog) StarvedFor() time.Duration {
	last := atomic.LoadInt64(&w.lastFeedNanos)
	if last == 0 {
		return StarveTimeout
	}
	d := time.Since(time.Unix(0, last))
	if d <= StarveTimeout {
		return 0
	}
	return d
}

// TripCount returns how many times Starved() has observed a starve event.
// Exposed for internal/metrics.SyncWatchdogTrips.
func (w *Watchdog) TripCount() int64 {
	return atomic.LoadInt64(&w.tripCount)
}
