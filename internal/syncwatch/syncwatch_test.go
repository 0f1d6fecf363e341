package syncwatch

import (
	"testing"
	"time"
)

func TestStarvedInitially(t *testing.T) {
	w := New()
	if !w.Starved() {
		t.Error("expected watchdog to start starved before any feed")
	}
}

func TestFeedClearsStarved(t *testing.T) {
	w := New()
	w.Feed()
	if w.Starved() {
		t.Error("expected watchdog to be fed immediately after Feed")
	}
}

func TestStarvesAfterTimeout(t *testing.T) {
	w := New()
	w.Feed()
	time.Sleep(StarveTimeout + 2*time.Millisecond)
	if !w.Starved() {
		t.Error("expected watchdog to starve after StarveTimeout elapses")
	}
}

func TestTripCountIncrements(t *testing.T) {
	w := New()
	w.Feed()
	time.Sleep(StarveTimeout + 2*time.Millisecond)
	w.Starved()
	w.Starved()
	if w.TripCount() != 2 {
		t.Errorf("expected TripCount 2, got %d", w.TripCount())
	}
}

func TestStarvedForZeroWhenFed(t *testing.T) {
	w := New()
	w.Feed()
	if w.StarvedFor() != 0 {
		t.Errorf("expected StarvedFor 0 when fed, got %s", w.StarvedFor())
	}
}
