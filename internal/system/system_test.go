package system

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestNewBuildsAllSubsystems(t *testing.T) {
	dir := t.TempDir()
	s, err := New(Options{
		SettingsPath:      filepath.Join(dir, "settings.jsonl"),
		JournalSectorKB:   64,
		DiscoveryInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	if s.Model == nil || s.Control == nil || s.Watchdog == nil || s.Settings == nil {
		t.Fatal("expected all core subsystems to be non-nil")
	}
	for i, strip := range s.Strips {
		if strip == nil {
			t.Fatalf("expected strip %d to be built", i)
		}
	}
	if s.ArtNet == nil || s.SACN == nil {
		t.Fatal("expected protocol servers to be built")
	}
}

func TestStartAndStopDoesNotPanic(t *testing.T) {
	dir := t.TempDir()
	s, err := New(Options{
		SettingsPath:      filepath.Join(dir, "settings.jsonl"),
		JournalSectorKB:   64,
		DiscoveryInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()
	s.Systick.Stop()
}

func TestHealthChecksRunWithoutError(t *testing.T) {
	dir := t.TempDir()
	s, err := New(Options{
		SettingsPath:      filepath.Join(dir, "settings.jsonl"),
		JournalSectorKB:   64,
		DiscoveryInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	results := s.Health.RunChecks(context.Background())
	if len(results) == 0 {
		t.Fatal("expected at least one registered health check")
	}
}
