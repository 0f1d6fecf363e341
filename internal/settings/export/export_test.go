package export

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tinic/lightkraken/internal/settings"
)

func TestDumpWritesRowsForEveryKey(t *testing.T) {
	dir := t.TempDir()
	store, err := settings.Open(filepath.Join(dir, "settings.jsonl"), 64, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	if err := store.Put("device_name", settings.StringValue("panel-1")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	dbPath := filepath.Join(dir, "mirror.sqlite3")
	if err := Dump(store, dbPath); err != nil {
		t.Fatalf("Dump: %v", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM settings`).Scan(&count); err != nil {
		t.Fatalf("count query: %v", err)
	}
	if count == 0 {
		t.Fatal("expected at least one row in mirror")
	}

	var jsonValue string
	if err := db.QueryRow(`SELECT json_value FROM settings WHERE key = ?`, "device_name@s").Scan(&jsonValue); err != nil {
		t.Fatalf("select device_name@s: %v", err)
	}
	if jsonValue != `"panel-1"` {
		t.Fatalf("expected quoted string, got %q", jsonValue)
	}
}

func TestDumpOverwritesExistingFile(t *testing.T) {
	dir := t.TempDir()
	store, err := settings.Open(filepath.Join(dir, "settings.jsonl"), 64, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	dbPath := filepath.Join(dir, "mirror.sqlite3")
	if err := Dump(store, dbPath); err != nil {
		t.Fatalf("first Dump: %v", err)
	}
	if err := store.Put("extra", settings.BoolValue(true)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := Dump(store, dbPath); err != nil {
		t.Fatalf("second Dump: %v", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM settings WHERE key = ?`, "extra@b").Scan(&count); err != nil {
		t.Fatalf("count query: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one row for extra@b after re-dump, got %d", count)
	}
}
