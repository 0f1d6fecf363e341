// Package export mirrors a settings store into a read-only SQLite file for
// offline inspection with standard SQL tooling. It is never a write path:
// the journaled log in internal/settings remains the sole source of truth.
package export

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tinic/lightkraken/internal/settings"
)

// Dump writes every key/value in store to the SQLite database at path,
// creating it if needed. An existing settings table is dropped and
// recreated; other tables in the file are left as they are.
func Dump(store *settings.Store, path string) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("export: open sqlite: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(`DROP TABLE IF EXISTS settings`); err != nil {
		return fmt.Errorf("export: drop table: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE settings (key TEXT PRIMARY KEY, json_value TEXT NOT NULL)`); err != nil {
		return fmt.Errorf("export: create table: %w", err)
	}

	dump, err := store.DumpJSON()
	if err != nil {
		return fmt.Errorf("export: dump store: %w", err)
	}

	var flat map[string]json.RawMessage
	if err := json.Unmarshal(dump, &flat); err != nil {
		return fmt.Errorf("export: decode dump: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("export: begin tx: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO settings (key, json_value) VALUES (?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("export: prepare insert: %w", err)
	}
	defer stmt.Close()

	for key, raw := range flat {
		if _, err := stmt.Exec(key, string(raw)); err != nil {
			tx.Rollback()
			return fmt.Errorf("export: insert %q: %w", key, err)
		}
	}

	return tx.Commit()
}
