// Package settings implements the typed key/value store backed by a
// journaled, append-only flash-image file: every Put appends a new record
// rather than rewriting the file in place, and the file is compacted once
// its append log grows past a configured sector size. Keys carry a type
// tag suffix (e.g. "boot_count@n") so a flat string-keyed log can
// round-trip typed values without a schema.
package settings

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

type record struct {
	Key   string `json:"key"`
	Value Value  `json:"value"`
	Tomb  bool   `json:"tomb,omitempty"`
}

// Store is a mutex-guarded, file-backed typed KV store. Safe for
// concurrent use.
type Store struct {
	mu   sync.RWMutex
	path string

	sectorBytes int64
	values      map[string]Value
	journalSize int64

	watcher *fsnotify.Watcher
	log     *zap.Logger
}

// Open loads path (creating it if absent) and starts watching it for
// external changes via fsnotify, mirroring how a board's recovery/factory
// tool might rewrite the flash image out from under the running process.
func Open(path string, journalSectorKB int, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{
		path:        path,
		sectorBytes: int64(journalSectorKB) * 1024,
		values:      make(map[string]Value),
		log:         log,
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("settings: create storage dir: %w", err)
	}

	if err := s.load(); err != nil {
		return nil, err
	}

	s.applyDefaults()

	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		if err := watcher.Add(filepath.Dir(path)); err == nil {
			s.watcher = watcher
			go s.watchLoop()
		} else {
			watcher.Close()
		}
	}

	return s, nil
}

func (s *Store) watchLoop() {
	for {
		select {
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(s.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				s.mu.Lock()
				if err := s.loadLocked(); err != nil {
					s.log.Warn("settings: reload after external write failed", zap.Error(err))
				}
				s.mu.Unlock()
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn("settings: fsnotify error", zap.Error(err))
		}
	}
}

// Close stops the file watcher.
func (s *Store) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() error {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		s.values = make(map[string]Value)
		s.journalSize = 0
		return nil
	}
	if err != nil {
		return fmt.Errorf("settings: open journal: %w", err)
	}
	defer f.Close()

	values := make(map[string]Value)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var size int64
	for scanner.Scan() {
		line := scanner.Bytes()
		size += int64(len(line)) + 1
		var rec record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue // a torn trailing write on power loss is expected; skip it
		}
		if rec.Tomb {
			delete(values, rec.Key)
			continue
		}
		values[rec.Key] = rec.Value
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("settings: scan journal: %w", err)
	}

	s.values = values
	s.journalSize = size
	return nil
}

func (s *Store) applyDefaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values["boot_count@n"]; !ok {
		s.values["boot_count@n"] = NumberValue(0)
	}
	if _, ok := s.values["last_ipv4@a"]; !ok {
		s.values["last_ipv4@a"] = IPValue("0.0.0.0")
	}
	if _, ok := s.values["last_ipv6@a"]; !ok {
		s.values["last_ipv6@a"] = IPValue("::")
	}
}

// IncrementBootCount bumps and persists the monotonic boot counter,
// returning its new value. Called once at startup.
func (s *Store) IncrementBootCount() (float64, error) {
	s.mu.Lock()
	v := s.values["boot_count@n"]
	v.Number++
	s.values["boot_count@n"] = v
	s.mu.Unlock()

	if err := s.appendLocked("boot_count@n", v, false); err != nil {
		return 0, err
	}
	return v.Number, nil
}

func (s *Store) appendLocked(key string, v Value, tomb bool) error {
	rec := record{Key: key, Value: v, Tomb: tomb}
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("settings: marshal record: %w", err)
	}
	line = append(line, '\n')

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("settings: open journal for append: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("settings: append journal: %w", err)
	}

	s.mu.Lock()
	s.journalSize += int64(len(line))
	needsCompaction := s.sectorBytes > 0 && s.journalSize >= s.sectorBytes
	s.mu.Unlock()

	if needsCompaction {
		if err := s.compact(); err != nil {
			s.log.Warn("settings: compaction failed", zap.Error(err))
		}
	}
	return nil
}

// compact rewrites the journal from the in-memory snapshot, discarding
// superseded and tombstoned records.
func (s *Store) compact() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := s.path + ".compact"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("settings: create compaction file: %w", err)
	}

	var size int64
	for k, v := range s.values {
		line, err := json.Marshal(record{Key: k, Value: v})
		if err != nil {
			f.Close()
			return err
		}
		line = append(line, '\n')
		if _, err := f.Write(line); err != nil {
			f.Close()
			return err
		}
		size += int64(len(line))
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("settings: install compacted journal: %w", err)
	}
	s.journalSize = size
	return nil
}

// JournalUsage returns the journal's current size and configured sector
// capacity in bytes, for internal/health's compaction-due check.
func (s *Store) JournalUsage() (used, capacity int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.journalSize, s.sectorBytes
}

// Get returns the value stored for base key (without its type suffix) and
// whether it was present.
func (s *Store) Get(base string, t ValueType) (Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[base+t.suffix()]
	return v, ok
}

// Put stores v under its base key and type tag, appending a journal
// record. A malformed key (empty) is a caller programming error reported
// as a real Go error - it is not an ingress-layer "invalid packet".
func (s *Store) Put(base string, v Value) error {
	if base == "" {
		return fmt.Errorf("settings: empty key")
	}
	s.mu.Lock()
	s.values[base+v.Type.suffix()] = v
	s.mu.Unlock()
	return s.appendLocked(base+v.Type.suffix(), v, false)
}

// Delete removes base's value under type t, appending a tombstone record.
func (s *Store) Delete(base string, t ValueType) error {
	key := base + t.suffix()
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
	return s.appendLocked(key, Value{}, true)
}

// DeleteAny removes whichever typed value is currently stored under base,
// for an HTTP DELETE body that names bare keys with no type suffix.
func (s *Store) DeleteAny(base string) error {
	s.mu.Lock()
	var key string
	for k := range s.values {
		if n := len(k); n >= 2 && k[n-2] == '@' && k[:n-2] == base {
			key = k
			break
		}
	}
	if key != "" {
		delete(s.values, key)
	}
	s.mu.Unlock()

	if key == "" {
		return nil
	}
	return s.appendLocked(key, Value{}, true)
}

// Keys returns every key currently stored, including type suffix.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	return keys
}
