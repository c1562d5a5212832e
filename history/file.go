package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/hupe1980/genfan/core"
	"github.com/hupe1980/genfan/logging"
)

// FileStore is a durable HistoryStore persisting entries as a JSON array,
// most recent first, in a single file. The in-memory list is the source of
// truth for the current session: every mutation applies to it first under
// the write lock, then is persisted best effort. A persistence failure is
// surfaced to the caller as a *core.StorageError but never rolls back or
// corrupts the in-memory list.
//
// On open, a missing file yields an empty list rather than an error, so an
// uninitialized store starts clean.
type FileStore struct {
	mu       sync.RWMutex
	capacity int
	path     string
	entries  []core.HistoryEntry
	logger   logging.Logger
}

// FileStoreOptions configures a FileStore.
type FileStoreOptions struct {
	// Logger receives persistence warnings. Defaults to NoOpLogger.
	Logger logging.Logger
}

// NewFileStore opens (or initializes) the store backed by the JSON file at
// path, bounded at capacity entries.
func NewFileStore(path string, capacity int, optFns ...func(o *FileStoreOptions)) (*FileStore, error) {
	opts := FileStoreOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &FileStore{capacity: capacity, path: path, logger: opts.Logger}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() error {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load history file: %w", err)
	}
	if len(raw) == 0 {
		return nil
	}
	var entries []core.HistoryEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("decode history file %s: %w", s.path, err)
	}
	s.entries = entries
	return nil
}

// persistLocked writes the current list; caller must hold the write lock.
// Failures are reported, not fatal: the in-memory list remains authoritative.
func (s *FileStore) persistLocked() error {
	raw, err := json.Marshal(s.entries)
	if err != nil {
		return &core.StorageError{Op: "encode history", Err: err}
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &core.StorageError{Op: "create history dir", Err: err}
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return &core.StorageError{Op: "write history", Err: err}
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return &core.StorageError{Op: "commit history", Err: err}
	}
	return nil
}

// Add prepends the entry, trims past capacity and persists. The evicted
// entries are returned even when persistence fails.
func (s *FileStore) Add(_ context.Context, entry core.HistoryEntry) ([]core.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var evicted []core.HistoryEntry
	s.entries, evicted = prepend(s.entries, entry, s.capacity)
	if err := s.persistLocked(); err != nil {
		s.logger.Warn("history persistence failed", "path", s.path, "error", err)
		return evicted, err
	}
	return evicted, nil
}

// Remove deletes the entry with the given id and persists.
func (s *FileStore) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = removeByID(s.entries, id)
	if err := s.persistLocked(); err != nil {
		s.logger.Warn("history persistence failed", "path", s.path, "error", err)
		return err
	}
	return nil
}

// Clear drops every entry and persists the empty list. Idempotent.
func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	if err := s.persistLocked(); err != nil {
		s.logger.Warn("history persistence failed", "path", s.path, "error", err)
		return err
	}
	return nil
}

// List returns a snapshot slice, most recent first.
func (s *FileStore) List(_ context.Context) ([]core.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot(s.entries), nil
}

// Len returns the number of retained entries.
func (s *FileStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}
