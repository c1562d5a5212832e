package blob

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hupe1980/genfan/core"
	"github.com/hupe1980/genfan/logging"
)

// FSStore is a directory-backed BlobStore. Each blob is one file named by
// its key directly under the base directory; prefix deletion enumerates the
// directory and matches file names. Keys are fully sanitized by construction
// (core.BlobKey), so they never escape the base directory.
//
// An empty base path, or a base directory that cannot be created, yields a
// disabled store: every operation becomes a no-op returning zero values,
// reported once at Warn. The rest of the system treats the missing blobs as
// degraded artifacts rather than failures.
type FSStore struct {
	base     string
	logger   logging.Logger
	disabled bool
}

// FSStoreOptions configures an FSStore.
type FSStoreOptions struct {
	// Logger receives degradation and cleanup warnings. Defaults to NoOpLogger.
	Logger logging.Logger
}

// NewFSStore creates a filesystem blob store rooted at base. An empty base
// disables the store rather than erroring.
func NewFSStore(base string, optFns ...func(o *FSStoreOptions)) *FSStore {
	opts := FSStoreOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	base = strings.TrimSpace(base)
	if base == "" {
		opts.Logger.Warn("blob storage path not configured; blob store disabled")
		return &FSStore{logger: opts.Logger, disabled: true}
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		opts.Logger.Warn("blob storage unavailable; blob store disabled", "path", base, "error", err)
		return &FSStore{logger: opts.Logger, disabled: true}
	}
	return &FSStore{base: base, logger: opts.Logger}
}

// Disabled reports whether the store degraded to no-op mode.
func (s *FSStore) Disabled() bool { return s.disabled }

// Write stores the blob bytes as a file named by the canonical key. A
// disabled store returns ("", nil); a write failure is logged and surfaced
// as a *core.StorageError.
func (s *FSStore) Write(_ context.Context, entryID, instanceID, ext string, data []byte) (string, error) {
	if s.disabled {
		return "", nil
	}
	key := core.BlobKey(entryID, instanceID, ext)
	if err := os.WriteFile(filepath.Join(s.base, key), data, 0o644); err != nil {
		s.logger.Warn("blob write failed", "key", key, "error", err)
		return "", &core.StorageError{Op: "write blob", Err: err}
	}
	return key, nil
}

// Read returns the stored bytes for key, core.ErrBlobNotFound for a missing
// key, or (nil, nil) on a disabled store.
func (s *FSStore) Read(_ context.Context, key string) ([]byte, error) {
	if s.disabled {
		return nil, nil
	}
	data, err := os.ReadFile(filepath.Join(s.base, filepath.Base(key)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, core.ErrBlobNotFound
	}
	if err != nil {
		return nil, &core.StorageError{Op: "read blob", Err: err}
	}
	return data, nil
}

// DeleteByEntryPrefix removes every file whose name begins with the entry's
// prefix. Removal is best effort: individual failures are logged and the
// remaining matches are still attempted.
func (s *FSStore) DeleteByEntryPrefix(_ context.Context, entryID string) error {
	if s.disabled {
		return nil
	}
	names, err := s.list()
	if err != nil {
		return err
	}
	prefix := core.EntryPrefix(entryID)
	var firstErr error
	for _, name := range names {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if err := os.Remove(filepath.Join(s.base, name)); err != nil {
			s.logger.Warn("blob delete failed", "key", name, "error", err)
			if firstErr == nil {
				firstErr = &core.StorageError{Op: "delete blob", Err: err}
			}
		}
	}
	return firstErr
}

// Clear removes every blob file. Idempotent.
func (s *FSStore) Clear(_ context.Context) error {
	if s.disabled {
		return nil
	}
	names, err := s.list()
	if err != nil {
		return err
	}
	var firstErr error
	for _, name := range names {
		if err := os.Remove(filepath.Join(s.base, name)); err != nil && firstErr == nil {
			firstErr = &core.StorageError{Op: "delete blob", Err: err}
		}
	}
	return firstErr
}

// Stats reports blob count and total byte size.
func (s *FSStore) Stats(_ context.Context) (core.BlobStats, error) {
	if s.disabled {
		return core.BlobStats{}, nil
	}
	dirents, err := os.ReadDir(s.base)
	if err != nil {
		return core.BlobStats{}, &core.StorageError{Op: "stat blobs", Err: err}
	}
	var stats core.BlobStats
	for _, de := range dirents {
		if de.IsDir() {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		stats.Count++
		stats.TotalBytes += info.Size()
	}
	return stats, nil
}

func (s *FSStore) list() ([]string, error) {
	dirents, err := os.ReadDir(s.base)
	if err != nil {
		return nil, &core.StorageError{Op: "list blobs", Err: err}
	}
	names := make([]string, 0, len(dirents))
	for _, de := range dirents {
		if !de.IsDir() {
			names = append(names, de.Name())
		}
	}
	return names, nil
}
