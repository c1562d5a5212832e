package blob

import (
	"context"
	"strings"
	"sync"

	"github.com/hupe1980/genfan/core"
)

// InMemoryStore is a trivial in-process BlobStore implementation useful for
// tests, examples and single-process prototypes. It keeps all blobs in a map
// guarded by an RWMutex. Data is copied on write / read to avoid accidental
// external mutation of internal buffers.
//
// This implementation is intentionally minimal; blobs do not survive process
// restarts. For production, prefer the filesystem or S3 backed stores.
type InMemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewInMemoryStore returns an empty in-memory blob store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{blobs: make(map[string][]byte)}
}

// Write stores (or overwrites) the blob bytes under the canonical key.
// The input slice is copied before storage.
func (s *InMemoryStore) Write(_ context.Context, entryID, instanceID, ext string, data []byte) (string, error) {
	key := core.BlobKey(entryID, instanceID, ext)
	cp := make([]byte, len(data))
	copy(cp, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = cp
	return key, nil
}

// Read returns a copy of the stored bytes or core.ErrBlobNotFound.
func (s *InMemoryStore) Read(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, core.ErrBlobNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// DeleteByEntryPrefix removes every blob belonging to the entry. Blobs of
// other entries are never touched.
func (s *InMemoryStore) DeleteByEntryPrefix(_ context.Context, entryID string) error {
	prefix := core.EntryPrefix(entryID)

	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.blobs {
		if strings.HasPrefix(key, prefix) {
			delete(s.blobs, key)
		}
	}
	return nil
}

// Clear removes every blob. Idempotent.
func (s *InMemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs = make(map[string][]byte)
	return nil
}

// Stats reports blob count and total byte size.
func (s *InMemoryStore) Stats(_ context.Context) (core.BlobStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := core.BlobStats{Count: len(s.blobs)}
	for _, data := range s.blobs {
		stats.TotalBytes += int64(len(data))
	}
	return stats, nil
}
