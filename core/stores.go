package core

import "context"

// HistoryStore is an ordered, capacity-bounded metadata log of generation
// entries. Implementations must serialize mutation (single writer per store
// instance): concurrent Add calls apply on top of the latest committed value,
// never on a stale snapshot, and the list length never exceeds the configured
// capacity after any mutation completes.
//
// Implementations should be thread-safe. An uninitialized (never written)
// store lists empty rather than erroring.
type HistoryStore interface {
	// Add prepends the entry. If the resulting length exceeds capacity the
	// tail is trimmed and the trimmed entries are returned, oldest last, so
	// the caller can react (e.g. trigger blob cleanup).
	Add(ctx context.Context, entry HistoryEntry) ([]HistoryEntry, error)

	// Remove deletes the entry with the given id. Removing an unknown id is
	// not an error.
	Remove(ctx context.Context, id string) error

	// Clear removes every entry. Idempotent.
	Clear(ctx context.Context) error

	// List returns an ordered snapshot, most recent first. The slice is safe
	// for caller mutation.
	List(ctx context.Context) ([]HistoryEntry, error)

	// Len returns the number of retained entries.
	Len(ctx context.Context) (int, error)
}

// BlobStore is durable keyed byte storage with prefix delete, holding the
// out-of-line payloads referenced by HistoryEntry results.
//
// Graceful degradation is part of the contract: a store whose underlying
// medium is unavailable answers every call with zero values and a nil error.
// Callers must treat "no blob" as a legitimate degraded state (artifact
// unavailable), not a fatal condition. ErrBlobNotFound is reserved for a
// genuinely missing key on a healthy store.
type BlobStore interface {
	// Write stores data under the canonical key built from entryID,
	// instanceID and ext, returning that key. A degraded store returns
	// ("", nil).
	Write(ctx context.Context, entryID, instanceID, ext string, data []byte) (string, error)

	// Read returns the stored bytes for key, or ErrBlobNotFound.
	Read(ctx context.Context, key string) ([]byte, error)

	// DeleteByEntryPrefix removes every blob whose key begins with the
	// entry's prefix. Blobs of other entries are never touched.
	DeleteByEntryPrefix(ctx context.Context, entryID string) error

	// Clear removes every blob. Idempotent.
	Clear(ctx context.Context) error

	// Stats reports blob count and total byte size.
	Stats(ctx context.Context) (BlobStats, error)
}
