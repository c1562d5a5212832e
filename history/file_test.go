package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/genfan/core"
)

// Interface compliance (compile-time assertion)
var _ core.HistoryStore = (*FileStore)(nil)

func TestFileStore_MissingFileListsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	s, err := NewFileStore(path, 10)
	require.NoError(t, err)

	list, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestFileStore_RoundTripAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.json")

	s, err := NewFileStore(path, 10)
	require.NoError(t, err)

	e := core.NewHistoryEntry(map[string]any{"voice": "alloy"}, []core.EntryResult{
		{InstanceID: "i1", ModelID: "tts-1", BlobKey: "x_y.mp3"},
		{InstanceID: "i2", ModelID: "tts-1", Err: "boom"},
	})
	_, err = s.Add(ctx, e)
	require.NoError(t, err)

	// reopen from disk
	s2, err := NewFileStore(path, 10)
	require.NoError(t, err)
	list, err := s2.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, e.ID, list[0].ID)
	require.Len(t, list[0].Results, 2)
	assert.Equal(t, "x_y.mp3", list[0].Results[0].BlobKey)
	assert.Equal(t, "boom", list[0].Results[1].Err)
}

func TestFileStore_EvictionPersisted(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.json")

	s, err := NewFileStore(path, 2)
	require.NoError(t, err)

	_, _ = s.Add(ctx, entry("e1"))
	_, _ = s.Add(ctx, entry("e2"))
	evicted, err := s.Add(ctx, entry("e3"))
	require.NoError(t, err)
	require.Len(t, evicted, 1)
	assert.Equal(t, "e1", evicted[0].ID)

	s2, err := NewFileStore(path, 2)
	require.NoError(t, err)
	list, _ := s2.List(ctx)
	require.Len(t, list, 2)
	assert.Equal(t, "e3", list[0].ID)
}

func TestFileStore_RemoveAndClearPersist(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.json")

	s, _ := NewFileStore(path, 10)
	_, _ = s.Add(ctx, entry("e1"))
	_, _ = s.Add(ctx, entry("e2"))

	require.NoError(t, s.Remove(ctx, "e2"))
	s2, _ := NewFileStore(path, 10)
	list, _ := s2.List(ctx)
	require.Len(t, list, 1)

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx)) // idempotent
	s3, _ := NewFileStore(path, 10)
	list, _ = s3.List(ctx)
	assert.Empty(t, list)
}

func TestFileStore_CorruptFileErrorsOnOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore(path, 10)
	assert.Error(t, err)
}

func TestFileStore_PersistFailureKeepsMemoryState(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced for root")
	}

	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "history.json")

	s, err := NewFileStore(path, 10)
	require.NoError(t, err)
	_, err = s.Add(ctx, entry("e1"))
	require.NoError(t, err)

	// make the directory unwritable so the next persist fails
	require.NoError(t, os.Chmod(dir, 0o555))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	_, err = s.Add(ctx, entry("e2"))
	var serr *core.StorageError
	require.ErrorAs(t, err, &serr)

	// in-memory list stays the source of truth for the session
	list, lerr := s.List(ctx)
	require.NoError(t, lerr)
	require.Len(t, list, 2)
	assert.Equal(t, "e2", list[0].ID)
}
