package blob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/genfan/core"
)

func TestFSStore_WriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewFSStore(t.TempDir())
	require.False(t, s.Disabled())

	payload := []byte{0x89, 'P', 'N', 'G'}
	key, err := s.Write(ctx, "e1", "dall-e/3", "png", payload)
	require.NoError(t, err)
	assert.Equal(t, "e1_dall-e_3.png", key)

	data, err := s.Read(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestFSStore_ReadMissingKey(t *testing.T) {
	s := NewFSStore(t.TempDir())
	_, err := s.Read(context.Background(), "missing.png")
	assert.ErrorIs(t, err, core.ErrBlobNotFound)
}

func TestFSStore_ReadAfterDeleteReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	s := NewFSStore(t.TempDir())

	key, _ := s.Write(ctx, "e1", "i1", "mp3", []byte("audio"))
	require.NoError(t, s.DeleteByEntryPrefix(ctx, "e1"))

	_, err := s.Read(ctx, key)
	assert.ErrorIs(t, err, core.ErrBlobNotFound)
}

func TestFSStore_PrefixIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewFSStore(t.TempDir())

	_, _ = s.Write(ctx, "e1", "a", "png", []byte("1"))
	k10, _ := s.Write(ctx, "e10", "a", "png", []byte("10"))

	require.NoError(t, s.DeleteByEntryPrefix(ctx, "e1"))

	data, err := s.Read(ctx, k10)
	require.NoError(t, err)
	assert.Equal(t, []byte("10"), data)
}

func TestFSStore_StatsAndClear(t *testing.T) {
	ctx := context.Background()
	s := NewFSStore(t.TempDir())

	_, _ = s.Write(ctx, "e1", "a", "bin", make([]byte, 5))
	_, _ = s.Write(ctx, "e2", "b", "bin", make([]byte, 7))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Count)
	assert.Equal(t, int64(12), stats.TotalBytes)

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx)) // idempotent

	stats, _ = s.Stats(ctx)
	assert.Equal(t, core.BlobStats{}, stats)
}

func TestFSStore_DisabledStoreNoOps(t *testing.T) {
	ctx := context.Background()
	s := NewFSStore("")
	require.True(t, s.Disabled())

	key, err := s.Write(ctx, "e1", "i1", "mp3", []byte("audio"))
	assert.NoError(t, err)
	assert.Empty(t, key)

	data, err := s.Read(ctx, "anything")
	assert.NoError(t, err)
	assert.Nil(t, data)

	assert.NoError(t, s.DeleteByEntryPrefix(ctx, "e1"))
	assert.NoError(t, s.Clear(ctx))

	stats, err := s.Stats(ctx)
	assert.NoError(t, err)
	assert.Equal(t, core.BlobStats{}, stats)
}
