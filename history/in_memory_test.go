package history

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/genfan/core"
)

// Interface compliance (compile-time assertion)
var _ core.HistoryStore = (*InMemoryStore)(nil)

func entry(id string) core.HistoryEntry {
	return core.HistoryEntry{ID: id, CreatedAt: 1}
}

func TestInMemoryStore_AddOrdersMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore(10)

	for _, id := range []string{"e1", "e2", "e3"} {
		evicted, err := s.Add(ctx, entry(id))
		require.NoError(t, err)
		assert.Empty(t, evicted)
	}

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "e3", list[0].ID)
	assert.Equal(t, "e2", list[1].ID)
	assert.Equal(t, "e1", list[2].ID)
}

func TestInMemoryStore_EvictsOldestPastCapacity(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore(2)

	_, _ = s.Add(ctx, entry("e1"))
	_, _ = s.Add(ctx, entry("e2"))
	evicted, err := s.Add(ctx, entry("e3"))
	require.NoError(t, err)

	require.Len(t, evicted, 1)
	assert.Equal(t, "e1", evicted[0].ID)

	list, _ := s.List(ctx)
	require.Len(t, list, 2)
	assert.Equal(t, "e3", list[0].ID)
	assert.Equal(t, "e2", list[1].ID)
}

func TestInMemoryStore_CapacityNeverExceeded(t *testing.T) {
	ctx := context.Background()
	const k = 5
	s := NewInMemoryStore(k)

	for i := 0; i < 20; i++ {
		_, err := s.Add(ctx, entry(fmt.Sprintf("e%d", i)))
		require.NoError(t, err)
		n, _ := s.Len(ctx)
		assert.LessOrEqual(t, n, k)
	}
	n, _ := s.Len(ctx)
	assert.Equal(t, k, n)
}

func TestInMemoryStore_ZeroCapacityIsUnbounded(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore(0)
	for i := 0; i < 100; i++ {
		evicted, err := s.Add(ctx, entry(fmt.Sprintf("e%d", i)))
		require.NoError(t, err)
		assert.Empty(t, evicted)
	}
	n, _ := s.Len(ctx)
	assert.Equal(t, 100, n)
}

func TestInMemoryStore_Remove(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore(10)
	_, _ = s.Add(ctx, entry("e1"))
	_, _ = s.Add(ctx, entry("e2"))

	require.NoError(t, s.Remove(ctx, "e1"))
	list, _ := s.List(ctx)
	require.Len(t, list, 1)
	assert.Equal(t, "e2", list[0].ID)

	// unknown id is a no-op
	require.NoError(t, s.Remove(ctx, "nope"))
}

func TestInMemoryStore_ClearIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore(10)
	_, _ = s.Add(ctx, entry("e1"))

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx))

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestInMemoryStore_ListSnapshotIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore(10)
	_, _ = s.Add(ctx, entry("e1"))

	list, _ := s.List(ctx)
	list[0].ID = "mutated"

	list2, _ := s.List(ctx)
	assert.Equal(t, "e1", list2[0].ID)
}

func TestInMemoryStore_ConcurrentAddsLoseNoUpdates(t *testing.T) {
	ctx := context.Background()
	const n = 100
	s := NewInMemoryStore(n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Add(ctx, entry(fmt.Sprintf("e%d", i)))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	count, _ := s.Len(ctx)
	assert.Equal(t, n, count)
}
