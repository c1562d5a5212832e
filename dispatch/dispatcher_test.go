package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/genfan/core"
)

func TestDispatcher_EmptyListReturnsImmediately(t *testing.T) {
	d := New()
	out, err := d.Execute(context.Background(), nil, func(context.Context, core.ModelInstance) (core.InvocationResult, error) {
		t.Fatal("invoke must not be called")
		return core.InvocationResult{}, nil
	})
	require.NoError(t, err)
	assert.Empty(t, out)
	// shared state never transitioned into loading
	assert.Empty(t, d.Snapshot())
}

func TestDispatcher_DuplicateInstanceIDRejected(t *testing.T) {
	d := New()
	_, err := d.Execute(context.Background(), []core.ModelInstance{{ID: "a"}, {ID: "a"}}, nil)
	assert.Error(t, err)

	_, err = d.Execute(context.Background(), []core.ModelInstance{{ModelID: "m"}}, nil)
	assert.Error(t, err)
}

func TestDispatcher_AllInstancesSettle(t *testing.T) {
	d := New()
	insts := instances("i1", "i2", "i3", "i4")

	out, err := d.Execute(context.Background(), insts, func(_ context.Context, inst core.ModelInstance) (core.InvocationResult, error) {
		return core.InvocationResult{Data: []byte(inst.ID), MIME: "text/plain"}, nil
	})
	require.NoError(t, err)
	require.Len(t, out, 4)
	for id, o := range out {
		assert.Equal(t, core.StatusComplete, o.Status)
		assert.Equal(t, []byte(id), o.Data)
		assert.Positive(t, o.Duration)
	}
}

func TestDispatcher_PartialFailureIsolated(t *testing.T) {
	// Scenario: three instances where instance 2 errors
	d := New()

	out, err := d.Execute(context.Background(), instances("i1", "i2", "i3"), func(_ context.Context, inst core.ModelInstance) (core.InvocationResult, error) {
		if inst.ID == "i2" {
			return core.InvocationResult{}, errors.New("provider exploded")
		}
		return core.InvocationResult{Data: []byte("ok")}, nil
	})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, core.StatusComplete, out["i1"].Status)
	assert.Equal(t, core.StatusError, out["i2"].Status)
	assert.Contains(t, out["i2"].Err, "provider exploded")
	assert.Equal(t, core.StatusComplete, out["i3"].Status)
}

func TestDispatcher_CostReportedOutOfBand(t *testing.T) {
	d := New()
	cost := int64(1200)

	out, err := d.Execute(context.Background(), instances("priced", "unpriced"), func(_ context.Context, inst core.ModelInstance) (core.InvocationResult, error) {
		if inst.ID == "priced" {
			return core.InvocationResult{Data: []byte("x"), CostMicrocents: &cost}, nil
		}
		return core.InvocationResult{Data: []byte("y")}, nil
	})
	require.NoError(t, err)
	require.NotNil(t, out["priced"].CostMicrocents)
	assert.Equal(t, int64(1200), *out["priced"].CostMicrocents)
	// absence means unknown, never implicitly zero
	assert.Nil(t, out["unpriced"].CostMicrocents)
}

func TestDispatcher_SupersessionDropsOlderGeneration(t *testing.T) {
	d := New()
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once

	slow := func(ctx context.Context, inst core.ModelInstance) (core.InvocationResult, error) {
		once.Do(func() { close(started) })
		select {
		case <-release:
			return core.InvocationResult{Data: []byte("late-" + inst.ID)}, nil
		case <-ctx.Done():
			return core.InvocationResult{}, ctx.Err()
		}
	}

	resultA := make(chan error, 1)
	go func() {
		_, err := d.Execute(context.Background(), instances("a1", "a2"), slow)
		resultA <- err
	}()
	<-started

	// dispatch B supersedes A
	outB, err := d.Execute(context.Background(), instances("b1"), func(context.Context, core.ModelInstance) (core.InvocationResult, error) {
		return core.InvocationResult{Data: []byte("fresh")}, nil
	})
	require.NoError(t, err)
	require.Len(t, outB, 1)
	assert.Equal(t, core.StatusComplete, outB["b1"].Status)

	require.ErrorIs(t, <-resultA, core.ErrCancelled)
	close(release)

	// no outcome from A is observable after B began
	snap := d.Snapshot()
	require.Len(t, snap, 1)
	_, hasB := snap["b1"]
	assert.True(t, hasB)
}

func TestDispatcher_CancelAfterPartialCompletion(t *testing.T) {
	// Scenario: cancelled after instance 1 completes but before instance 2
	// responds; instance 1's result must not survive the clear and instance
	// 2's late completion is dropped.
	d := New()
	firstDone := make(chan struct{})
	release := make(chan struct{})

	invoke := func(ctx context.Context, inst core.ModelInstance) (core.InvocationResult, error) {
		if inst.ID == "i1" {
			defer close(firstDone)
			return core.InvocationResult{Data: []byte("first")}, nil
		}
		select {
		case <-release:
			return core.InvocationResult{Data: []byte("late")}, nil
		case <-ctx.Done():
			return core.InvocationResult{}, ctx.Err()
		}
	}

	done := make(chan error, 1)
	go func() {
		_, err := d.Execute(context.Background(), instances("i1", "i2"), invoke)
		done <- err
	}()

	<-firstDone
	// wait until i1's completion is committed
	require.Eventually(t, func() bool {
		return d.Snapshot()["i1"].Status == core.StatusComplete
	}, time.Second, time.Millisecond)

	d.Clear()
	close(release)

	require.ErrorIs(t, <-done, core.ErrCancelled)
	// exposed state reverted to empty, no further per-instance updates
	assert.Empty(t, d.Snapshot())
}

func TestDispatcher_ParentContextCancellation(t *testing.T) {
	d := New()
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := d.Execute(ctx, instances("i1"), func(ctx context.Context, _ core.ModelInstance) (core.InvocationResult, error) {
		<-ctx.Done()
		return core.InvocationResult{}, ctx.Err()
	})
	require.ErrorIs(t, err, core.ErrCancelled)
}

func TestDispatcher_WatcherSeesPendingBatchThenSettlement(t *testing.T) {
	d := New()
	ch, cancelSub := d.Watch().Subscribe()
	defer cancelSub()
	<-ch // initial empty snapshot

	blocker := make(chan struct{})
	go func() {
		_, _ = d.Execute(context.Background(), instances("i1", "i2"), func(context.Context, core.ModelInstance) (core.InvocationResult, error) {
			<-blocker
			return core.InvocationResult{Data: []byte("x")}, nil
		})
	}()

	// first observed non-empty snapshot is the complete pending batch
	var batch map[string]core.Outcome
	require.Eventually(t, func() bool {
		select {
		case batch = <-ch:
			return len(batch) > 0
		default:
			return false
		}
	}, time.Second, time.Millisecond)
	require.Len(t, batch, 2)
	for _, o := range batch {
		assert.Equal(t, core.StatusLoading, o.Status)
	}

	close(blocker)
	require.Eventually(t, func() bool {
		snap := d.Snapshot()
		return snap["i1"].Status == core.StatusComplete && snap["i2"].Status == core.StatusComplete
	}, time.Second, time.Millisecond)
}

func TestDispatcher_SequentialDispatchesReuseState(t *testing.T) {
	d := New()
	ok := func(_ context.Context, inst core.ModelInstance) (core.InvocationResult, error) {
		return core.InvocationResult{Data: []byte(inst.ID)}, nil
	}

	out1, err := d.Execute(context.Background(), instances("a"), ok)
	require.NoError(t, err)
	require.Len(t, out1, 1)

	out2, err := d.Execute(context.Background(), instances("b", "c"), ok)
	require.NoError(t, err)
	require.Len(t, out2, 2)
	_, hasA := out2["a"]
	assert.False(t, hasA)
}
