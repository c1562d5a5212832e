package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/genfan/core"
	"github.com/hupe1980/genfan/logging"
)

// Options configures a Dispatcher.
type Options struct {
	// Logger receives per-invocation and per-dispatch records. Defaults to
	// NoOpLogger.
	Logger logging.Logger
}

// Dispatcher executes generation requests against a set of model instances
// concurrently, tracking each instance's progress to completion or failure in
// isolation.
//
// At most one logical dispatch owns the shared result state at a time:
// Execute cancels any dispatch still in flight before installing the new
// pending batch. All writes are guarded by a generation counter; a write
// from a superseded generation is silently dropped.
type Dispatcher struct {
	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	tracker    *Tracker
	logger     logging.Logger
}

// New returns a Dispatcher with an empty result state.
func New(optFns ...func(o *Options)) *Dispatcher {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Dispatcher{tracker: NewTracker(), logger: opts.Logger}
}

// Execute runs one fan-out dispatch and blocks until every instance settled
// or the generation was cancelled.
//
// The returned map has exactly one terminal outcome per instance. Instance
// failures are isolated: they surface in the map, never as the returned
// error (settle-all, never fail-fast). The error is non-nil only for input
// validation failures and for cancellation/supersession, reported as
// core.ErrCancelled.
//
// An empty instance list returns an empty map immediately without
// transitioning the shared state into loading.
func (d *Dispatcher) Execute(ctx context.Context, instances []core.ModelInstance, invoke core.Invoker) (map[string]core.Outcome, error) {
	if len(instances) == 0 {
		return map[string]core.Outcome{}, nil
	}
	if err := validateInstances(instances); err != nil {
		return nil, err
	}

	genCtx, gen := d.begin(ctx, instances)
	start := time.Now()

	var wg sync.WaitGroup
	for _, inst := range instances {
		wg.Add(1)
		go func(inst core.ModelInstance) {
			defer wg.Done()
			d.runInstance(genCtx, gen, inst, invoke)
		}(inst)
	}
	wg.Wait()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.generation != gen || genCtx.Err() != nil {
		d.logger.Info("dispatch cancelled", "instances", len(instances), "duration", time.Since(start))
		return nil, core.ErrCancelled
	}

	snapshot := d.tracker.Snapshot()
	succeeded := 0
	for _, o := range snapshot {
		if o.Status == core.StatusComplete {
			succeeded++
		}
	}
	d.logger.Info("dispatch settled", "instances", len(instances), "succeeded", succeeded, "duration", time.Since(start))
	return snapshot, nil
}

// begin supersedes any in-flight generation and installs the pending batch
// atomically under the dispatcher lock.
func (d *Dispatcher) begin(ctx context.Context, instances []core.ModelInstance) (context.Context, uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cancel != nil {
		d.cancel()
	}
	genCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.generation++
	d.tracker.Init(instances)
	return genCtx, d.generation
}

// runInstance performs one invocation with monotonic duration measurement
// and isolated error capture, committing the terminal outcome only if the
// generation is still live.
func (d *Dispatcher) runInstance(genCtx context.Context, gen uint64, inst core.ModelInstance, invoke core.Invoker) {
	start := time.Now()
	result, err := invoke(genCtx, inst)
	dur := time.Since(start)

	if err != nil {
		ierr := &core.InvocationError{InstanceID: inst.ID, ModelID: inst.ModelID, Err: err}
		if d.commit(genCtx, gen, func() { d.tracker.Fail(inst.ID, err.Error(), dur) }) {
			d.logger.Warn("invocation failed", "instance_id", inst.ID, "model", inst.ModelID, "duration", dur, "error", ierr.Error())
		}
		return
	}

	if d.commit(genCtx, gen, func() { d.tracker.Complete(inst.ID, result.Data, result.MIME, dur, result.CostMicrocents) }) {
		d.logger.Debug("invocation completed", "instance_id", inst.ID, "model", inst.ModelID, "duration", dur)
	}
}

// commit applies fn only while the generation is live; superseded or
// cancelled generations never touch shared state.
func (d *Dispatcher) commit(genCtx context.Context, gen uint64, fn func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.generation != gen || genCtx.Err() != nil {
		return false
	}
	fn()
	return true
}

// Clear cancels the active generation and resets the exposed state to empty
// without emitting further per-instance updates.
func (d *Dispatcher) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.generation++
	d.tracker.Reset()
}

// Snapshot returns the current outcome map.
func (d *Dispatcher) Snapshot() map[string]core.Outcome {
	return d.tracker.Snapshot()
}

// Watch exposes the outcome snapshot broadcast for subscription.
func (d *Dispatcher) Watch() *core.Watchable[map[string]core.Outcome] {
	return d.tracker.Watch()
}

func validateInstances(instances []core.ModelInstance) error {
	seen := make(map[string]struct{}, len(instances))
	for _, inst := range instances {
		if inst.ID == "" {
			return fmt.Errorf("instance with empty id (model %s)", inst.ModelID)
		}
		if _, dup := seen[inst.ID]; dup {
			return fmt.Errorf("duplicate instance id %q", inst.ID)
		}
		seen[inst.ID] = struct{}{}
	}
	return nil
}
