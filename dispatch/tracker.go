package dispatch

import (
	"time"

	"github.com/hupe1980/genfan/core"
)

// Tracker is the per-instance outcome state machine for one dispatch. Every
// mutation produces a brand-new immutable map snapshot published through a
// core.Watchable, so observers never see a partially mutated batch.
//
// Legal transitions are loading -> complete and loading -> error; both are
// terminal. A transition out of a terminal state, or for an unknown
// instance, is dropped and reported via the boolean return.
//
// Tracker itself performs no locking beyond the Watchable's: callers that
// need check-then-mutate atomicity (the Dispatcher's generation guard)
// serialize externally.
type Tracker struct {
	watch *core.Watchable[map[string]core.Outcome]
}

// NewTracker returns a tracker holding the empty snapshot.
func NewTracker() *Tracker {
	return &Tracker{watch: core.NewWatchable(map[string]core.Outcome{})}
}

// Init atomically installs all instances as loading in a single snapshot,
// before any network activity begins, so observers see a complete pending
// batch rather than instances appearing one at a time.
func (t *Tracker) Init(instances []core.ModelInstance) {
	next := make(map[string]core.Outcome, len(instances))
	for _, inst := range instances {
		next[inst.ID] = core.Outcome{
			InstanceID: inst.ID,
			ModelID:    inst.ModelID,
			Label:      inst.Label,
			Status:     core.StatusLoading,
		}
	}
	t.watch.Set(next)
}

// Complete transitions the instance to its terminal success state. Returns
// false if the instance is unknown or already terminal.
func (t *Tracker) Complete(instanceID string, data []byte, mime string, dur time.Duration, cost *int64) bool {
	return t.transition(instanceID, func(o core.Outcome) core.Outcome {
		o.Status = core.StatusComplete
		o.Data = data
		o.MIME = mime
		o.Duration = dur
		o.CostMicrocents = cost
		return o
	})
}

// Fail transitions the instance to its terminal error state. Returns false
// if the instance is unknown or already terminal.
func (t *Tracker) Fail(instanceID, errMsg string, dur time.Duration) bool {
	return t.transition(instanceID, func(o core.Outcome) core.Outcome {
		o.Status = core.StatusError
		o.Err = errMsg
		o.Duration = dur
		return o
	})
}

func (t *Tracker) transition(instanceID string, apply func(core.Outcome) core.Outcome) bool {
	current := t.watch.Get()
	o, ok := current[instanceID]
	if !ok || o.Status.Terminal() {
		return false
	}

	next := make(map[string]core.Outcome, len(current))
	for k, v := range current {
		next[k] = v
	}
	next[instanceID] = apply(o)
	t.watch.Set(next)
	return true
}

// Reset clears the tracker back to the empty snapshot.
func (t *Tracker) Reset() {
	t.watch.Set(map[string]core.Outcome{})
}

// Snapshot returns a copy of the current outcome map, safe for caller
// mutation.
func (t *Tracker) Snapshot() map[string]core.Outcome {
	current := t.watch.Get()
	out := make(map[string]core.Outcome, len(current))
	for k, v := range current {
		out[k] = v
	}
	return out
}

// Settled reports whether no instance is still loading. An empty tracker is
// settled.
func (t *Tracker) Settled() bool {
	for _, o := range t.watch.Get() {
		if !o.Status.Terminal() {
			return false
		}
	}
	return true
}

// Watch exposes the underlying snapshot broadcast for subscription.
func (t *Tracker) Watch() *core.Watchable[map[string]core.Outcome] {
	return t.watch
}
