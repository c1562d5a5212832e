package core

import "sync"

// Watchable holds a latest value and broadcasts committed updates to
// registered observers. It is the explicit observer-list generalization of a
// reactive subscription: Set publishes a complete, consistent point-in-time
// value synchronously with respect to the mutation that produced it, and
// late subscribers immediately receive the current value.
//
// Observers receive values on buffered channels; a subscriber that falls
// behind has its oldest pending value dropped in favour of the newest, so a
// slow observer can never block a committing writer.
type Watchable[T any] struct {
	mu      sync.Mutex
	value   T
	subs    map[int]chan T
	nextSub int
}

// NewWatchable constructs a Watchable seeded with the given initial value.
func NewWatchable[T any](initial T) *Watchable[T] {
	return &Watchable[T]{value: initial, subs: map[int]chan T{}}
}

// Get returns the latest committed value.
func (w *Watchable[T]) Get() T {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.value
}

// Set commits a new value and notifies every subscriber.
func (w *Watchable[T]) Set(v T) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.value = v
	for _, ch := range w.subs {
		w.push(ch, v)
	}
}

// push delivers without blocking; drops the oldest buffered value if full.
func (w *Watchable[T]) push(ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Subscribe registers an observer. The returned channel immediately carries
// the current value, then every subsequent commit. The cancel function
// unregisters the observer and closes the channel.
func (w *Watchable[T]) Subscribe() (<-chan T, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.nextSub
	w.nextSub++
	ch := make(chan T, 1)
	ch <- w.value
	w.subs[id] = ch

	cancel := func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if c, ok := w.subs[id]; ok {
			delete(w.subs, id)
			close(c)
		}
	}
	return ch, cancel
}
