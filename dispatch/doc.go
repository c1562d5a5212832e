// Package dispatch provides concurrent fan-out execution of a generation
// request against a set of independently configured model instances.
//
// The Dispatcher owns a single shared result state: starting a new dispatch
// supersedes (cancels) the one still in flight, and late writes from a
// superseded generation are silently dropped. Each instance settles in
// isolation (settle-all, never fail-fast) through the Tracker's per-instance
// state machine: loading -> complete | error, both terminal.
//
// Observers subscribe to immutable outcome-map snapshots; every committed
// mutation publishes a complete, consistent point-in-time value.
package dispatch
