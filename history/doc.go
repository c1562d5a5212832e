// Package history contains concrete implementations of the core.HistoryStore.
//
// The canonical HistoryStore interface lives in the core package to avoid
// dependency cycles and keep domain contracts central. Implementation packages
// like this one (in-memory, JSON file, databases, etc.) provide retention
// backends that can be swapped without touching calling code.
//
// Both implementations here share the same eviction discipline: Add prepends,
// then trims from the tail past capacity and returns the trimmed entries so
// callers can clean up associated blobs. Callers should depend on the core
// interface rather than concrete types.
package history
