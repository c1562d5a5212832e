// Package core provides the foundational domain types and interfaces used by
// GenFan. It defines the core abstractions for:
//
//   - ModelInstance (one configured model target in a fan-out dispatch)
//   - Outcome (the per-instance result state machine value)
//   - HistoryEntry / EntryResult (immutable persisted generation records)
//   - Pluggable stores for bounded history metadata and out-of-line blobs
//   - Watchable (a latest-value broadcast primitive for result observers)
//
// The package intentionally keeps implementation concerns (persistence, the
// dispatcher, concrete provider invokers) out of scope, exposing small
// interfaces to enable custom backends and extensions. All exported
// identifiers include concise documentation to aid discoverability and
// external consumption.
package core
