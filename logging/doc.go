// Package logging provides a minimal logging interface and adapters for GenFan.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) that the dispatcher and stores use for observability. This
// package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - GenFanLogger with contextual helpers (component, domain, dispatch)
//
// Usage:
//
//	logger := logging.NewLogger(nil)
//	gf := genfan.New(genfan.WithLogger(logger))
//
// The design intentionally keeps the interface minimal to avoid vendor
// lock-in while supporting structured logging where available.
package logging
