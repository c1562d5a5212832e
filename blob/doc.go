// Package blob contains concrete implementations of the core.BlobStore.
//
// The canonical BlobStore interface lives in the core package to avoid
// dependency cycles and keep domain contracts central. This package provides
// an in-memory store for tests and prototypes and a filesystem store for
// single-node durability; the blob/s3 subpackage provides an object storage
// backend for production deployments.
//
// All implementations honour the degradation contract: a store whose medium
// is unavailable turns every operation into a no-op returning zero values,
// so a missing blob is a degraded artifact, never a fatal error.
package blob
