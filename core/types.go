package core

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewID returns a new UUID string used for history entry identifiers.
func NewID() string { return uuid.NewString() }

// ModelInstance is one configured model target participating in a dispatch.
// Identity is ID, not ModelID: the same model may appear as several instances
// with different parameters (e.g. two voices of the same TTS model).
type ModelInstance struct {
	ID      string         `json:"id"`
	ModelID string         `json:"model_id"`
	Label   string         `json:"label,omitempty"`
	Params  map[string]any `json:"params,omitempty"`
}

// DisplayName returns the label if set, falling back to the model identifier.
func (m ModelInstance) DisplayName() string {
	if m.Label != "" {
		return m.Label
	}
	return m.ModelID
}

// OutcomeStatus is the lifecycle state of one instance within a dispatch.
type OutcomeStatus string

const (
	// StatusLoading marks an instance whose invocation has not settled yet.
	StatusLoading OutcomeStatus = "loading"
	// StatusComplete marks a successfully settled instance. Terminal.
	StatusComplete OutcomeStatus = "complete"
	// StatusError marks a failed instance. Terminal.
	StatusError OutcomeStatus = "error"
)

// Terminal reports whether the status admits no further transitions.
func (s OutcomeStatus) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// Outcome is the per-instance result of a dispatch. Once Status is terminal
// the outcome never changes; trackers must reject transitions out of a
// terminal state.
//
// CostMicrocents is a pointer on purpose: a nil cost means "unknown", which
// is distinct from a reported cost of zero.
type Outcome struct {
	InstanceID     string        `json:"instance_id"`
	ModelID        string        `json:"model_id"`
	Label          string        `json:"label,omitempty"`
	Status         OutcomeStatus `json:"status"`
	Data           []byte        `json:"data,omitempty"`
	MIME           string        `json:"mime,omitempty"`
	Err            string        `json:"error,omitempty"`
	Duration       time.Duration `json:"duration_ms,omitempty"`
	CostMicrocents *int64        `json:"cost_microcents,omitempty"`
}

// InvocationResult is the successful payload returned by an Invoker for one
// instance. Cost reporting is optional and out-of-band; nil means unknown.
type InvocationResult struct {
	Data           []byte
	MIME           string
	CostMicrocents *int64
}

// Invoker is the opaque provider call supplied by the caller: given one
// instance and the dispatch generation's cancellation context it produces a
// payload (and optionally a cost report) or an error. Cancellation is
// advisory for the call itself but mandatory for state updates.
type Invoker func(ctx context.Context, instance ModelInstance) (InvocationResult, error)

// HistoryEntry is a persisted record of one settled generation. Entries are
// immutable once created: they are only ever removed, either explicitly or
// by capacity eviction.
type HistoryEntry struct {
	ID        string         `json:"id"`
	CreatedAt int64          `json:"created_at"` // epoch millis
	Options   map[string]any `json:"options,omitempty"`
	Results   []EntryResult  `json:"results"`
}

// NewHistoryEntry allocates an entry with a fresh id and current timestamp.
func NewHistoryEntry(options map[string]any, results []EntryResult) HistoryEntry {
	return HistoryEntry{
		ID:        NewID(),
		CreatedAt: time.Now().UnixMilli(),
		Options:   options,
		Results:   results,
	}
}

// EntryResult is one instance's contribution to a HistoryEntry. Small
// payloads (text) are stored inline in Payload; large payloads (audio,
// image bytes) live out-of-line in a BlobStore and are referenced by
// BlobKey. A result with neither and an empty Err represents an artifact
// that degraded to unavailable at persistence time.
type EntryResult struct {
	InstanceID     string `json:"instance_id"`
	ModelID        string `json:"model_id"`
	Label          string `json:"label,omitempty"`
	Payload        []byte `json:"payload,omitempty"`
	MIME           string `json:"mime,omitempty"`
	BlobKey        string `json:"blob_key,omitempty"`
	Err            string `json:"error,omitempty"`
	CostMicrocents *int64 `json:"cost_microcents,omitempty"`
}

// BlobStats summarizes the contents of a BlobStore.
type BlobStats struct {
	Count      int   `json:"count"`
	TotalBytes int64 `json:"total_bytes"`
}

// BlobKey builds the canonical blob key {entryID}_{sanitizedInstanceID}.{ext}.
// The instance id is caller supplied and not guaranteed to be storage-key
// safe, so it is sanitized before being embedded.
func BlobKey(entryID, instanceID, ext string) string {
	var b strings.Builder
	b.WriteString(entryID)
	b.WriteByte('_')
	b.WriteString(SanitizeKeyPart(instanceID))
	if ext != "" {
		b.WriteByte('.')
		b.WriteString(ext)
	}
	return b.String()
}

// EntryPrefix returns the key prefix shared by every blob belonging to the
// given entry. Prefix deletion uses this to achieve prefix isolation:
// "e1" must never match blobs of entry "e10".
func EntryPrefix(entryID string) string { return entryID + "_" }

// SanitizeKeyPart maps any rune outside [A-Za-z0-9._-] to '_' so the result
// is safe to embed in filesystem paths and object storage keys.
func SanitizeKeyPart(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '_' || r == '-':
			return r
		default:
			return '_'
		}
	}, s)
}
