package archive

import (
	"context"
	"errors"
	"strings"

	"github.com/hupe1980/genfan/core"
	"github.com/hupe1980/genfan/logging"
)

// Options configures an Archive.
type Options struct {
	// Logger receives cleanup and degradation warnings. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Archive persists settled generations for one domain. Large successful
// payloads go out-of-line through the BlobStore and are referenced by key;
// small text payloads stay inline in the history metadata, keeping the
// metadata log cheap to list.
type Archive struct {
	history core.HistoryStore
	blobs   core.BlobStore
	logger  logging.Logger
}

// New composes a history store and a blob store into an Archive.
func New(history core.HistoryStore, blobs core.BlobStore, optFns ...func(o *Options)) *Archive {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Archive{history: history, blobs: blobs, logger: opts.Logger}
}

// Record persists one settled dispatch as an immutable HistoryEntry. Results
// must be ordered (dispatch instance order); error outcomes are recorded
// alongside successes so a partially failed generation keeps its per-instance
// error messages. With no successful result at all, nothing is persisted and
// (nil, nil) is returned.
//
// Blob write failures degrade the affected result to "artifact unavailable"
// (no key, no payload) instead of failing the record. Eviction triggered by
// the insert fires best-effort blob cleanup for each evicted entry; cleanup
// failures are logged, not returned, matching the fire-and-forget behavior
// of the eviction path.
func (a *Archive) Record(ctx context.Context, options map[string]any, results []core.Outcome) (*core.HistoryEntry, error) {
	succeeded := 0
	for _, o := range results {
		if o.Status == core.StatusComplete {
			succeeded++
		}
	}
	if succeeded == 0 {
		return nil, nil
	}

	entry := core.NewHistoryEntry(options, nil)
	entry.Results = make([]core.EntryResult, 0, len(results))
	for _, o := range results {
		entry.Results = append(entry.Results, a.buildResult(ctx, entry.ID, o))
	}

	evicted, err := a.history.Add(ctx, entry)
	for _, old := range evicted {
		if derr := a.blobs.DeleteByEntryPrefix(ctx, old.ID); derr != nil {
			a.logger.Warn("evicted entry blob cleanup failed", "entry_id", old.ID, "error", derr)
		}
	}
	if err != nil {
		// persistence failure is surfaced but the in-memory entry stands
		a.logger.Warn("history persistence failed", "entry_id", entry.ID, "error", err)
		return &entry, err
	}
	return &entry, nil
}

// buildResult converts one terminal outcome into its persisted form,
// applying the inline / out-of-line split.
func (a *Archive) buildResult(ctx context.Context, entryID string, o core.Outcome) core.EntryResult {
	res := core.EntryResult{
		InstanceID:     o.InstanceID,
		ModelID:        o.ModelID,
		Label:          o.Label,
		CostMicrocents: o.CostMicrocents,
	}
	if o.Status != core.StatusComplete {
		res.Err = o.Err
		return res
	}

	res.MIME = o.MIME
	if InlineMIME(o.MIME) {
		res.Payload = o.Data
		return res
	}

	key, err := a.blobs.Write(ctx, entryID, o.InstanceID, ExtForMIME(o.MIME), o.Data)
	if err != nil || key == "" {
		// degraded: the result survives without its artifact
		a.logger.Warn("blob write degraded, artifact unavailable", "entry_id", entryID, "instance_id", o.InstanceID, "error", err)
		return res
	}
	res.BlobKey = key
	return res
}

// Remove deletes the entry and then every blob carrying its key prefix.
// Metadata removal happens first so readers never observe an entry whose
// blobs are already gone. A metadata persistence failure is returned after
// blob cleanup still ran, since the in-memory removal already took effect.
func (a *Archive) Remove(ctx context.Context, id string) error {
	rerr := a.history.Remove(ctx, id)
	if derr := a.blobs.DeleteByEntryPrefix(ctx, id); derr != nil {
		a.logger.Warn("entry blob cleanup failed", "entry_id", id, "error", derr)
	}
	return rerr
}

// Clear removes every entry and every blob. Idempotent.
func (a *Archive) Clear(ctx context.Context) error {
	if err := a.history.Clear(ctx); err != nil {
		return err
	}
	return a.blobs.Clear(ctx)
}

// List returns the retained entries, most recent first.
func (a *Archive) List(ctx context.Context) ([]core.HistoryEntry, error) {
	return a.history.List(ctx)
}

// Resolve returns the payload bytes for one persisted result: the inline
// payload if present, otherwise the referenced blob. An unavailable artifact
// (degraded store, missing blob) resolves to nil without error.
func (a *Archive) Resolve(ctx context.Context, res core.EntryResult) ([]byte, error) {
	if len(res.Payload) > 0 {
		cp := make([]byte, len(res.Payload))
		copy(cp, res.Payload)
		return cp, nil
	}
	if res.BlobKey == "" {
		return nil, nil
	}
	data, err := a.blobs.Read(ctx, res.BlobKey)
	if err != nil {
		if errors.Is(err, core.ErrBlobNotFound) {
			return nil, nil
		}
		a.logger.Warn("blob read failed", "key", res.BlobKey, "error", err)
		return nil, nil
	}
	return data, nil
}

// Stats reports the blob store's count and total byte size.
func (a *Archive) Stats(ctx context.Context) (core.BlobStats, error) {
	return a.blobs.Stats(ctx)
}

// InlineMIME reports whether payloads of the given MIME type are stored
// inline in history metadata rather than out-of-line in the blob store.
// Text-like payloads (transcripts, plain completions, JSON) stay inline.
func InlineMIME(mime string) bool {
	if mime == "" {
		return true
	}
	return strings.HasPrefix(mime, "text/") || mime == "application/json"
}

// ExtForMIME maps a payload MIME type to the blob key extension.
func ExtForMIME(mime string) string {
	switch mime {
	case "audio/mpeg", "audio/mp3":
		return "mp3"
	case "audio/wav", "audio/x-wav":
		return "wav"
	case "audio/ogg":
		return "ogg"
	case "audio/flac":
		return "flac"
	case "image/png":
		return "png"
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "bin"
	}
}
