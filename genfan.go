// Package genfan provides a high-level façade over the dispatch and archive
// layers for fanning one generation request out to several model instances at
// once. Most applications interact with this package by:
//  1. Creating a GenFan via New() (optionally overriding default in-memory stores)
//  2. Calling Generate with a domain, request options, instances and an invoker
//  3. Observing live progress via Watch and browsing persisted runs via History
//
// Each domain (images, audio, transcriptions, ...) gets its own dispatcher
// and archive, so a new image dispatch supersedes the previous image dispatch
// without touching in-flight audio work. All defaults are safe for local
// development and testing; production deployments typically supply file or S3
// backed stores and a structured logger.
package genfan

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hupe1980/genfan/archive"
	"github.com/hupe1980/genfan/blob"
	"github.com/hupe1980/genfan/blob/s3"
	"github.com/hupe1980/genfan/config"
	"github.com/hupe1980/genfan/core"
	"github.com/hupe1980/genfan/dispatch"
	"github.com/hupe1980/genfan/history"
	"github.com/hupe1980/genfan/logging"
)

// Options configures the GenFan instance.
type Options struct {
	// Config supplies retention caps, storage backends and logging per
	// domain. Defaults to config.Default().
	Config config.Config

	// HistoryStores overrides the history backend per domain. Unset domains
	// get a backend derived from Config.Storage (file store under
	// Storage.Dir, in-memory otherwise).
	HistoryStores map[string]core.HistoryStore

	// BlobStores overrides the blob backend per domain. Unset domains get a
	// backend derived from Config.Storage (S3 when a bucket is configured,
	// a directory under Storage.Dir, in-memory otherwise).
	BlobStores map[string]core.BlobStore

	// Logger overrides logging. When nil, a slog logger is built from
	// Config.Logging if a config was supplied, NoOp otherwise.
	Logger logging.Logger

	configSet bool
}

// WithLogger sets the logger for the façade and every component it builds.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// WithConfig replaces the whole configuration document and activates its
// storage and logging sections for defaults.
func WithConfig(cfg config.Config) func(o *Options) {
	return func(o *Options) {
		o.Config = cfg
		o.configSet = true
	}
}

// WithHistoryStore installs a history backend for one domain.
func WithHistoryStore(domain string, s core.HistoryStore) func(o *Options) {
	return func(o *Options) { o.HistoryStores[domain] = s }
}

// WithBlobStore installs a blob backend for one domain.
func WithBlobStore(domain string, s core.BlobStore) func(o *Options) {
	return func(o *Options) { o.BlobStores[domain] = s }
}

// WithRetention caps the history length for one domain. Domains beyond the
// built-in three are kept in their own retention entries, never redirected
// to another domain's cap. Only effective for domains using a default
// history store.
func WithRetention(domain string, limit int) func(o *Options) {
	return func(o *Options) {
		switch domain {
		case "images":
			o.Config.Retention.Images = limit
		case "audio":
			o.Config.Retention.Audio = limit
		case "transcriptions":
			o.Config.Retention.Transcriptions = limit
		default:
			if o.Config.Retention.Extra == nil {
				o.Config.Retention.Extra = map[string]int{}
			}
			o.Config.Retention.Extra[domain] = limit
		}
	}
}

// GenFan is the high-level façade aggregating per-domain dispatchers and
// archives.
type GenFan struct {
	opts Options

	mu      sync.Mutex
	domains map[string]*domainState
}

type domainState struct {
	dispatcher *dispatch.Dispatcher
	archive    *archive.Archive
}

// New creates a GenFan instance with optional overrides. Any domain without
// explicit stores gets backends derived from the configuration's storage
// section, bounded by the configured retention caps; without a configured
// storage location the backends are in-memory.
func New(optFns ...func(o *Options)) *GenFan {
	opts := Options{
		Config:        config.Default(),
		HistoryStores: make(map[string]core.HistoryStore),
		BlobStores:    make(map[string]core.BlobStore),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		if opts.configSet {
			opts.Logger = logging.NewSlogLogger(
				logging.ParseLevel(opts.Config.Logging.Level), opts.Config.Logging.Format, false)
		} else {
			opts.Logger = logging.NoOpLogger{}
		}
	}
	return &GenFan{
		opts:    opts,
		domains: make(map[string]*domainState),
	}
}

// domain returns the dispatcher/archive pair for the named domain, creating
// it on first use.
func (g *GenFan) domain(name string) *domainState {
	g.mu.Lock()
	defer g.mu.Unlock()

	if st, ok := g.domains[name]; ok {
		return st
	}

	hist := g.opts.HistoryStores[name]
	if hist == nil {
		hist = g.defaultHistoryStore(name)
	}
	blobs := g.opts.BlobStores[name]
	if blobs == nil {
		blobs = g.defaultBlobStore(name)
	}

	st := &domainState{
		dispatcher: dispatch.New(func(o *dispatch.Options) {
			o.Logger = g.opts.Logger
		}),
		archive: archive.New(hist, blobs, func(o *archive.Options) {
			o.Logger = g.opts.Logger
		}),
	}
	g.domains[name] = st
	return st
}

// defaultHistoryStore builds the domain's history backend from the storage
// configuration: a JSON file under Storage.Dir when set, in-memory
// otherwise. An unopenable file falls back to memory with a warning.
func (g *GenFan) defaultHistoryStore(name string) core.HistoryStore {
	if dir := g.opts.Config.Storage.Dir; dir != "" {
		path := filepath.Join(dir, name+"_history.json")
		store, err := history.NewFileStore(path, g.opts.Config.CapFor(name), func(o *history.FileStoreOptions) {
			o.Logger = g.opts.Logger
		})
		if err == nil {
			return store
		}
		g.opts.Logger.Warn("file history store unavailable, using memory", "path", path, "error", err)
	}
	return history.NewInMemoryStore(g.opts.Config.CapFor(name))
}

// defaultBlobStore builds the domain's blob backend from the storage
// configuration: S3 when a bucket is configured, a directory under
// Storage.Dir when set, in-memory otherwise.
func (g *GenFan) defaultBlobStore(name string) core.BlobStore {
	storage := g.opts.Config.Storage
	if storage.S3.Bucket != "" {
		store, err := s3.New(context.Background(), s3.Config{
			Bucket:          storage.S3.Bucket,
			Prefix:          storage.S3.Prefix + name + "/",
			Region:          storage.S3.Region,
			Endpoint:        storage.S3.Endpoint,
			AccessKeyID:     storage.S3.AccessKeyID,
			SecretAccessKey: storage.S3.SecretAccessKey,
			UsePathStyle:    storage.S3.UsePathStyle,
		}, func(o *s3.Options) {
			o.Logger = g.opts.Logger
		})
		if err == nil {
			return store
		}
		g.opts.Logger.Warn("s3 blob store unavailable, falling back", "bucket", storage.S3.Bucket, "error", err)
	}
	if storage.Dir != "" {
		return blob.NewFSStore(filepath.Join(storage.Dir, name+"_blobs"), func(o *blob.FSStoreOptions) {
			o.Logger = g.opts.Logger
		})
	}
	return blob.NewInMemoryStore()
}

// Generate fans the request out to every instance for the given domain and
// blocks until all settle. On at least one success the settled batch is
// recorded in the domain's archive and the new entry is returned alongside
// the per-instance outcomes.
//
// When every instance fails, no entry is recorded and the error wraps
// core.ErrAllFailed with each instance's message. A dispatch superseded by a
// newer Generate (or cleared via Clear) returns core.ErrCancelled.
func (g *GenFan) Generate(ctx context.Context, domain string, options map[string]any, instances []core.ModelInstance, invoke core.Invoker) (*core.HistoryEntry, map[string]core.Outcome, error) {
	st := g.domain(domain)

	outcomes, err := st.dispatcher.Execute(ctx, instances, invoke)
	if err != nil {
		return nil, nil, err
	}
	if len(outcomes) == 0 {
		return nil, outcomes, nil
	}

	ordered := orderOutcomes(instances, outcomes)
	if !anySuccess(ordered) {
		return nil, outcomes, allFailedError(ordered)
	}

	entry, err := st.archive.Record(ctx, options, ordered)
	if err != nil {
		// The settled batch is still valid; persistence failed.
		return entry, outcomes, err
	}
	return entry, outcomes, nil
}

// Watch exposes the domain's live result state for subscription.
func (g *GenFan) Watch(domain string) *core.Watchable[map[string]core.Outcome] {
	return g.domain(domain).dispatcher.Watch()
}

// Clear cancels any in-flight dispatch for the domain and empties its live
// result state. Persisted history is untouched.
func (g *GenFan) Clear(domain string) {
	g.domain(domain).dispatcher.Clear()
}

// History lists the domain's persisted entries, most recent first.
func (g *GenFan) History(ctx context.Context, domain string) ([]core.HistoryEntry, error) {
	return g.domain(domain).archive.List(ctx)
}

// RemoveEntry deletes one persisted entry and its blobs.
func (g *GenFan) RemoveEntry(ctx context.Context, domain, id string) error {
	return g.domain(domain).archive.Remove(ctx, id)
}

// ClearHistory deletes every persisted entry and blob for the domain.
func (g *GenFan) ClearHistory(ctx context.Context, domain string) error {
	return g.domain(domain).archive.Clear(ctx)
}

// BlobStats reports blob usage for the domain.
func (g *GenFan) BlobStats(ctx context.Context, domain string) (core.BlobStats, error) {
	return g.domain(domain).archive.Stats(ctx)
}

// ResolvePayload materializes a history result's payload, reading from blob
// storage when the payload was stored out-of-line. Unavailable payloads
// resolve to nil without error.
func (g *GenFan) ResolvePayload(ctx context.Context, domain string, res core.EntryResult) ([]byte, error) {
	return g.domain(domain).archive.Resolve(ctx, res)
}

func orderOutcomes(instances []core.ModelInstance, outcomes map[string]core.Outcome) []core.Outcome {
	ordered := make([]core.Outcome, 0, len(outcomes))
	for _, inst := range instances {
		if o, ok := outcomes[inst.ID]; ok {
			ordered = append(ordered, o)
		}
	}
	return ordered
}

func anySuccess(outcomes []core.Outcome) bool {
	for _, o := range outcomes {
		if o.Status == core.StatusComplete {
			return true
		}
	}
	return false
}

func allFailedError(outcomes []core.Outcome) error {
	msgs := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		msgs = append(msgs, fmt.Sprintf("%s: %s", o.InstanceID, o.Err))
	}
	return fmt.Errorf("%w: %s", core.ErrAllFailed, strings.Join(msgs, "; "))
}
