package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/guanago/guanago/internal/airtable"
	"github.com/guanago/guanago/internal/store"
	"github.com/guanago/guanago/pkg/logger"
	"github.com/guanago/guanago/pkg/metrics"
)

// Source labels the provenance of a served snapshot.
type Source string

const (
	SourceRemote   Source = "remote"
	SourceCache    Source = "cache"
	SourceFallback Source = "fallback"
)

// Snapshot is what consumers render: the records plus where they came from.
// FetchedAt is zero for fallback data, which was never fetched.
type Snapshot struct {
	Resource  Resource         `json:"resource"`
	Records   []map[string]any `json:"records"`
	FetchedAt time.Time        `json:"fetched_at"`
	Source    Source           `json:"source"`
}

// GetOptions tunes a single facade read.
type GetOptions struct {
	ForceRefresh bool
}

// RemoteLister is the slice of the Airtable client the facade depends on.
type RemoteLister interface {
	Configured() bool
	ListRecords(ctx context.Context, table string, opts airtable.ListOptions) ([]airtable.Record, error)
}

// RefreshSink receives successful remote refreshes, e.g. for realtime
// dashboards or traceability webhooks. Implementations must not block.
type RefreshSink interface {
	CatalogRefreshed(snapshot Snapshot)
}

type multiSink []RefreshSink

func (m multiSink) CatalogRefreshed(snapshot Snapshot) {
	for _, sink := range m {
		sink.CatalogRefreshed(snapshot)
	}
}

// MultiSink fans a refresh notification out to several sinks. Nil entries
// are skipped so callers can pass optional consumers unconditionally.
func MultiSink(sinks ...RefreshSink) RefreshSink {
	out := make(multiSink, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			out = append(out, sink)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// FacadeConfig describes tunable behaviour for the Facade.
type FacadeConfig struct {
	DefaultTTL time.Duration
	TTLs       map[Resource]time.Duration
	Clock      func() time.Time
	Sink       RefreshSink
}

// Facade is a read-through cache in front of the remote table store. Reads
// never fail under remote or storage trouble: the result degrades from
// remote to cached to bundled fallback data, and the provenance tag tells
// the consumer which it got.
type Facade struct {
	store      store.Store
	remote     RemoteLister
	defaultTTL time.Duration
	ttls       map[Resource]time.Duration
	now        func() time.Time
	sink       RefreshSink
	log        *zap.Logger
}

type persistedEntry struct {
	Records   []map[string]any `json:"records"`
	FetchedAt time.Time        `json:"fetched_at"`
}

// NewFacade constructs the catalog facade.
func NewFacade(kv store.Store, remote RemoteLister, cfg FacadeConfig) (*Facade, error) {
	if kv == nil {
		return nil, errors.New("catalog: store is required")
	}
	if remote == nil {
		return nil, errors.New("catalog: remote client is required")
	}

	defaultTTL := cfg.DefaultTTL
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	ttls := make(map[Resource]time.Duration, len(cfg.TTLs))
	for resource, ttl := range cfg.TTLs {
		if ttl > 0 {
			ttls[resource] = ttl
		}
	}

	return &Facade{
		store:      kv,
		remote:     remote,
		defaultTTL: defaultTTL,
		ttls:       ttls,
		now:        clock,
		sink:       cfg.Sink,
		log:        logger.WithModule("catalog"),
	}, nil
}

// TTL reports the freshness window for a resource.
func (f *Facade) TTL(resource Resource) time.Duration {
	if ttl, ok := f.ttls[resource]; ok {
		return ttl
	}
	return f.defaultTTL
}

// Get serves the freshest acceptable records for the resource. A fresh cache
// entry is returned without touching the network; otherwise the remote table
// is fetched and persisted. Remote failure degrades to the stale entry when
// one exists, and to the bundled fallback dataset when none does.
func (f *Facade) Get(ctx context.Context, resource Resource, opts GetOptions) Snapshot {
	if ctx == nil {
		ctx = context.Background()
	}

	if !opts.ForceRefresh {
		if entry, ok := f.load(ctx, resource); ok && f.fresh(resource, entry) {
			return f.serve(resource, entry, SourceCache)
		}
	}

	entry, err := f.refresh(ctx, resource)
	if err == nil {
		return f.serve(resource, entry, SourceRemote)
	}

	// Stale-but-available beats failure.
	if entry, ok := f.load(ctx, resource); ok {
		f.log.Warn("remote fetch failed, serving cached records",
			zap.String("resource", string(resource)),
			zap.Time("fetched_at", entry.FetchedAt),
			zap.Error(err),
		)
		return f.serve(resource, entry, SourceCache)
	}

	f.log.Warn("remote fetch failed with empty cache, serving fallback dataset",
		zap.String("resource", string(resource)),
		zap.Error(err),
	)
	return f.fallback(resource)
}

// ForceRefresh bypasses the freshness check. A failed refresh leaves the
// persisted entry untouched and degrades exactly like Get.
func (f *Facade) ForceRefresh(ctx context.Context, resource Resource) Snapshot {
	return f.Get(ctx, resource, GetOptions{ForceRefresh: true})
}

// WarmUp refreshes every known resource, tolerating per-resource failures.
// Used by scheduled maintenance so user requests mostly hit fresh cache.
func (f *Facade) WarmUp(ctx context.Context) {
	for _, resource := range Known() {
		if _, err := f.refresh(ctx, resource); err != nil {
			f.log.Warn("warm-up refresh failed",
				zap.String("resource", string(resource)),
				zap.Error(err),
			)
		}
	}
}

func (f *Facade) refresh(ctx context.Context, resource Resource) (persistedEntry, error) {
	if !f.remote.Configured() {
		return persistedEntry{}, airtable.ErrNotConfigured
	}

	records, err := f.remote.ListRecords(ctx, resource.Table(), airtable.ListOptions{})
	if err != nil {
		return persistedEntry{}, err
	}

	entry := persistedEntry{
		Records:   NormalizeRecords(records),
		FetchedAt: f.now(),
	}

	encoded, err := json.Marshal(entry)
	if err != nil {
		return persistedEntry{}, err
	}

	// Entries persist without store-level expiry: staleness is judged against
	// the resource TTL on read, and stale entries must stay servable.
	if err := f.store.Set(ctx, resource.cacheKey(), encoded, 0); err != nil {
		f.log.Warn("persisting catalog snapshot failed",
			zap.String("resource", string(resource)),
			zap.Error(err),
		)
	}

	if f.sink != nil {
		f.sink.CatalogRefreshed(Snapshot{
			Resource:  resource,
			Records:   entry.Records,
			FetchedAt: entry.FetchedAt,
			Source:    SourceRemote,
		})
	}

	return entry, nil
}

func (f *Facade) load(ctx context.Context, resource Resource) (persistedEntry, bool) {
	raw, ok, err := f.store.Get(ctx, resource.cacheKey())
	if err != nil {
		f.log.Warn("reading catalog snapshot failed",
			zap.String("resource", string(resource)),
			zap.Error(err),
		)
		return persistedEntry{}, false
	}
	if !ok {
		return persistedEntry{}, false
	}

	var entry persistedEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		f.log.Warn("corrupt catalog snapshot discarded",
			zap.String("resource", string(resource)),
			zap.Error(err),
		)
		return persistedEntry{}, false
	}

	return entry, true
}

func (f *Facade) fresh(resource Resource, entry persistedEntry) bool {
	if entry.FetchedAt.IsZero() {
		return false
	}
	return f.now().Sub(entry.FetchedAt) < f.TTL(resource)
}

func (f *Facade) serve(resource Resource, entry persistedEntry, source Source) Snapshot {
	metrics.CatalogServes.WithLabelValues(string(resource), string(source)).Inc()
	return Snapshot{
		Resource:  resource,
		Records:   entry.Records,
		FetchedAt: entry.FetchedAt,
		Source:    source,
	}
}

func (f *Facade) fallback(resource Resource) Snapshot {
	records, err := FallbackRecords(resource)
	if err != nil {
		// Every known resource ships a dataset; this only fires for a broken build.
		f.log.Error("fallback dataset unavailable", zap.String("resource", string(resource)), zap.Error(err))
		records = []map[string]any{}
	}

	metrics.CatalogServes.WithLabelValues(string(resource), string(SourceFallback)).Inc()
	return Snapshot{
		Resource: resource,
		Records:  records,
		Source:   SourceFallback,
	}
}
