package aggregator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"dealscout/pkg/cache"
	"dealscout/pkg/logger"
	"dealscout/pkg/models"
	"dealscout/pkg/normalize"
	"dealscout/pkg/scrapers"
)

// SourceStatus is the recorded outcome of a source's most recent fetch.
type SourceStatus struct {
	Store     string    `json:"store"`
	OK        bool      `json:"ok"`
	Error     string    `json:"error,omitempty"`
	Products  int       `json:"products"`
	Skipped   int       `json:"skipped"`
	Cached    bool      `json:"cached"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Options bound the aggregate fetch work.
type Options struct {
	// Limiter throttles actual fetches (cache hits are not limited).
	Limiter *rate.Limiter
	// MaxConcurrent caps simultaneous source tasks. Zero means unlimited.
	MaxConcurrent int
}

// Aggregator fans out to the requested sources, runs fetch-with-cache per
// source, and merges the results in registration order. A failing source is
// logged and contributes nothing; it never fails the request.
type Aggregator struct {
	registry *scrapers.Registry
	cache    *cache.Products
	profiles map[string]*normalize.Profile
	opts     Options
	log      *zap.Logger
	hits     *logger.Deduper

	mu     sync.RWMutex
	health map[string]SourceStatus
}

func New(registry *scrapers.Registry, products *cache.Products, profiles map[string]*normalize.Profile, opts Options, log *zap.Logger) *Aggregator {
	return &Aggregator{
		registry: registry,
		cache:    products,
		profiles: profiles,
		opts:     opts,
		log:      log,
		hits:     logger.NewDeduper(log),
		health:   make(map[string]SourceStatus),
	}
}

// Collect fetches the selected sources concurrently and merges their
// products. The store filter selects one source; "" or "all" selects every
// registered source; an unknown store yields an empty result. Each source's
// result is buffered and the merge is assembled in registration order, so
// output order never depends on which fetch finished first.
func (a *Aggregator) Collect(ctx context.Context, store string) []models.Product {
	stores := a.selectStores(store)
	results := make([][]models.Product, len(stores))

	var g errgroup.Group
	if a.opts.MaxConcurrent > 0 {
		g.SetLimit(a.opts.MaxConcurrent)
	}

	for i, name := range stores {
		g.Go(func() error {
			results[i] = a.collectOne(ctx, name)
			return nil
		})
	}
	g.Wait()

	merged := []models.Product{}
	for _, r := range results {
		merged = append(merged, r...)
	}
	return merged
}

// Health reports per-source fetch outcomes in registration order. Sources
// that have not been queried yet are omitted.
func (a *Aggregator) Health() []SourceStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]SourceStatus, 0, len(a.health))
	for _, name := range a.registry.Stores() {
		if st, ok := a.health[name]; ok {
			out = append(out, st)
		}
	}
	return out
}

func (a *Aggregator) selectStores(store string) []string {
	if store == "" || store == "all" {
		return a.registry.Stores()
	}
	if _, ok := a.registry.Get(store); ok {
		return []string{store}
	}
	return nil
}

// collectOne runs the cache-aside path for one source. Only the aggregator
// populates the cache, and only through this path.
func (a *Aggregator) collectOne(ctx context.Context, store string) []models.Product {
	if products, ok := a.cache.Get(ctx, store); ok {
		a.hits.Infof("cache hit for %s", store)
		a.setStatus(SourceStatus{Store: store, OK: true, Products: len(products), Cached: true, UpdatedAt: time.Now()})
		return products
	}

	if a.opts.Limiter != nil {
		if err := a.opts.Limiter.Wait(ctx); err != nil {
			a.log.Error("source fetch cancelled", zap.String("store", store), zap.Error(err))
			a.setStatus(SourceStatus{Store: store, Error: err.Error(), UpdatedAt: time.Now()})
			return nil
		}
	}

	fetcher, ok := a.registry.Get(store)
	if !ok {
		return nil
	}

	raws, err := fetcher.Fetch(ctx)
	if err != nil {
		a.log.Error("source fetch failed", zap.String("store", store), zap.Error(err))
		a.setStatus(SourceStatus{Store: store, Error: err.Error(), UpdatedAt: time.Now()})
		return nil
	}

	profile := a.profiles[store]
	products, stats := profile.Run(raws)
	if skipped := stats.Total(); skipped > 0 {
		a.log.Info("skipped malformed listings",
			zap.String("store", store),
			zap.Int("skipped", skipped),
			zap.Any("reasons", stats))
	}

	a.cache.Set(ctx, store, products)
	a.setStatus(SourceStatus{
		Store:     store,
		OK:        true,
		Products:  len(products),
		Skipped:   stats.Total(),
		UpdatedAt: time.Now(),
	})
	return products
}

func (a *Aggregator) setStatus(st SourceStatus) {
	a.mu.Lock()
	a.health[st.Store] = st
	a.mu.Unlock()
}
