package quotes

import (
	"context"
	"errors"
	"time"

	"github.com/patrickmn/go-cache"

	"stockfolio/internal/reference"
)

// Resolver tries each Source in order and returns the first quote with a
// positive price. Sources are never retried within a call.
type Resolver struct {
	sources []Source
	catalog reference.Catalog
	timeout time.Duration
	cache   *cache.Cache
	now     func() time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTimeout bounds each individual source call.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.timeout = d }
}

// WithCacheTTL caches live quotes per ticker. Zero disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(r *Resolver) {
		if ttl <= 0 {
			r.cache = nil
			return
		}
		r.cache = cache.New(ttl, 2*ttl)
	}
}

// NewResolver creates a Resolver over sources, in priority order.
func NewResolver(sources []Source, catalog reference.Catalog, opts ...Option) *Resolver {
	r := &Resolver{
		sources: sources,
		catalog: catalog,
		timeout: 10 * time.Second,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Sources returns the configured source ids in order.
func (r *Resolver) Sources() []string {
	ids := make([]string, len(r.sources))
	for i, s := range r.sources {
		ids[i] = s.ID()
	}
	return ids
}

// Resolve always returns a quote. When no external source answers, the
// quote comes from the reference catalog or is a zero-price placeholder
// tagged SourceUnknown, and err joins the per-source failures.
func (r *Resolver) Resolve(ctx context.Context, ticker string) (Quote, error) {
	ticker = normalizeTicker(ticker)
	if r.cache != nil {
		if cached, ok := r.cache.Get(ticker); ok {
			return cached.(Quote), nil
		}
	}

	var errs []error
	for _, src := range r.sources {
		q, err := r.try(ctx, src, ticker)
		if err != nil {
			errs = append(errs, &SourceError{Source: src.ID(), Ticker: ticker, Err: err})
			continue
		}
		if r.cache != nil {
			r.cache.Set(ticker, q, cache.DefaultExpiration)
		}
		return q, nil
	}

	return r.fallback(ticker), errors.Join(errs...)
}

func (r *Resolver) try(ctx context.Context, src Source, ticker string) (Quote, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	q, err := src.Quote(ctx, ticker)
	if err != nil {
		return Quote{}, err
	}
	if !q.Price.IsPositive() {
		return Quote{}, unavailable("non-positive price %s", q.Price)
	}
	q.Ticker = ticker
	q.Source = src.ID()
	if q.AsOf.IsZero() {
		q.AsOf = r.now().UTC()
	}
	return q, nil
}

func (r *Resolver) fallback(ticker string) Quote {
	if r.catalog != nil {
		if in, ok := r.catalog.Lookup(ticker); ok && in.Price.IsPositive() {
			return Quote{Ticker: ticker, Price: in.Price, Source: SourceReference, AsOf: r.now().UTC()}
		}
	}
	return Quote{Ticker: ticker, Source: SourceUnknown, AsOf: r.now().UTC()}
}
