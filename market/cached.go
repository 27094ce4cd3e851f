package market

import (
	"context"
	"time"

	"github.com/hupe1980/stockmesh/cache"
)

// QuoteOperation is the fingerprint operation class of cached quotes.
const QuoteOperation = "stock_price"

// CachedProvider memoizes quotes for a short window.
type CachedProvider struct {
	next  Provider
	cache cache.Cache[Quote]
	ttl   time.Duration
}

// NewCachedProvider wraps next. A nil store gets an in-memory cache.
func NewCachedProvider(next Provider, store cache.Cache[Quote], ttl time.Duration) *CachedProvider {
	if store == nil {
		store = cache.NewMemoryCache[Quote]()
	}
	return &CachedProvider{next: next, cache: store, ttl: ttl}
}

// Quote implements Provider. Failed lookups are not cached.
func (p *CachedProvider) Quote(ctx context.Context, ticker string) (Quote, error) {
	ticker = NormalizeTicker(ticker)

	key, err := cache.Fingerprint(QuoteOperation, map[string]any{"ticker": ticker})
	if err != nil {
		return p.next.Quote(ctx, ticker)
	}

	q, _, err := cache.GetOrCompute(ctx, p.cache, key, p.ttl, func(ctx context.Context) (Quote, error) {
		return p.next.Quote(ctx, ticker)
	})

	return q, err
}

// Stats exposes the quote cache counters.
func (p *CachedProvider) Stats(ctx context.Context) (cache.Stats, error) {
	return p.cache.Stats(ctx)
}
