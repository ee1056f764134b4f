package market

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/curvefleet/internal/domain"
)

// CachedProvider decorates a MarketDataProvider with a snapshot cache so that
// one fleet cycle's agents inspecting the same token share a single upstream
// fetch. Only GetMarketSnapshot is cached; the listing and enrichment calls
// happen once per cycle already.
type CachedProvider struct {
	inner  domain.MarketDataProvider
	cache  domain.SnapshotCache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedProvider wraps inner with the given cache. ttl should stay well
// under the fleet cycle interval so stale snapshots never cross cycles.
func NewCachedProvider(inner domain.MarketDataProvider, cache domain.SnapshotCache, ttl time.Duration, logger *slog.Logger) *CachedProvider {
	return &CachedProvider{
		inner:  inner,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With("component", "market_cache"),
	}
}

func (p *CachedProvider) ListRecentTokens(ctx context.Context, limit int) []domain.TokenSummary {
	return p.inner.ListRecentTokens(ctx, limit)
}

func (p *CachedProvider) GetMarketSnapshot(ctx context.Context, token string) (domain.MarketSnapshot, bool) {
	if snap, ok := p.cache.Get(ctx, token); ok {
		return snap, true
	}
	snap, ok := p.inner.GetMarketSnapshot(ctx, token)
	if !ok {
		return domain.MarketSnapshot{}, false
	}
	if err := p.cache.Set(ctx, token, snap, p.ttl); err != nil {
		p.logger.Warn("snapshot cache write failed", "token", token, "error", err)
	}
	return snap, true
}

func (p *CachedProvider) GetPriceSeries(ctx context.Context, token string, interval time.Duration) []domain.PricePoint {
	return p.inner.GetPriceSeries(ctx, token, interval)
}

func (p *CachedProvider) GetHolders(ctx context.Context, token string) []domain.HolderBalance {
	return p.inner.GetHolders(ctx, token)
}

var _ domain.MarketDataProvider = (*CachedProvider)(nil)
