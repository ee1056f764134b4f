package market

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/curvefleet/internal/domain"
)

// launchTTL bounds how long a feed announcement is merged into scans. By then
// the polled listing has the token, or it never mattered.
const launchTTL = 10 * time.Minute

// LaunchBuffer decorates a provider with a short-lived memory of tokens
// announced on the launch feed, so a scan can see a token before the polled
// listing includes it. Only ListRecentTokens is affected.
type LaunchBuffer struct {
	inner  domain.MarketDataProvider
	logger *slog.Logger

	mu   sync.Mutex
	seen map[string]launchEntry

	now func() time.Time
}

type launchEntry struct {
	token domain.TokenSummary
	at    time.Time
}

// NewLaunchBuffer wraps the given provider.
func NewLaunchBuffer(inner domain.MarketDataProvider, logger *slog.Logger) *LaunchBuffer {
	return &LaunchBuffer{
		inner:  inner,
		logger: logger.With(slog.String("component", "launches")),
		seen:   make(map[string]launchEntry),
		now:    time.Now,
	}
}

// Note records a feed announcement.
func (b *LaunchBuffer) Note(t domain.TokenSummary) {
	addr := domain.NormalizeToken(t.Address)
	if addr == "" {
		return
	}
	t.Address = addr

	b.mu.Lock()
	defer b.mu.Unlock()
	b.sweepLocked()
	b.seen[addr] = launchEntry{token: t, at: b.now()}
	b.logger.Debug("launch noted", slog.String("token", addr), slog.String("symbol", t.Symbol))
}

// ListRecentTokens merges live feed announcements into the polled listing.
// Announced tokens the listing already carries are not duplicated; the
// listing's copy wins because it is fresher.
func (b *LaunchBuffer) ListRecentTokens(ctx context.Context, limit int) []domain.TokenSummary {
	batch := b.inner.ListRecentTokens(ctx, limit)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.sweepLocked()
	if len(b.seen) == 0 {
		return batch
	}

	present := make(map[string]bool, len(batch))
	for _, t := range batch {
		present[domain.NormalizeToken(t.Address)] = true
	}
	for addr, e := range b.seen {
		if !present[addr] {
			batch = append(batch, e.token)
		}
	}
	return batch
}

// GetMarketSnapshot delegates to the wrapped provider.
func (b *LaunchBuffer) GetMarketSnapshot(ctx context.Context, token string) (domain.MarketSnapshot, bool) {
	return b.inner.GetMarketSnapshot(ctx, token)
}

// GetPriceSeries delegates to the wrapped provider.
func (b *LaunchBuffer) GetPriceSeries(ctx context.Context, token string, interval time.Duration) []domain.PricePoint {
	return b.inner.GetPriceSeries(ctx, token, interval)
}

// GetHolders delegates to the wrapped provider.
func (b *LaunchBuffer) GetHolders(ctx context.Context, token string) []domain.HolderBalance {
	return b.inner.GetHolders(ctx, token)
}

func (b *LaunchBuffer) sweepLocked() {
	cutoff := b.now().Add(-launchTTL)
	for addr, e := range b.seen {
		if e.at.Before(cutoff) {
			delete(b.seen, addr)
		}
	}
}

var _ domain.MarketDataProvider = (*LaunchBuffer)(nil)
