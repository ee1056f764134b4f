package market

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/curvefleet/internal/domain"
)

type stubProvider struct {
	tokens []domain.TokenSummary
}

func (s *stubProvider) ListRecentTokens(context.Context, int) []domain.TokenSummary {
	return s.tokens
}

func (s *stubProvider) GetMarketSnapshot(context.Context, string) (domain.MarketSnapshot, bool) {
	return domain.MarketSnapshot{}, false
}

func (s *stubProvider) GetPriceSeries(context.Context, string, time.Duration) []domain.PricePoint {
	return nil
}

func (s *stubProvider) GetHolders(context.Context, string) []domain.HolderBalance {
	return nil
}

func TestLaunchBufferSeedsScan(t *testing.T) {
	inner := &stubProvider{tokens: []domain.TokenSummary{{Address: "0xaaa"}}}
	buf := NewLaunchBuffer(inner, slog.New(slog.NewTextHandler(io.Discard, nil)))

	buf.Note(domain.TokenSummary{Address: "0xBBB", Symbol: "NEW"})

	got := buf.ListRecentTokens(context.Background(), 10)
	require.Len(t, got, 2)
	assert.Equal(t, "0xaaa", got[0].Address)
	assert.Equal(t, "0xbbb", got[1].Address)
}

func TestLaunchBufferDoesNotDuplicateListedTokens(t *testing.T) {
	inner := &stubProvider{tokens: []domain.TokenSummary{{Address: "0xbbb", Symbol: "LISTED"}}}
	buf := NewLaunchBuffer(inner, slog.New(slog.NewTextHandler(io.Discard, nil)))

	buf.Note(domain.TokenSummary{Address: "0xBBB", Symbol: "FEED"})

	got := buf.ListRecentTokens(context.Background(), 10)
	require.Len(t, got, 1)
	// The listing's copy wins.
	assert.Equal(t, "LISTED", got[0].Symbol)
}

func TestLaunchBufferExpiresAnnouncements(t *testing.T) {
	inner := &stubProvider{}
	buf := NewLaunchBuffer(inner, slog.New(slog.NewTextHandler(io.Discard, nil)))

	now := time.Now()
	buf.now = func() time.Time { return now }
	buf.Note(domain.TokenSummary{Address: "0xccc"})

	buf.now = func() time.Time { return now.Add(launchTTL + time.Second) }
	got := buf.ListRecentTokens(context.Background(), 10)
	assert.Empty(t, got)
}

func TestLaunchBufferIgnoresEmptyAddress(t *testing.T) {
	buf := NewLaunchBuffer(&stubProvider{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	buf.Note(domain.TokenSummary{Symbol: "NOADDR"})
	assert.Empty(t, buf.ListRecentTokens(context.Background(), 10))
}
