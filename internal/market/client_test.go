package market

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/curvefleet/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestListRecentTokensParsesMixedNumberFormats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tokens", r.URL.Path)
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		w.Write([]byte(`[
			{"address":"0xABCD","symbol":"PUMP","price":"0.0042","reserve_mon":120.5,
			 "holder_count":310,"volume_1h":"350","price_change_1h":10,
			 "created_at":"2026-08-30T10:00:00Z"},
			{"address":"0xfeed","symbol":"MOON","price":0.001,"holder_count":12,
			 "created_at":"2026-08-30T11:00:00Z"}
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", time.Second, testLogger())
	tokens := c.ListRecentTokens(context.Background(), 25)

	require.Len(t, tokens, 2)
	assert.Equal(t, "0xabcd", tokens[0].Address)
	assert.InDelta(t, 0.0042, tokens[0].Price, 1e-9)
	assert.InDelta(t, 120.5, tokens[0].ReserveMon, 1e-9)
	assert.Equal(t, 310, tokens[0].HolderCount)
	assert.InDelta(t, 350, tokens[0].Volume1h, 1e-9)
	assert.Equal(t, "MOON", tokens[1].Symbol)
}

func TestProviderIsFailureSoft(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream on fire", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second, testLogger())
	ctx := context.Background()

	assert.Empty(t, c.ListRecentTokens(ctx, 10))
	_, ok := c.GetMarketSnapshot(ctx, "0xabcd")
	assert.False(t, ok)
	assert.Empty(t, c.GetPriceSeries(ctx, "0xabcd", time.Minute))
	assert.Empty(t, c.GetHolders(ctx, "0xabcd"))
}

func TestProviderSurvivesMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"this is": "not a list"`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second, testLogger())
	assert.Empty(t, c.ListRecentTokens(context.Background(), 10))
}

func TestGetMarketSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tokens/0xabcd", r.URL.Path)
		w.Write([]byte(`{"price":0.01,"volume_1h":420,"holder_count":99,
			"reserve_mon":"77.7","curve_progress":61.5}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second, testLogger())
	snap, ok := c.GetMarketSnapshot(context.Background(), "0xABCD")

	require.True(t, ok)
	assert.InDelta(t, 0.01, snap.Price, 1e-9)
	assert.Equal(t, 99, snap.HolderCount)
	assert.InDelta(t, 77.7, snap.ReserveMon, 1e-9)
	assert.InDelta(t, 61.5, snap.CurveProgress, 1e-9)
}

func TestGetPriceSeriesAndHolders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tokens/0xabcd/chart":
			assert.Equal(t, "1m0s", r.URL.Query().Get("interval"))
			w.Write([]byte(`[
				{"timestamp":"2026-08-30T10:00:00Z","price":0.001,"volume":10},
				{"timestamp":"2026-08-30T10:01:00Z","price":"0.0012","volume":"15"}
			]`))
		case "/tokens/0xabcd/holders":
			w.Write([]byte(`[{"address":"0xDEAD","pct":12.5},{"address":"0xbeef","pct":"3.2"}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second, testLogger())
	ctx := context.Background()

	series := c.GetPriceSeries(ctx, "0xabcd", time.Minute)
	require.Len(t, series, 2)
	assert.InDelta(t, 0.0012, series[1].Price, 1e-9)

	holders := c.GetHolders(ctx, "0xabcd")
	require.Len(t, holders, 2)
	assert.Equal(t, "0xdead", holders[0].Address)
	assert.InDelta(t, 3.2, holders[1].Pct, 1e-9)
}

// memCache is an in-memory SnapshotCache for decorator tests.
type memCache struct {
	snaps map[string]domain.MarketSnapshot
	sets  int
}

func newMemCache() *memCache {
	return &memCache{snaps: map[string]domain.MarketSnapshot{}}
}

func (m *memCache) Get(_ context.Context, token string) (domain.MarketSnapshot, bool) {
	s, ok := m.snaps[domain.NormalizeToken(token)]
	return s, ok
}

func (m *memCache) Set(_ context.Context, token string, snap domain.MarketSnapshot, _ time.Duration) error {
	m.snaps[domain.NormalizeToken(token)] = snap
	m.sets++
	return nil
}

func TestCachedProviderSharesOneUpstreamFetch(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"price":0.5,"holder_count":10}`))
	}))
	defer srv.Close()

	cache := newMemCache()
	p := NewCachedProvider(NewClient(srv.URL, "", time.Second, testLogger()), cache, time.Minute, testLogger())
	ctx := context.Background()

	first, ok := p.GetMarketSnapshot(ctx, "0xABCD")
	require.True(t, ok)
	second, ok := p.GetMarketSnapshot(ctx, "0xabcd")
	require.True(t, ok)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), hits.Load())
	assert.Equal(t, 1, cache.sets)
}

func TestCachedProviderMissPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	p := NewCachedProvider(NewClient(srv.URL, "", time.Second, testLogger()), newMemCache(), time.Minute, testLogger())
	_, ok := p.GetMarketSnapshot(context.Background(), "0xmissing")
	assert.False(t, ok)
}
