package redis

import (
	"context"
	"time"

	"github.com/alanyoungcy/curvefleet/internal/domain"
)

// SnapshotCache implements domain.SnapshotCache with a per-entry TTL. One
// fleet cycle's agents looking at the same token share a single upstream
// fetch through it.
//
// Key schema:
//
//	snapshot:{token} - JSON-serialized MarketSnapshot
type SnapshotCache struct {
	client *Client
}

// NewSnapshotCache creates a SnapshotCache backed by the given Client.
func NewSnapshotCache(c *Client) *SnapshotCache {
	return &SnapshotCache{client: c}
}

func snapshotKey(token string) string { return "snapshot:" + domain.NormalizeToken(token) }

// Get retrieves a cached snapshot. A miss or any transport error reports
// ok=false; the caller falls through to the provider.
func (sc *SnapshotCache) Get(ctx context.Context, token string) (domain.MarketSnapshot, bool) {
	var snap domain.MarketSnapshot
	ok, err := sc.client.GetJSON(ctx, snapshotKey(token), &snap)
	if err != nil || !ok {
		return domain.MarketSnapshot{}, false
	}
	return snap, true
}

// Set stores a snapshot with the given TTL.
func (sc *SnapshotCache) Set(ctx context.Context, token string, snap domain.MarketSnapshot, ttl time.Duration) error {
	return sc.client.SetJSON(ctx, snapshotKey(token), snap, ttl)
}

var _ domain.SnapshotCache = (*SnapshotCache)(nil)
