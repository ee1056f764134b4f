package domain

import (
	"context"
	"time"
)

// MarketDataProvider exposes the launchpad's market telemetry. Every method
// is failure-soft: on any upstream problem it returns its zero value (empty
// slice, ok=false) instead of an error, so a flaky provider degrades a
// single check rather than aborting a cycle.
type MarketDataProvider interface {
	ListRecentTokens(ctx context.Context, limit int) []TokenSummary
	GetMarketSnapshot(ctx context.Context, token string) (MarketSnapshot, bool)
	GetPriceSeries(ctx context.Context, token string, interval time.Duration) []PricePoint
	GetHolders(ctx context.Context, token string) []HolderBalance
}

// Fill is the settlement layer's report of an executed trade.
type Fill struct {
	AmountOutUnits int64
	TxRef          string
}

// SettlementLayer is the on-chain vault/router, treated as a black box that
// executes trades given inputs and returns fills. Writes are expected to be
// preceded by a Simulate call so reverts surface before committing.
type SettlementLayer interface {
	Quote(ctx context.Context, token string, amountInUnits int64, isBuy bool) (int64, error)
	Simulate(ctx context.Context, vaultIndex int64, token string, amountInUnits, minOutUnits int64, isBuy bool) error
	ExecuteBuy(ctx context.Context, vaultIndex int64, token string, amountInUnits, minOutUnits int64, deadline time.Time) (Fill, error)
	ExecuteSell(ctx context.Context, vaultIndex int64, token string, amountInUnits, minOutUnits int64, deadline time.Time) (Fill, error)
	AgentBalance(ctx context.Context, vaultIndex int64) (AgentBalance, error)
	AgentHolding(ctx context.Context, vaultIndex int64, token string) (Holding, error)
}

// SnapshotCache caches market snapshots for the duration of a fleet cycle so
// several agents looking at the same token share one upstream fetch.
type SnapshotCache interface {
	Get(ctx context.Context, token string) (MarketSnapshot, bool)
	Set(ctx context.Context, token string, snap MarketSnapshot, ttl time.Duration) error
}

// DeadTokenRegistry remembers tokens flagged by the momentum monitor so no
// agent re-enters them until the exclusion lapses.
type DeadTokenRegistry interface {
	MarkDead(ctx context.Context, token, reason string, ttl time.Duration) error
	IsDead(ctx context.Context, token string) bool
}
