package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and time filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// AgentStore persists agent identities.
type AgentStore interface {
	Upsert(ctx context.Context, agent Agent) error
	GetByID(ctx context.Context, id string) (Agent, error)
	List(ctx context.Context) ([]Agent, error)
}

// HoldingStore persists open positions.
type HoldingStore interface {
	Upsert(ctx context.Context, h Holding) error
	Get(ctx context.Context, agentID, token string) (Holding, error)
	ListOpen(ctx context.Context, agentID string) ([]Holding, error)
	Delete(ctx context.Context, agentID, token string) error
}

// TradeStore persists the append-only trade audit log.
type TradeStore interface {
	Insert(ctx context.Context, t Trade) (int64, error)
	ListRecent(ctx context.Context, agentID string, limit int) ([]Trade, error)
	CountBuys(ctx context.Context, token string, since time.Time) (int64, error)
	ListBefore(ctx context.Context, before time.Time) ([]Trade, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// PnLStore persists per-agent equity snapshots.
type PnLStore interface {
	Insert(ctx context.Context, s PnLSnapshot) error
	ListRange(ctx context.Context, agentID string, opts ListOpts) ([]PnLSnapshot, error)
}
