package domain

import "time"

// TradeType distinguishes buys from sells in the audit log.
type TradeType string

const (
	TradeBuy  TradeType = "buy"
	TradeSell TradeType = "sell"
	// TradeError records a failed submission so the decision chain stays
	// reconstructable; it carries no fill amounts.
	TradeError TradeType = "error"
)

// Trade is an append-only audit record and the source of truth for all
// derived statistics. Never mutated after creation.
type Trade struct {
	ID             int64
	AgentID        string
	Token          string
	Symbol         string
	Type           TradeType
	AmountInUnits  int64
	AmountOutUnits int64
	// RealizedPnLUnits is set on sells only.
	RealizedPnLUnits *int64
	Reason           string
	// SignalJSON is the serialized MarketSignal that motivated the trade,
	// kept for audit; empty for reconciliation entries.
	SignalJSON string
	TxRef      string
	CreatedAt  time.Time
}

// PnLSnapshot is one point of an agent's equity time series, taken once per
// fleet cycle.
type PnLSnapshot struct {
	ID               int64
	AgentID          string
	CapitalUnits     int64
	HoldingsUnits    int64
	RealizedPnLUnits int64
	OpenPositions    int
	CreatedAt        time.Time
}
