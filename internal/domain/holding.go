package domain

import "time"

// UnitsPerMon is the fixed-point scale for settlement amounts: both MON
// capital and token balances are carried as int64 units of 1e-6.
const UnitsPerMon = 1_000_000

// Holding is one agent's open position in one token. Created on first buy,
// mutated on partial sells and balance reconciliation, deleted on full exit
// or zero balance.
type Holding struct {
	AgentID      string
	Token        string
	Symbol       string
	AmountUnits  int64 // token units held, always >= 0
	CostUnits    int64 // MON spent to acquire the current amount
	EntryPrice   float64
	CurrentPrice float64
	OpenedAt     time.Time
	UpdatedAt    time.Time
}

// MarkValueUnits returns the holding's current value in MON units at the
// given price (MON per whole token).
func (h Holding) MarkValueUnits(price float64) int64 {
	return int64(float64(h.AmountUnits) * price)
}

// PnLPct returns the unrealized profit percentage at the given price.
// A holding with no cost basis reports zero rather than dividing by it.
func (h Holding) PnLPct(price float64) float64 {
	if h.CostUnits <= 0 {
		return 0
	}
	mark := h.MarkValueUnits(price)
	return (float64(mark) - float64(h.CostUnits)) / float64(h.CostUnits) * 100
}

// ReduceFor applies a partial sale of soldUnits, reducing the cost basis
// proportionally to the fraction of the position sold so the remaining
// holding's implied PnL% is unchanged. It returns the cost units released.
func (h *Holding) ReduceFor(soldUnits int64) int64 {
	if soldUnits <= 0 || h.AmountUnits <= 0 {
		return 0
	}
	if soldUnits >= h.AmountUnits {
		released := h.CostUnits
		h.AmountUnits = 0
		h.CostUnits = 0
		return released
	}
	released := int64(float64(h.CostUnits) * float64(soldUnits) / float64(h.AmountUnits))
	h.AmountUnits -= soldUnits
	h.CostUnits -= released
	return released
}

// TrailingStopState tracks the peak PnL% seen since entry for one
// (agent, token) pair. It lives only in process memory: after a restart the
// stop re-anchors at the current PnL, which is an accepted degradation, not
// an error.
type TrailingStopState struct {
	PeakPnLPct float64
	PeakAt     time.Time
}
