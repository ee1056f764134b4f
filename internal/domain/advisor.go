package domain

import "context"

// AdvisoryAction is the advisor's verdict on a prospective entry or exit.
type AdvisoryAction string

const (
	AdviseBuy  AdvisoryAction = "BUY"
	AdviseSkip AdvisoryAction = "SKIP"
	AdviseSell AdvisoryAction = "SELL"
)

// AdvisoryRequest carries everything the advisor may consider. The contract
// is deliberately narrow so any implementation (remote model, cache, test
// stub) is interchangeable.
type AdvisoryRequest struct {
	AgentName    string
	Strategy     StrategyKind
	Personality  string
	Token        TokenSummary
	Signal       MarketSignal
	RecentTrades []Trade
	OpenHoldings int
	MaxPositions int
}

// AdvisoryResponse is the advisor's strict JSON output.
type AdvisoryResponse struct {
	Action       AdvisoryAction `json:"action"`
	Confidence   float64        `json:"confidence"`
	Reasoning    string         `json:"reasoning"`
	TargetAmount *float64       `json:"targetAmount,omitempty"`
	Narrative    string         `json:"narrative,omitempty"`
	Risks        []string       `json:"risks,omitempty"`
}

// Advisor is the large-language-model advisory call modeled as a pure
// function. Callers must treat any error as "apply the deterministic
// fallback", never as a reason to block or abort.
type Advisor interface {
	Advise(ctx context.Context, req AdvisoryRequest) (AdvisoryResponse, error)
}
