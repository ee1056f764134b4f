package domain

import "time"

// Agent is one autonomous strategy instance trading against the shared vault.
// Agents are created at seed time and mutated by the lifecycle manager each
// cycle; they are never destroyed during normal operation.
type Agent struct {
	ID          string
	Kind        StrategyKind
	DisplayName string
	// VaultIndex is the agent's numeric slot in the settlement vault. All
	// balance reads and trade submissions are keyed by it.
	VaultIndex   int64
	RiskProfile  string // "conservative", "balanced", "aggressive"
	MaxPositions int
	// Personality is the free-text persona handed to the advisory model.
	Personality string
	CreatedAt   time.Time
}

// RiskMultiplier maps the risk profile onto a position-size factor.
func (a Agent) RiskMultiplier() float64 {
	switch a.RiskProfile {
	case "conservative":
		return 0.6
	case "aggressive":
		return 1.4
	default:
		return 1.0
	}
}

// AgentBalance is the settlement layer's view of an agent's funds.
// Amounts are in fixed-point settlement units (1e6 per whole MON).
type AgentBalance struct {
	CapitalUnits     int64
	RealizedPnLUnits int64
	RewardTokenUnits int64
}

// LearningProfile is derived each cycle from the agent's recent trade
// history. It has no independent lifecycle and is never persisted.
type LearningProfile struct {
	ConfidenceThreshold float64
	SizeMultiplier      float64
	MaxPositions        int
	WinningReasons      []string
	LosingReasons       []string
	TradeCount          int
	WinRate             float64
	NetPnLUnits         int64
}
