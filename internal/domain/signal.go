package domain

import "time"

// MarketRegime is the fleet-wide market classification used to bias all
// strategy scores in a cycle.
type MarketRegime int

const (
	RegimeSideways MarketRegime = iota
	RegimeBull
	RegimeBear
)

// String returns the stable wire name of the regime.
func (r MarketRegime) String() string {
	switch r {
	case RegimeBull:
		return "bull"
	case RegimeBear:
		return "bear"
	default:
		return "sideways"
	}
}

// RegimeReading is the regime detector's output for one cycle.
type RegimeReading struct {
	Regime       MarketRegime
	Confidence   float64 // 30-90, or 20 on insufficient data
	Reasons      []string
	AvgChange1h  float64
	AvgChange24h float64
	Breadth      float64 // percent of tokens with positive 1h change
	AvgVolume    float64
	CreationRate float64 // new tokens per hour in the observed batch
}

// MarketSignal is the immutable output of the signal engine for one
// (agent, token) pair at one instant. Score is always within [0,100];
// RawScore keeps the unclamped total so ranking can split ties between
// signals pinned at the bounds.
type MarketSignal struct {
	Token     string
	Symbol    string
	Name      string
	Strategy  StrategyKind
	Score     float64
	RawScore  float64
	Reasons   []string
	Metrics   map[string]float64
	Regime    MarketRegime
	CreatedAt time.Time
}
