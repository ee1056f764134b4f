package domain

import "fmt"

// StrategyKind is a closed enumeration of agent personalities. Every place
// that dispatches on a strategy does so through this type and the function
// tables keyed by it, so an unhandled variant is a construction-time error
// rather than a silent misscore.
type StrategyKind int

const (
	StrategyMomentumSniper StrategyKind = iota
	StrategyContrarian
	StrategyWhaleHunter
	StrategyDiamondHands
	StrategyScalper
	StrategyDegenApe
	StrategyTechnicalAnalyst
	StrategyGraduateHunter

	strategyKindCount
)

// AllStrategyKinds returns every variant in declaration order.
func AllStrategyKinds() []StrategyKind {
	kinds := make([]StrategyKind, 0, strategyKindCount)
	for k := StrategyKind(0); k < strategyKindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

var strategyNames = [strategyKindCount]string{
	StrategyMomentumSniper:   "momentum_sniper",
	StrategyContrarian:       "contrarian",
	StrategyWhaleHunter:      "whale_hunter",
	StrategyDiamondHands:     "diamond_hands",
	StrategyScalper:          "scalper",
	StrategyDegenApe:         "degen_ape",
	StrategyTechnicalAnalyst: "technical_analyst",
	StrategyGraduateHunter:   "graduate_hunter",
}

// String returns the stable wire name of the strategy.
func (k StrategyKind) String() string {
	if k < 0 || k >= strategyKindCount {
		return fmt.Sprintf("strategy(%d)", int(k))
	}
	return strategyNames[k]
}

// Valid reports whether k is a declared variant.
func (k StrategyKind) Valid() bool {
	return k >= 0 && k < strategyKindCount
}

// ParseStrategyKind resolves a wire name back to its variant.
func ParseStrategyKind(name string) (StrategyKind, error) {
	for k, n := range strategyNames {
		if n == name {
			return StrategyKind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown strategy %q", name)
}
