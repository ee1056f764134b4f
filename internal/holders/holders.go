// Package holders analyzes the distribution of a token's supply across its
// holders. Pure functions over a holder snapshot; no external calls.
package holders

import (
	"sort"

	"github.com/alanyoungcy/curvefleet/internal/domain"
)

// Concentration classifies how clustered a token's supply is.
type Concentration string

const (
	ConcentrationHigh        Concentration = "high"
	ConcentrationModerate    Concentration = "moderate"
	ConcentrationDistributed Concentration = "distributed"
)

const (
	whaleThresholdPct = 5.0
	microThresholdPct = 0.1
	singleHolderRisk  = 20.0
)

// Analysis is the distribution statistics for one holder snapshot.
type Analysis struct {
	HolderCount   int
	Top1Pct       float64
	Top5Pct       float64
	Top10Pct      float64
	WhaleCount    int // holders above 5% of supply
	MicroCount    int // holders below 0.1% of supply
	LargestPct    float64
	Concentration Concentration
}

// Analyze computes distribution statistics from a holder snapshot. The input
// need not be sorted. An empty snapshot yields a zero Analysis classified
// moderate, which callers treat as "no adjustment".
func Analyze(snapshot []domain.HolderBalance) Analysis {
	a := Analysis{HolderCount: len(snapshot), Concentration: ConcentrationModerate}
	if len(snapshot) == 0 {
		return a
	}

	pcts := make([]float64, len(snapshot))
	for i, h := range snapshot {
		pcts[i] = h.Pct
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(pcts)))

	a.LargestPct = pcts[0]
	a.Top1Pct = pcts[0]
	a.Top5Pct = sumTop(pcts, 5)
	a.Top10Pct = sumTop(pcts, 10)
	for _, p := range pcts {
		if p > whaleThresholdPct {
			a.WhaleCount++
		}
		if p < microThresholdPct {
			a.MicroCount++
		}
	}

	switch {
	case a.Top5Pct > 70 || a.LargestPct > singleHolderRisk:
		a.Concentration = ConcentrationHigh
	case a.Top5Pct < 40 && a.HolderCount > 20:
		a.Concentration = ConcentrationDistributed
	default:
		a.Concentration = ConcentrationModerate
	}
	return a
}

// SingleHolderRisk reports whether any single holder controls more than 20%
// of supply. Most strategies penalize this; explicitly risk-tolerant ones
// do not.
func (a Analysis) SingleHolderRisk() bool {
	return a.LargestPct > singleHolderRisk
}

func sumTop(sorted []float64, n int) float64 {
	if n > len(sorted) {
		n = len(sorted)
	}
	var sum float64
	for _, p := range sorted[:n] {
		sum += p
	}
	return sum
}
