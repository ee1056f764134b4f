// Package learning derives per-agent decision parameters from rolling trade
// history. Pure functions: the profile is recomputed each cycle and never
// persisted.
package learning

import (
	"sort"

	"github.com/alanyoungcy/curvefleet/internal/domain"
)

const (
	// WindowSize is how many recent trades feed the profile.
	WindowSize = 20
	// minSample is the trade count below which defaults apply.
	minSample = 5

	defaultThreshold = 65.0
	// aggressiveThreshold lets a proven agent act on weaker signals. The
	// threshold never rises above default: a struggling agent still needs
	// trades to learn from.
	aggressiveThreshold = 58.0

	defaultMaxPositions = 3
)

// Controller computes learning profiles. Stateless.
type Controller struct{}

// NewController returns a Controller.
func NewController() *Controller {
	return &Controller{}
}

// Profile derives the agent's learning profile from its recent sell trades.
// Only sells carry realized PnL; buys and error records are ignored for
// win-rate purposes but reason strings from winning and losing sells are
// collected for the advisory prompt.
func (c *Controller) Profile(trades []domain.Trade) domain.LearningProfile {
	p := domain.LearningProfile{
		ConfidenceThreshold: defaultThreshold,
		SizeMultiplier:      1.0,
		MaxPositions:        defaultMaxPositions,
	}

	var wins, losses int
	var netPnL int64
	reasonPnL := map[string]int64{}
	for _, t := range trades {
		if t.Type != domain.TradeSell || t.RealizedPnLUnits == nil {
			continue
		}
		pnl := *t.RealizedPnLUnits
		netPnL += pnl
		if pnl > 0 {
			wins++
		} else {
			losses++
		}
		if t.Reason != "" {
			reasonPnL[t.Reason] += pnl
		}
	}

	p.TradeCount = wins + losses
	p.NetPnLUnits = netPnL
	if p.TradeCount < minSample {
		// Insufficient data: defaults stand.
		return p
	}
	p.WinRate = float64(wins) / float64(p.TradeCount)

	// Confidence threshold: three tiers, never stricter than default.
	if p.WinRate >= 0.6 {
		p.ConfidenceThreshold = aggressiveThreshold
	}

	// Position sizing: reduce under sustained losses, elevate only when
	// both profit and win rate support it.
	switch {
	case netPnL < -2*domain.UnitsPerMon:
		p.SizeMultiplier = 0.5
	case netPnL > 5*domain.UnitsPerMon && p.WinRate >= 0.55:
		p.SizeMultiplier = 1.5
	}

	// Concurrent positions: widen with proof, narrow to focus on quality.
	switch {
	case p.WinRate >= 0.6:
		p.MaxPositions = 5
	case p.WinRate < 0.35:
		p.MaxPositions = 2
	}

	p.WinningReasons, p.LosingReasons = splitReasons(reasonPnL)
	return p
}

// splitReasons buckets reason strings by their net PnL contribution, best
// and worst first.
func splitReasons(reasonPnL map[string]int64) (winning, losing []string) {
	type rp struct {
		reason string
		pnl    int64
	}
	all := make([]rp, 0, len(reasonPnL))
	for r, pnl := range reasonPnL {
		all = append(all, rp{r, pnl})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].pnl != all[j].pnl {
			return all[i].pnl > all[j].pnl
		}
		return all[i].reason < all[j].reason
	})
	for _, e := range all {
		if e.pnl > 0 {
			winning = append(winning, e.reason)
		} else if e.pnl < 0 {
			losing = append(losing, e.reason)
		}
	}
	// Worst losers first.
	for i, j := 0, len(losing)-1; i < j; i, j = i+1, j-1 {
		losing[i], losing[j] = losing[j], losing[i]
	}
	return winning, losing
}
