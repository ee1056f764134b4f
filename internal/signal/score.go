// Package signal turns a token's enriched market snapshot into one scored,
// reasoned MarketSignal per strategy. Scoring never drops a token: every
// input yields a signal, and thresholding happens in the lifecycle layer.
package signal

import (
	"fmt"
	"time"

	"github.com/alanyoungcy/curvefleet/internal/domain"
	"github.com/alanyoungcy/curvefleet/internal/holders"
	"github.com/alanyoungcy/curvefleet/internal/indicators"
)

// baseScore is the starting point for every strategy: tokens must earn
// their way up from here.
const baseScore = 35

// Input is everything a scorer may consider for one token. Technical and
// Holders are nil when enrichment was skipped or failed; scorers treat that
// as "no adjustment".
type Input struct {
	Token     domain.TokenSummary
	Age       time.Duration
	Technical *indicators.Summary
	Holders   *holders.Analysis
	Regime    domain.RegimeReading
}

// builder accumulates score deltas with their reasons.
type builder struct {
	score   float64
	reasons []string
	metrics map[string]float64
}

func newBuilder() *builder {
	return &builder{score: baseScore, metrics: make(map[string]float64, 12)}
}

func (b *builder) add(delta float64, format string, args ...any) {
	if delta == 0 {
		return
	}
	b.score += delta
	sign := "+"
	if delta < 0 {
		sign = ""
	}
	b.reasons = append(b.reasons, fmt.Sprintf("%s%.0f: %s", sign, delta, fmt.Sprintf(format, args...)))
}

func (b *builder) metric(key string, v float64) {
	b.metrics[key] = v
}

// applyShared applies the strategy-independent scoring rules: volume tier,
// holder tier, and 1h momentum.
func applyShared(in Input, b *builder) {
	t := in.Token

	switch {
	case t.Volume1h > 300:
		b.add(12, "1h volume %.0f MON in top tier", t.Volume1h)
	case t.Volume1h > 100:
		b.add(8, "1h volume %.0f MON healthy", t.Volume1h)
	case t.Volume1h > 20:
		b.add(4, "1h volume %.0f MON moderate", t.Volume1h)
	}

	switch {
	case t.HolderCount > 300:
		b.add(10, "%d holders, broad base", t.HolderCount)
	case t.HolderCount > 100:
		b.add(7, "%d holders growing", t.HolderCount)
	case t.HolderCount > 50:
		b.add(4, "%d holders", t.HolderCount)
	}

	switch {
	case t.PriceChange1h > 25:
		b.add(8, "1h price +%.0f%% running hot", t.PriceChange1h)
	case t.PriceChange1h > 8:
		b.add(10, "1h price +%.0f%% momentum", t.PriceChange1h)
	case t.PriceChange1h > 0:
		b.add(5, "1h price +%.1f%% positive", t.PriceChange1h)
	case t.PriceChange1h < -30:
		b.add(-8, "1h price %.0f%% collapsing", t.PriceChange1h)
	}

	b.metric("price", t.Price)
	b.metric("volume_1h", t.Volume1h)
	b.metric("holder_count", float64(t.HolderCount))
	b.metric("curve_progress", t.CurveProgress)
	b.metric("price_change_1h", t.PriceChange1h)
	b.metric("price_change_24h", t.PriceChange24h)
	b.metric("reserve_mon", t.ReserveMon)
}

// regimeBonus is the fixed per-strategy regime bias table. Rows exist for
// every StrategyKind; completeness is checked at engine construction.
var regimeBonus = map[domain.StrategyKind]map[domain.MarketRegime]float64{
	domain.StrategyMomentumSniper:   {domain.RegimeBull: 10, domain.RegimeBear: -10, domain.RegimeSideways: 0},
	domain.StrategyContrarian:       {domain.RegimeBull: -10, domain.RegimeBear: 15, domain.RegimeSideways: 5},
	domain.StrategyWhaleHunter:      {domain.RegimeBull: 5, domain.RegimeBear: 0, domain.RegimeSideways: 0},
	domain.StrategyDiamondHands:     {domain.RegimeBull: 5, domain.RegimeBear: 5, domain.RegimeSideways: 0},
	domain.StrategyScalper:          {domain.RegimeBull: 5, domain.RegimeBear: -5, domain.RegimeSideways: 10},
	domain.StrategyDegenApe:         {domain.RegimeBull: 15, domain.RegimeBear: -15, domain.RegimeSideways: 0},
	domain.StrategyTechnicalAnalyst: {domain.RegimeBull: 5, domain.RegimeBear: -5, domain.RegimeSideways: 0},
	domain.StrategyGraduateHunter:   {domain.RegimeBull: 8, domain.RegimeBear: -8, domain.RegimeSideways: 0},
}

func applyRegime(kind domain.StrategyKind, in Input, b *builder) {
	bonus := regimeBonus[kind][in.Regime.Regime]
	if bonus != 0 {
		b.add(bonus, "%s regime bias for %s", in.Regime.Regime, kind)
	}
	b.metric("regime_confidence", in.Regime.Confidence)
}

// whaleAdjust converts a holder analysis into a bounded [-20,+20] score
// adjustment. riskTolerant strategies skip the single-holder penalty.
func whaleAdjust(a *holders.Analysis, rewardDistributed, riskTolerant bool) (float64, string) {
	if a == nil {
		return 0, ""
	}
	var adj float64
	switch a.Concentration {
	case holders.ConcentrationDistributed:
		if rewardDistributed {
			adj += 15
		} else {
			adj += 8
		}
	case holders.ConcentrationHigh:
		adj -= 12
	}
	if a.SingleHolderRisk() && !riskTolerant {
		adj -= 8
	}
	if a.WhaleCount >= 2 && a.WhaleCount <= 5 {
		adj += 5
	}
	if adj > 20 {
		adj = 20
	}
	if adj < -20 {
		adj = -20
	}
	reason := fmt.Sprintf("%s concentration, %d whales", a.Concentration, a.WhaleCount)
	return adj, reason
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
