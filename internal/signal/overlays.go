package signal

import (
	"time"

	"github.com/alanyoungcy/curvefleet/internal/domain"
	"github.com/alanyoungcy/curvefleet/internal/indicators"
)

// overlayFunc reweights the shared score for one strategy personality.
// Overlays only read the input and push deltas into the builder; they never
// see another strategy's state, so adding a strategy cannot perturb the
// existing ones.
type overlayFunc func(in Input, b *builder)

var overlays = map[domain.StrategyKind]overlayFunc{
	domain.StrategyMomentumSniper:   momentumSniperOverlay,
	domain.StrategyContrarian:       contrarianOverlay,
	domain.StrategyWhaleHunter:      whaleHunterOverlay,
	domain.StrategyDiamondHands:     diamondHandsOverlay,
	domain.StrategyScalper:          scalperOverlay,
	domain.StrategyDegenApe:         degenApeOverlay,
	domain.StrategyTechnicalAnalyst: technicalAnalystOverlay,
	domain.StrategyGraduateHunter:   graduateHunterOverlay,
}

func momentumSniperOverlay(in Input, b *builder) {
	if ti := in.Technical; ti != nil {
		if ti.HasRSI {
			b.metric("rsi", ti.RSI)
			switch {
			case ti.RSI >= 50 && ti.RSI <= 70:
				b.add(10, "RSI %.0f in momentum zone", ti.RSI)
			case ti.RSI > 80:
				b.add(-8, "RSI %.0f exhausted", ti.RSI)
			}
		}
		if ti.HasMAs && ti.Crossover == indicators.CrossBullish {
			b.add(8, "bullish MA crossover")
		}
		if ti.HasVolume {
			switch ti.VolumeTrend {
			case indicators.VolumeIncreasing:
				b.add(8, "volume accelerating")
			case indicators.VolumeDecreasing:
				b.add(-10, "volume fading under momentum entry")
			}
		}
	}
	if adj, reason := whaleAdjust(in.Holders, false, false); adj != 0 {
		b.add(adj, "holder mix: %s", reason)
	}
}

func contrarianOverlay(in Input, b *builder) {
	t := in.Token
	if ti := in.Technical; ti != nil && ti.HasRSI {
		b.metric("rsi", ti.RSI)
		switch {
		case ti.RSI < 30:
			b.add(15, "RSI %.0f oversold", ti.RSI)
		case ti.RSI > 70:
			b.add(-12, "RSI %.0f overbought, crowd is in", ti.RSI)
		}
	}
	// A dip with a growing holder base is the contrarian setup.
	if t.PriceChange1h < -10 && t.HolderCount > 50 {
		b.add(12, "dip %.0f%% with %d holders still aboard", t.PriceChange1h, t.HolderCount)
	}
	if t.PriceChange1h > 15 {
		b.add(-10, "chasing +%.0f%% is not contrarian", t.PriceChange1h)
	}
	if adj, reason := whaleAdjust(in.Holders, false, false); adj != 0 {
		b.add(adj, "holder mix: %s", reason)
	}
}

func whaleHunterOverlay(in Input, b *builder) {
	if a := in.Holders; a != nil {
		b.metric("whale_count", float64(a.WhaleCount))
		b.metric("top5_pct", a.Top5Pct)
		switch {
		case a.WhaleCount >= 2 && a.WhaleCount <= 5:
			b.add(15, "%d whales accumulating", a.WhaleCount)
		case a.WhaleCount > 5:
			b.add(5, "%d whales, crowded but active", a.WhaleCount)
		default:
			b.add(-5, "no whale interest yet")
		}
		// Deliberately risk-tolerant of a dominant holder: that is the
		// whale being hunted.
		if a.Top5Pct > 40 && a.Top5Pct < 70 {
			b.add(8, "top-5 hold %.0f%%, conviction without lockout", a.Top5Pct)
		}
	}
	if ti := in.Technical; ti != nil && ti.HasVolume && ti.VolumeTrend == indicators.VolumeIncreasing {
		b.add(6, "volume confirms accumulation")
	}
}

func diamondHandsOverlay(in Input, b *builder) {
	if adj, reason := whaleAdjust(in.Holders, true, false); adj != 0 {
		b.add(adj, "holder mix: %s", reason)
	}
	if a := in.Holders; a != nil && a.MicroCount > 50 {
		b.add(8, "%d micro holders, organic base", a.MicroCount)
	}
	if ti := in.Technical; ti != nil && ti.HasVolatility {
		b.metric("volatility", ti.Volatility)
		if ti.Volatility < 0.05 {
			b.add(8, "low volatility, holdable")
		} else if ti.Volatility > 0.2 {
			b.add(-8, "volatility %.2f too violent to hold", ti.Volatility)
		}
	}
	if in.Token.PriceChange24h > 0 && in.Token.PriceChange1h > -5 {
		b.add(6, "steady 24h uptrend")
	}
}

func scalperOverlay(in Input, b *builder) {
	if ti := in.Technical; ti != nil {
		if ti.HasVolatility {
			b.metric("volatility", ti.Volatility)
			if ti.Volatility > 0.08 {
				b.add(12, "volatility %.2f gives scalp range", ti.Volatility)
			} else if ti.Volatility < 0.02 {
				b.add(-8, "volatility %.2f too flat to scalp", ti.Volatility)
			}
		}
		if ti.HasVolume && ti.VolumeTrend == indicators.VolumeIncreasing {
			b.add(8, "rising volume, fills available")
		}
		if ti.HasVWAP && in.Token.Price < ti.VWAP {
			b.add(6, "price below VWAP, favorable entry")
		}
	}
	if in.Token.Volume1h > 200 {
		b.add(5, "liquid enough for quick exits")
	}
}

func degenApeOverlay(in Input, b *builder) {
	t := in.Token
	if t.CurveProgress < 30 {
		b.add(12, "curve %.0f%%, early entry", t.CurveProgress)
	}
	if in.Age < 2*time.Hour {
		b.add(8, "token %s old, fresh launch", in.Age.Round(time.Minute))
	}
	if t.PriceChange1h > 25 {
		b.add(10, "+%.0f%% pump, aping in", t.PriceChange1h)
	}
	if ti := in.Technical; ti != nil && ti.HasVolume && ti.VolumeTrend == indicators.VolumeIncreasing {
		b.add(6, "volume spike")
	}
	// Risk-tolerant: a 20%+ holder does not scare this strategy.
	if adj, reason := whaleAdjust(in.Holders, false, true); adj != 0 {
		b.add(adj, "holder mix: %s", reason)
	}
}

func technicalAnalystOverlay(in Input, b *builder) {
	ti := in.Technical
	if ti == nil {
		b.add(-5, "no chart data, flying blind")
		return
	}
	if ti.HasRSI {
		b.metric("rsi", ti.RSI)
		switch {
		case ti.RSI < 30:
			b.add(10, "RSI %.0f oversold", ti.RSI)
		case ti.RSI > 70:
			b.add(-10, "RSI %.0f overbought", ti.RSI)
		case ti.RSI >= 45 && ti.RSI <= 60:
			b.add(6, "RSI %.0f balanced", ti.RSI)
		}
	}
	if ti.HasMAs {
		switch ti.Crossover {
		case indicators.CrossBullish:
			b.add(12, "EMA5 above EMA20, bullish structure")
		case indicators.CrossBearish:
			b.add(-12, "EMA5 below EMA20, bearish structure")
		}
	}
	if ti.HasVWAP {
		b.metric("vwap", ti.VWAP)
		if in.Token.Price > ti.VWAP {
			b.add(5, "trading above VWAP")
		}
	}
	if ti.HasVolume {
		switch ti.VolumeTrend {
		case indicators.VolumeIncreasing:
			b.add(6, "volume confirms move")
		case indicators.VolumeDecreasing:
			b.add(-6, "volume divergence")
		}
	}
	if adj, reason := whaleAdjust(in.Holders, false, false); adj != 0 {
		b.add(adj, "holder mix: %s", reason)
	}
}

func graduateHunterOverlay(in Input, b *builder) {
	t := in.Token
	b.metric("curve_progress", t.CurveProgress)
	switch {
	case t.Graduated:
		b.add(-15, "already graduated, edge gone")
	case t.CurveProgress >= 70 && t.CurveProgress <= 95:
		b.add(18, "curve %.0f%%, graduation runway", t.CurveProgress)
	case t.CurveProgress > 95:
		b.add(8, "curve %.0f%%, imminent graduation", t.CurveProgress)
	case t.CurveProgress < 40:
		b.add(-8, "curve %.0f%%, too far from graduation", t.CurveProgress)
	}
	if t.Volume1h > 100 && t.CurveProgress > 60 {
		b.add(6, "volume pushing toward graduation")
	}
	if adj, reason := whaleAdjust(in.Holders, false, false); adj != 0 {
		b.add(adj, "holder mix: %s", reason)
	}
}
