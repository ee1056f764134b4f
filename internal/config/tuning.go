package config

import (
	"errors"
	"time"

	"github.com/alanyoungcy/curvefleet/internal/domain"
)

// StrategyTuning carries the hand-tuned numeric constants for one strategy's
// exits and sizing. These values are deliberately reproduced as given, not
// optimized; keeping them as data means revisiting them never touches
// control flow.
type StrategyTuning struct {
	// PartialTargetPct triggers a partial exit (50% of the position,
	// floor 25%) when unrealized PnL reaches it.
	PartialTargetPct float64 `toml:"partial_target_pct"`
	// FullTargetPct triggers a full exit.
	FullTargetPct float64 `toml:"full_target_pct"`
	// StopLossPct is the hard stop, expressed negative.
	StopLossPct float64 `toml:"stop_loss_pct"`
	// TrailingStopPct is the allowed retreat from peak PnL once the
	// trailing stop is armed (peak > 5%).
	TrailingStopPct float64 `toml:"trailing_stop_pct"`
	// MaxHold forces a full exit regardless of PnL.
	MaxHold duration `toml:"max_hold"`
	// TimeBands tighten the acceptable PnL floor as hold duration grows.
	TimeBands []TimeBand `toml:"time_bands"`
}

// TimeBand exits a position whose PnL sits below MinPnLPct once it has been
// held longer than After.
type TimeBand struct {
	After     duration `toml:"after"`
	MinPnLPct float64  `toml:"min_pnl_pct"`
}

func (t StrategyTuning) validate() error {
	if t.PartialTargetPct <= 0 || t.FullTargetPct <= t.PartialTargetPct {
		return errors.New("targets must satisfy 0 < partial_target_pct < full_target_pct")
	}
	if t.StopLossPct >= 0 {
		return errors.New("stop_loss_pct must be negative")
	}
	if t.TrailingStopPct <= 0 {
		return errors.New("trailing_stop_pct must be positive")
	}
	if t.MaxHold.Duration <= 0 {
		return errors.New("max_hold must be positive")
	}
	for i := 1; i < len(t.TimeBands); i++ {
		if t.TimeBands[i].After.Duration <= t.TimeBands[i-1].After.Duration {
			return errors.New("time_bands must be ordered by increasing after")
		}
	}
	return nil
}

// DefaultTuning returns the production tuning table, one row per strategy.
func DefaultTuning() map[string]StrategyTuning {
	mins := func(m int) duration { return duration{time.Duration(m) * time.Minute} }
	return map[string]StrategyTuning{
		domain.StrategyMomentumSniper.String(): {
			PartialTargetPct: 35, FullTargetPct: 80, StopLossPct: -20, TrailingStopPct: 12,
			MaxHold: mins(120),
			TimeBands: []TimeBand{
				{After: mins(30), MinPnLPct: -12},
				{After: mins(60), MinPnLPct: -5},
				{After: mins(90), MinPnLPct: 0},
			},
		},
		domain.StrategyContrarian.String(): {
			PartialTargetPct: 40, FullTargetPct: 100, StopLossPct: -30, TrailingStopPct: 18,
			MaxHold: mins(360),
			TimeBands: []TimeBand{
				{After: mins(90), MinPnLPct: -20},
				{After: mins(180), MinPnLPct: -10},
				{After: mins(300), MinPnLPct: 0},
			},
		},
		domain.StrategyWhaleHunter.String(): {
			PartialTargetPct: 45, FullTargetPct: 110, StopLossPct: -25, TrailingStopPct: 15,
			MaxHold: mins(240),
			TimeBands: []TimeBand{
				{After: mins(60), MinPnLPct: -15},
				{After: mins(150), MinPnLPct: -5},
			},
		},
		domain.StrategyDiamondHands.String(): {
			PartialTargetPct: 80, FullTargetPct: 200, StopLossPct: -40, TrailingStopPct: 25,
			MaxHold: mins(720),
			TimeBands: []TimeBand{
				{After: mins(240), MinPnLPct: -25},
				{After: mins(480), MinPnLPct: -10},
			},
		},
		domain.StrategyScalper.String(): {
			PartialTargetPct: 12, FullTargetPct: 25, StopLossPct: -10, TrailingStopPct: 6,
			MaxHold: mins(45),
			TimeBands: []TimeBand{
				{After: mins(15), MinPnLPct: -6},
				{After: mins(30), MinPnLPct: 0},
			},
		},
		domain.StrategyDegenApe.String(): {
			PartialTargetPct: 60, FullTargetPct: 150, StopLossPct: -35, TrailingStopPct: 20,
			MaxHold: mins(90),
			TimeBands: []TimeBand{
				{After: mins(30), MinPnLPct: -25},
				{After: mins(60), MinPnLPct: -10},
			},
		},
		domain.StrategyTechnicalAnalyst.String(): {
			PartialTargetPct: 30, FullTargetPct: 70, StopLossPct: -18, TrailingStopPct: 10,
			MaxHold: mins(180),
			TimeBands: []TimeBand{
				{After: mins(45), MinPnLPct: -12},
				{After: mins(90), MinPnLPct: -5},
				{After: mins(150), MinPnLPct: 0},
			},
		},
		domain.StrategyGraduateHunter.String(): {
			PartialTargetPct: 50, FullTargetPct: 120, StopLossPct: -22, TrailingStopPct: 14,
			MaxHold: mins(300),
			TimeBands: []TimeBand{
				{After: mins(90), MinPnLPct: -15},
				{After: mins(210), MinPnLPct: -5},
			},
		},
	}
}

// TuningFor resolves the tuning row for a strategy. The Validate pass
// guarantees a row exists for every seeded agent.
func (c *Config) TuningFor(kind domain.StrategyKind) (StrategyTuning, bool) {
	t, ok := c.Strategies[kind.String()]
	return t, ok
}
