package signal

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/alanyoungcy/curvefleet/internal/domain"
)

// Engine produces MarketSignals by dispatching each strategy through the
// closed overlay and regime tables. Stateless after construction; safe for
// concurrent use.
type Engine struct {
	logger *slog.Logger
}

// NewEngine verifies the dispatch tables cover every declared strategy and
// returns the engine. A missing table entry is a construction error: it is
// the one invariant violation that should end a cycle rather than be
// swallowed.
func NewEngine(logger *slog.Logger) (*Engine, error) {
	for _, kind := range domain.AllStrategyKinds() {
		if _, ok := overlays[kind]; !ok {
			return nil, fmt.Errorf("signal: no overlay registered for strategy %s", kind)
		}
		if _, ok := regimeBonus[kind]; !ok {
			return nil, fmt.Errorf("signal: no regime row registered for strategy %s", kind)
		}
	}
	return &Engine{logger: logger.With(slog.String("component", "signal_engine"))}, nil
}

// Score produces one signal for (kind, input). The result's score is always
// within [0,100]; a token failing every bonus still yields a signal and is
// filtered later by threshold comparison, never here.
func (e *Engine) Score(kind domain.StrategyKind, in Input, now time.Time) domain.MarketSignal {
	b := newBuilder()
	applyShared(in, b)
	overlays[kind](in, b)
	applyRegime(kind, in, b)

	raw := b.score
	score := clampScore(raw)
	if score != raw {
		b.reasons = append(b.reasons, fmt.Sprintf("clamped from %.0f", raw))
	}

	return domain.MarketSignal{
		Token:     domain.NormalizeToken(in.Token.Address),
		Symbol:    in.Token.Symbol,
		Name:      in.Token.Name,
		Strategy:  kind,
		Score:     score,
		RawScore:  raw,
		Reasons:   b.reasons,
		Metrics:   b.metrics,
		Regime:    in.Regime.Regime,
		CreatedAt: now,
	}
}

// Rank scores every input for the strategy and returns signals ordered best
// first. Clamp ties break on the unclamped raw score, then first-seen order
// via stable sort.
func (e *Engine) Rank(kind domain.StrategyKind, inputs []Input, now time.Time) []domain.MarketSignal {
	signals := make([]domain.MarketSignal, 0, len(inputs))
	for _, in := range inputs {
		signals = append(signals, e.Score(kind, in, now))
	}
	sort.SliceStable(signals, func(i, j int) bool {
		if signals[i].Score != signals[j].Score {
			return signals[i].Score > signals[j].Score
		}
		return signals[i].RawScore > signals[j].RawScore
	})
	return signals
}
