// Package momentum watches positions after entry for follow-through. Two
// fixed checkpoints compare holder growth and price drift against threshold
// matrices; between checkpoints a continuous classifier is available for
// the same decision.
package momentum

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/curvefleet/internal/domain"
)

// Verdict is the monitor's recommendation for a position.
type Verdict string

const (
	Hold              Verdict = "HOLD"
	SellDemandSpike   Verdict = "SELL_DEMAND_SPIKE"
	SellDeadToken     Verdict = "SELL_DEAD_TOKEN"
	SellMomentumDying Verdict = "SELL_MOMENTUM_DYING"
)

// Trend classifies a position's holder-growth rate between checkpoints.
type Trend string

const (
	TrendAccelerating Trend = "accelerating"
	TrendStable       Trend = "stable"
	TrendDying        Trend = "dying"
	TrendDead         Trend = "dead"
)

const (
	checkpointOne = 15 * time.Minute
	checkpointTwo = 30 * time.Minute

	// deadTokenTTL is how long a token flagged dead stays excluded.
	deadTokenTTL = 45 * time.Minute
)

// EntrySnapshot is the market state captured when the position opened.
type EntrySnapshot struct {
	Time          time.Time
	Price         float64
	HolderCount   int
	Volume1h      float64
	CurveProgress float64
}

// Recommendation is one checkpoint's output.
type Recommendation struct {
	Verdict  Verdict
	Reason   string
	// MarkDead asks the caller to flag the token for temporary exclusion.
	MarkDead bool
	DeadTTL  time.Duration
}

type tracked struct {
	entry    EntrySnapshot
	cp1Fired bool
	cp2Fired bool
}

// Monitor tracks entry snapshots per (agent, token). State is in-memory
// only: positions re-tracked after a restart mark already-passed checkpoints
// as fired instead of emitting stale verdicts.
type Monitor struct {
	mu      sync.Mutex
	entries map[string]*tracked
	logger  *slog.Logger
}

// NewMonitor returns an empty monitor.
func NewMonitor(logger *slog.Logger) *Monitor {
	return &Monitor{
		entries: make(map[string]*tracked),
		logger:  logger.With(slog.String("component", "momentum_monitor")),
	}
}

func key(agentID, token string) string {
	return agentID + "/" + domain.NormalizeToken(token)
}

// Track registers a position's entry snapshot. Checkpoints whose window has
// already passed at track time (a resumed position) are silently marked
// fired.
func (m *Monitor) Track(agentID, token string, entry EntrySnapshot, now time.Time) {
	t := &tracked{entry: entry}
	elapsed := now.Sub(entry.Time)
	if elapsed >= checkpointOne {
		t.cp1Fired = true
	}
	if elapsed >= checkpointTwo {
		t.cp2Fired = true
	}
	m.mu.Lock()
	m.entries[key(agentID, token)] = t
	m.mu.Unlock()
}

// Forget drops tracking state when a position closes.
func (m *Monitor) Forget(agentID, token string) {
	m.mu.Lock()
	delete(m.entries, key(agentID, token))
	m.mu.Unlock()
}

// Tracking reports whether the position is being monitored.
func (m *Monitor) Tracking(agentID, token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key(agentID, token)]
	return ok
}

// Evaluate runs the next due checkpoint against the current snapshot. It
// returns ok=false when the position is untracked or no checkpoint is due;
// each checkpoint fires at most once per position.
func (m *Monitor) Evaluate(agentID, token string, current domain.MarketSnapshot, now time.Time) (Recommendation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, exists := m.entries[key(agentID, token)]
	if !exists {
		return Recommendation{}, false
	}
	elapsed := now.Sub(t.entry.Time)

	switch {
	case !t.cp1Fired && elapsed >= checkpointOne:
		t.cp1Fired = true
		return m.checkpoint(t.entry, current, 1), true
	case !t.cp2Fired && elapsed >= checkpointTwo:
		t.cp2Fired = true
		return m.checkpoint(t.entry, current, 2), true
	}
	return Recommendation{}, false
}

// checkpoint applies the threshold matrix for the given checkpoint number.
func (m *Monitor) checkpoint(entry EntrySnapshot, current domain.MarketSnapshot, n int) Recommendation {
	holderGrowth := current.HolderCount - entry.HolderCount
	priceChange := 0.0
	if entry.Price > 0 {
		priceChange = (current.Price - entry.Price) / entry.Price * 100
	}

	spikeHolders, spikePrice := 15, 25.0
	deadHolders, deadPrice := 1, 5.0
	dyingPrice := -10.0
	if n == 2 {
		spikeHolders, spikePrice = 25, 40.0
		deadHolders, deadPrice = 3, 8.0
		dyingPrice = -15.0
	}

	switch {
	case holderGrowth >= spikeHolders && priceChange >= spikePrice:
		return Recommendation{
			Verdict: SellDemandSpike,
			Reason:  fmt.Sprintf("checkpoint %d: +%d holders, price +%.0f%%, selling into demand", n, holderGrowth, priceChange),
		}
	case holderGrowth <= deadHolders && priceChange < deadPrice:
		return Recommendation{
			Verdict:  SellDeadToken,
			Reason:   fmt.Sprintf("checkpoint %d: +%d holders, price %.0f%%, no follow-through", n, holderGrowth, priceChange),
			MarkDead: true,
			DeadTTL:  deadTokenTTL,
		}
	case priceChange <= dyingPrice:
		return Recommendation{
			Verdict: SellMomentumDying,
			Reason:  fmt.Sprintf("checkpoint %d: price %.0f%% against entry", n, priceChange),
		}
	}
	return Recommendation{Verdict: Hold, Reason: fmt.Sprintf("checkpoint %d: holding", n)}
}

// Classify derives the continuous momentum trend from holder growth since
// entry, available between checkpoints. Positions younger than 5 minutes
// report stable: too early to judge.
func (m *Monitor) Classify(agentID, token string, currentHolders int, now time.Time) Trend {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.entries[key(agentID, token)]
	if !ok {
		return TrendStable
	}
	elapsed := now.Sub(t.entry.Time)
	if elapsed < 5*time.Minute {
		return TrendStable
	}
	perMinute := float64(currentHolders-t.entry.HolderCount) / elapsed.Minutes()
	switch {
	case perMinute >= 1.0:
		return TrendAccelerating
	case perMinute >= 0.3:
		return TrendStable
	case perMinute > 0:
		return TrendDying
	default:
		return TrendDead
	}
}
