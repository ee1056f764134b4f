// Package lifecycle drives one agent through a full trading cycle: reconcile
// persisted positions against settlement truth, evaluate exits in fixed
// priority order, then scan for at most one new entry. Holdings and trailing
// stops are owned exclusively by their agent; the only cross-agent state the
// manager touches is the claim registry and the per-cycle blacklist.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/curvefleet/internal/config"
	"github.com/alanyoungcy/curvefleet/internal/coordinator"
	"github.com/alanyoungcy/curvefleet/internal/domain"
	"github.com/alanyoungcy/curvefleet/internal/learning"
	"github.com/alanyoungcy/curvefleet/internal/momentum"
	"github.com/alanyoungcy/curvefleet/internal/notify"
	"github.com/alanyoungcy/curvefleet/internal/signal"
)

// trailingArmPct is the peak PnL% above which the trailing stop arms.
const trailingArmPct = 5.0

// maxEntryAttempts bounds how many ranked candidates one cycle will take
// through the advisory and settlement path.
const maxEntryAttempts = 3

// Notifier is the slice of the notify package the manager uses. Nil disables
// notifications.
type Notifier interface {
	Notify(ctx context.Context, event notify.Event, title, message string) error
}

// Settings are the sizing and execution knobs shared by every agent.
type Settings struct {
	MinTradeUnits int64
	MaxCapitalPct float64
	ClaimTTL      time.Duration
	SlippageBps   int
	TxDeadline    time.Duration
}

// Manager runs agent cycles. One instance serves the whole fleet; per-agent
// state (trailing stops) is keyed by agent and token.
type Manager struct {
	logger     *slog.Logger
	settlement domain.SettlementLayer
	provider   domain.MarketDataProvider
	holdings   domain.HoldingStore
	trades     domain.TradeStore
	pnl        domain.PnLStore
	engine     *signal.Engine
	advisor    domain.Advisor // primary, may be nil
	fallback   domain.Advisor // deterministic, always set
	claims     *coordinator.ClaimRegistry
	dead       domain.DeadTokenRegistry
	monitor    *momentum.Monitor
	learner    *learning.Controller
	notifier   Notifier
	tuning     map[string]config.StrategyTuning
	settings   Settings

	mu       sync.Mutex
	trailing map[string]*domain.TrailingStopState

	now func() time.Time
}

// Deps collects the manager's constructor dependencies.
type Deps struct {
	Logger     *slog.Logger
	Settlement domain.SettlementLayer
	Provider   domain.MarketDataProvider
	Holdings   domain.HoldingStore
	Trades     domain.TradeStore
	PnL        domain.PnLStore
	Engine     *signal.Engine
	Advisor    domain.Advisor
	Fallback   domain.Advisor
	Claims     *coordinator.ClaimRegistry
	Dead       domain.DeadTokenRegistry
	Monitor    *momentum.Monitor
	Learner    *learning.Controller
	Notifier   Notifier
	Tuning     map[string]config.StrategyTuning
	Settings   Settings
}

// NewManager wires a Manager from its dependencies.
func NewManager(d Deps) *Manager {
	return &Manager{
		logger:     d.Logger.With(slog.String("component", "lifecycle")),
		settlement: d.Settlement,
		provider:   d.Provider,
		holdings:   d.Holdings,
		trades:     d.Trades,
		pnl:        d.PnL,
		engine:     d.Engine,
		advisor:    d.Advisor,
		fallback:   d.Fallback,
		claims:     d.Claims,
		dead:       d.Dead,
		monitor:    d.Monitor,
		learner:    d.Learner,
		notifier:   d.Notifier,
		tuning:     d.Tuning,
		settings:   d.Settings,
		trailing:   make(map[string]*domain.TrailingStopState),
		now:        time.Now,
	}
}

// CycleInput is the fleet-shared context for one agent cycle: the regime
// reading, the quality-passed and enriched candidate set, and the cycle
// blacklist.
type CycleInput struct {
	Regime     domain.RegimeReading
	Candidates []signal.Input
	Blacklist  *coordinator.Blacklist
}

// Summary reports what one agent cycle did.
type Summary struct {
	AgentID       string
	AgentName     string
	ExitsExecuted int
	EnteredToken  string
	Action        string
	OpenPositions int
}

// RunCycle executes one full cycle for the agent. Component-local failures
// degrade individual checks; only errors that make the whole cycle
// meaningless (no settlement balance, no open-holdings read) are returned.
func (m *Manager) RunCycle(ctx context.Context, agent domain.Agent, in CycleInput) (Summary, error) {
	sum := Summary{AgentID: agent.ID, AgentName: agent.DisplayName}
	now := m.now()

	balance, err := m.settlement.AgentBalance(ctx, agent.VaultIndex)
	if err != nil {
		return sum, fmt.Errorf("agent balance: %w", err)
	}

	held, err := m.reconcile(ctx, agent)
	if err != nil {
		return sum, fmt.Errorf("reconcile: %w", err)
	}

	recent, err := m.trades.ListRecent(ctx, agent.ID, learning.WindowSize)
	if err != nil {
		m.logger.Warn("trade history unavailable, learning defaults apply",
			slog.String("agent", agent.DisplayName), slog.Any("error", err))
	}
	profile := m.learner.Profile(recent)

	// Exits run before entries so freed capital is available this cycle.
	remaining := make([]domain.Holding, 0, len(held))
	for _, h := range held {
		closed, partial := m.evaluateExit(ctx, agent, &h, now)
		if closed || partial {
			sum.ExitsExecuted++
		}
		if !closed {
			remaining = append(remaining, h)
		}
	}
	sum.OpenPositions = len(remaining)

	maxPos := agent.MaxPositions
	if profile.MaxPositions < maxPos {
		maxPos = profile.MaxPositions
	}
	switch {
	case len(remaining) >= maxPos:
		sum.Action = fmt.Sprintf("at position cap (%d/%d)", len(remaining), maxPos)
	default:
		token, action := m.scanEntries(ctx, agent, in, profile, balance.CapitalUnits, len(remaining), now)
		sum.EnteredToken = token
		sum.Action = action
		if token != "" {
			sum.OpenPositions++
		}
	}

	m.snapshotPnL(ctx, agent, balance, remaining, sum.OpenPositions)
	return sum, nil
}

// reconcile lists persisted holdings and overwrites each with the settlement
// layer's view. Settlement wins every disagreement; a holding the vault no
// longer carries is deleted.
func (m *Manager) reconcile(ctx context.Context, agent domain.Agent) ([]domain.Holding, error) {
	held, err := m.holdings.ListOpen(ctx, agent.ID)
	if err != nil {
		return nil, err
	}

	out := held[:0]
	for _, h := range held {
		truth, err := m.settlement.AgentHolding(ctx, agent.VaultIndex, h.Token)
		if err != nil {
			// Settlement read failed: keep the persisted view for this cycle.
			m.logger.Warn("holding reconciliation skipped",
				slog.String("agent", agent.DisplayName),
				slog.String("token", h.Token),
				slog.Any("error", err))
			out = append(out, h)
			continue
		}
		if truth.AmountUnits == 0 {
			if err := m.holdings.Delete(ctx, agent.ID, h.Token); err != nil {
				m.logger.Warn("stale holding delete failed", slog.Any("error", err))
			}
			m.forgetPosition(agent.ID, h.Token)
			continue
		}
		if truth.AmountUnits != h.AmountUnits || truth.CostUnits != h.CostUnits {
			m.logger.Info("holding reconciled to settlement truth",
				slog.String("agent", agent.DisplayName),
				slog.String("token", h.Token),
				slog.Int64("stored_units", h.AmountUnits),
				slog.Int64("vault_units", truth.AmountUnits))
			h.AmountUnits = truth.AmountUnits
			if truth.CostUnits > 0 {
				h.CostUnits = truth.CostUnits
			}
			h.UpdatedAt = m.now()
			if err := m.holdings.Upsert(ctx, h); err != nil {
				m.logger.Warn("reconciled holding upsert failed", slog.Any("error", err))
			}
		}
		out = append(out, h)
	}
	return out, nil
}

// trailingFor returns the trailing stop state for the position, creating it
// anchored at zero on first sight. After a restart the stop re-anchors at the
// next observed PnL, an accepted degradation.
func (m *Manager) trailingFor(agentID, token string) *domain.TrailingStopState {
	k := agentID + "/" + domain.NormalizeToken(token)
	m.mu.Lock()
	defer m.mu.Unlock()
	ts, ok := m.trailing[k]
	if !ok {
		ts = &domain.TrailingStopState{}
		m.trailing[k] = ts
	}
	return ts
}

// forgetPosition drops the per-position in-memory state after a close.
func (m *Manager) forgetPosition(agentID, token string) {
	m.monitor.Forget(agentID, token)
	m.mu.Lock()
	delete(m.trailing, agentID+"/"+domain.NormalizeToken(token))
	m.mu.Unlock()
}

// snapshotPnL appends one equity point for the agent.
func (m *Manager) snapshotPnL(ctx context.Context, agent domain.Agent, balance domain.AgentBalance, held []domain.Holding, open int) {
	var holdingsUnits int64
	for _, h := range held {
		holdingsUnits += h.MarkValueUnits(h.CurrentPrice)
	}
	snap := domain.PnLSnapshot{
		AgentID:          agent.ID,
		CapitalUnits:     balance.CapitalUnits,
		HoldingsUnits:    holdingsUnits,
		RealizedPnLUnits: balance.RealizedPnLUnits,
		OpenPositions:    open,
		CreatedAt:        m.now(),
	}
	if err := m.pnl.Insert(ctx, snap); err != nil {
		m.logger.Warn("pnl snapshot insert failed", slog.Any("error", err))
	}
}

// recordError appends an error-type audit entry so failed submissions stay
// reconstructable.
func (m *Manager) recordError(ctx context.Context, agent domain.Agent, token, symbol, reason string) {
	t := domain.Trade{
		AgentID:   agent.ID,
		Token:     domain.NormalizeToken(token),
		Symbol:    symbol,
		Type:      domain.TradeError,
		Reason:    reason,
		CreatedAt: m.now(),
	}
	if _, err := m.trades.Insert(ctx, t); err != nil {
		m.logger.Warn("error trade insert failed", slog.Any("error", err))
	}
}

// notify forwards an event if a notifier is configured.
func (m *Manager) notify(ctx context.Context, event notify.Event, title, message string) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Notify(ctx, event, title, message); err != nil {
		m.logger.Debug("notification failed", slog.String("event", string(event)), slog.Any("error", err))
	}
}
