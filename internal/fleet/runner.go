// Package fleet schedules agent cycles. Agents run sequentially with a
// randomized inter-agent delay; the cycle-scoped market view (token batch,
// regime reading, enriched candidates, blacklist) is built once and shared by
// every agent so cross-agent reads stay simple and non-racing.
package fleet

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"github.com/alanyoungcy/curvefleet/internal/coordinator"
	"github.com/alanyoungcy/curvefleet/internal/domain"
	"github.com/alanyoungcy/curvefleet/internal/holders"
	"github.com/alanyoungcy/curvefleet/internal/indicators"
	"github.com/alanyoungcy/curvefleet/internal/lifecycle"
	"github.com/alanyoungcy/curvefleet/internal/notify"
	"github.com/alanyoungcy/curvefleet/internal/quality"
	"github.com/alanyoungcy/curvefleet/internal/regime"
	"github.com/alanyoungcy/curvefleet/internal/signal"
)

// Settings are the runner's scheduling knobs.
type Settings struct {
	ScanLimit          int
	EnrichTopK         int
	EnrichDelay        time.Duration
	InterAgentDelayMin time.Duration
	InterAgentDelayMax time.Duration
}

// AgentCycleResult is one agent's outcome within a fleet cycle.
type AgentCycleResult struct {
	AgentID   string `json:"agentId"`
	AgentName string `json:"agentName"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// Runner drives fleet cycles.
type Runner struct {
	logger   *slog.Logger
	agents   domain.AgentStore
	provider domain.MarketDataProvider
	filter   *quality.Filter
	detector *regime.Detector
	manager  *lifecycle.Manager
	notifier lifecycle.Notifier
	settings Settings

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) bool
}

// NewRunner wires a Runner.
func NewRunner(logger *slog.Logger, agents domain.AgentStore, provider domain.MarketDataProvider,
	filter *quality.Filter, detector *regime.Detector, manager *lifecycle.Manager,
	notifier lifecycle.Notifier, settings Settings) *Runner {
	return &Runner{
		logger:   logger.With(slog.String("component", "fleet")),
		agents:   agents,
		provider: provider,
		filter:   filter,
		detector: detector,
		manager:  manager,
		notifier: notifier,
		settings: settings,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// RunFleetCycle executes one cycle for every agent. A failing agent is
// reported in its result entry and never disturbs the others.
func (r *Runner) RunFleetCycle(ctx context.Context) ([]AgentCycleResult, error) {
	agents, err := r.agents.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}

	in := r.buildCycleInput(ctx)
	r.logger.Info("fleet cycle started",
		slog.Int("agents", len(agents)),
		slog.Int("candidates", len(in.Candidates)),
		slog.String("regime", in.Regime.Regime.String()),
		slog.Float64("regime_confidence", in.Regime.Confidence))

	results := make([]AgentCycleResult, 0, len(agents))
	for i, agent := range agents {
		if i > 0 && !r.sleep(ctx, r.interAgentDelay()) {
			break
		}
		if ctx.Err() != nil {
			break
		}
		results = append(results, r.runOne(ctx, agent, in))
	}
	return results, nil
}

// RunSingleAgentCycle runs one agent against a freshly built cycle view.
func (r *Runner) RunSingleAgentCycle(ctx context.Context, agentID string) (AgentCycleResult, error) {
	agent, err := r.agents.GetByID(ctx, agentID)
	if err != nil {
		return AgentCycleResult{}, fmt.Errorf("agent %s: %w", agentID, err)
	}
	in := r.buildCycleInput(ctx)
	return r.runOne(ctx, agent, in), nil
}

// BuildCycleInput exposes the shared cycle view for read-only consumers such
// as monitor mode, which scores candidates without executing trades.
func (r *Runner) BuildCycleInput(ctx context.Context) lifecycle.CycleInput {
	return r.buildCycleInput(ctx)
}

// runOne isolates a single agent cycle: panics and errors are converted into
// the result entry.
func (r *Runner) runOne(ctx context.Context, agent domain.Agent, in lifecycle.CycleInput) (res AgentCycleResult) {
	res = AgentCycleResult{AgentID: agent.ID, AgentName: agent.DisplayName}

	defer func() {
		if p := recover(); p != nil {
			res.Status = "panic"
			res.Error = fmt.Sprintf("%v", p)
			r.logger.Error("agent cycle panicked",
				slog.String("agent", agent.DisplayName),
				slog.Any("panic", p))
			r.notifyError(ctx, agent.DisplayName, fmt.Sprintf("panic: %v", p))
		}
	}()

	sum, err := r.manager.RunCycle(ctx, agent, in)
	if err != nil {
		res.Status = "error"
		res.Error = err.Error()
		r.logger.Error("agent cycle failed",
			slog.String("agent", agent.DisplayName),
			slog.Any("error", err))
		r.notifyError(ctx, agent.DisplayName, err.Error())
		return res
	}

	res.Status = sum.Action
	if sum.EnteredToken != "" || sum.ExitsExecuted > 0 {
		res.Status = fmt.Sprintf("%s (%d exits)", sum.Action, sum.ExitsExecuted)
	}
	r.logger.Info("agent cycle finished",
		slog.String("agent", agent.DisplayName),
		slog.String("action", sum.Action),
		slog.Int("exits", sum.ExitsExecuted),
		slog.Int("open_positions", sum.OpenPositions))
	return res
}

// buildCycleInput fetches the token batch once and prepares the shared cycle
// view: regime reading, quality-passed candidates, top-K enrichment, and a
// fresh blacklist. Provider failures shrink the view instead of failing it.
func (r *Runner) buildCycleInput(ctx context.Context) lifecycle.CycleInput {
	now := r.now()
	batch := r.provider.ListRecentTokens(ctx, r.settings.ScanLimit)

	in := lifecycle.CycleInput{
		Regime:    r.detector.Detect(batch, now),
		Blacklist: coordinator.NewBlacklist(),
	}

	type scored struct {
		token domain.TokenSummary
		score float64
	}
	passed := make([]scored, 0, len(batch))
	for _, t := range batch {
		res := r.filter.Evaluate(t, now)
		if !res.Passed {
			r.logger.Debug("quality gate rejected token",
				slog.String("token", t.Address),
				slog.String("reason", res.Reason))
			continue
		}
		passed = append(passed, scored{token: t, score: res.Score})
	}
	sort.SliceStable(passed, func(i, j int) bool { return passed[i].score > passed[j].score })

	// Chart and holder enrichment is throttled and capped to the best
	// candidates; exceeding the upstream budget degrades access for every
	// agent.
	for i, c := range passed {
		input := signal.Input{
			Token:  c.token,
			Age:    c.token.Age(now),
			Regime: in.Regime,
		}
		if i < r.settings.EnrichTopK {
			if i > 0 && !r.sleep(ctx, r.settings.EnrichDelay) {
				break
			}
			if series := r.provider.GetPriceSeries(ctx, c.token.Address, time.Minute); len(series) > 0 {
				summary := indicators.Compute(series)
				input.Technical = &summary
			}
			if hs := r.provider.GetHolders(ctx, c.token.Address); len(hs) > 0 {
				analysis := holders.Analyze(hs)
				input.Holders = &analysis
			}
		}
		in.Candidates = append(in.Candidates, input)
	}
	return in
}

func (r *Runner) interAgentDelay() time.Duration {
	lo, hi := r.settings.InterAgentDelayMin, r.settings.InterAgentDelayMax
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rand.Int63n(int64(hi-lo)))
}

func (r *Runner) notifyError(ctx context.Context, agentName, msg string) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Notify(ctx, notify.EventCycleError, agentName+" cycle error", msg); err != nil {
		r.logger.Debug("notification failed", slog.Any("error", err))
	}
}

// sleepCtx waits for d or until the context ends; it reports whether the
// full wait completed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
