package lifecycle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/curvefleet/internal/advisor"
	"github.com/alanyoungcy/curvefleet/internal/config"
	"github.com/alanyoungcy/curvefleet/internal/coordinator"
	"github.com/alanyoungcy/curvefleet/internal/domain"
	"github.com/alanyoungcy/curvefleet/internal/learning"
	"github.com/alanyoungcy/curvefleet/internal/momentum"
	"github.com/alanyoungcy/curvefleet/internal/signal"
)

// ---------------------------------------------------------------------------
// fakes
// ---------------------------------------------------------------------------

type fakeSettlement struct {
	capital   map[int64]int64
	holdings  map[string]domain.Holding
	sellRatio float64 // MON units out per token unit sold
	simErr    error
	buyErr    error
	buyCount  int
}

func newFakeSettlement() *fakeSettlement {
	return &fakeSettlement{
		capital:   map[int64]int64{},
		holdings:  map[string]domain.Holding{},
		sellRatio: 1.0,
	}
}

func (s *fakeSettlement) Quote(_ context.Context, _ string, in int64, isBuy bool) (int64, error) {
	if isBuy {
		return in, nil
	}
	return int64(float64(in) * s.sellRatio), nil
}

func (s *fakeSettlement) Simulate(context.Context, int64, string, int64, int64, bool) error {
	return s.simErr
}

func (s *fakeSettlement) ExecuteBuy(_ context.Context, _ int64, _ string, in, _ int64, _ time.Time) (domain.Fill, error) {
	if s.buyErr != nil {
		return domain.Fill{}, s.buyErr
	}
	s.buyCount++
	return domain.Fill{AmountOutUnits: in, TxRef: "0xbuy"}, nil
}

func (s *fakeSettlement) ExecuteSell(_ context.Context, _ int64, _ string, in, _ int64, _ time.Time) (domain.Fill, error) {
	return domain.Fill{AmountOutUnits: int64(float64(in) * s.sellRatio), TxRef: "0xsell"}, nil
}

func (s *fakeSettlement) AgentBalance(_ context.Context, vault int64) (domain.AgentBalance, error) {
	return domain.AgentBalance{CapitalUnits: s.capital[vault]}, nil
}

func (s *fakeSettlement) AgentHolding(_ context.Context, vault int64, token string) (domain.Holding, error) {
	return s.holdings[domain.NormalizeToken(token)], nil
}

type memHoldings struct{ m map[string]domain.Holding }

func newMemHoldings() *memHoldings { return &memHoldings{m: map[string]domain.Holding{}} }

func hkey(agentID, token string) string { return agentID + "/" + domain.NormalizeToken(token) }

func (s *memHoldings) Upsert(_ context.Context, h domain.Holding) error {
	s.m[hkey(h.AgentID, h.Token)] = h
	return nil
}

func (s *memHoldings) Get(_ context.Context, agentID, token string) (domain.Holding, error) {
	h, ok := s.m[hkey(agentID, token)]
	if !ok {
		return domain.Holding{}, domain.ErrNotFound
	}
	return h, nil
}

func (s *memHoldings) ListOpen(_ context.Context, agentID string) ([]domain.Holding, error) {
	var out []domain.Holding
	for _, h := range s.m {
		if h.AgentID == agentID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *memHoldings) Delete(_ context.Context, agentID, token string) error {
	delete(s.m, hkey(agentID, token))
	return nil
}

type memTrades struct{ rows []domain.Trade }

func (s *memTrades) Insert(_ context.Context, t domain.Trade) (int64, error) {
	t.ID = int64(len(s.rows) + 1)
	s.rows = append(s.rows, t)
	return t.ID, nil
}

func (s *memTrades) ListRecent(_ context.Context, agentID string, limit int) ([]domain.Trade, error) {
	var out []domain.Trade
	for i := len(s.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if s.rows[i].AgentID == agentID {
			out = append(out, s.rows[i])
		}
	}
	return out, nil
}

func (s *memTrades) CountBuys(_ context.Context, token string, _ time.Time) (int64, error) {
	var n int64
	for _, t := range s.rows {
		if t.Type == domain.TradeBuy && t.Token == domain.NormalizeToken(token) {
			n++
		}
	}
	return n, nil
}

func (s *memTrades) ListBefore(context.Context, time.Time) ([]domain.Trade, error) { return nil, nil }

func (s *memTrades) DeleteBefore(context.Context, time.Time) (int64, error) { return 0, nil }

type memPnL struct{ rows []domain.PnLSnapshot }

func (s *memPnL) Insert(_ context.Context, snap domain.PnLSnapshot) error {
	s.rows = append(s.rows, snap)
	return nil
}

func (s *memPnL) ListRange(context.Context, string, domain.ListOpts) ([]domain.PnLSnapshot, error) {
	return nil, nil
}

type fakeProvider struct{ snaps map[string]domain.MarketSnapshot }

func (p *fakeProvider) ListRecentTokens(context.Context, int) []domain.TokenSummary { return nil }

func (p *fakeProvider) GetMarketSnapshot(_ context.Context, token string) (domain.MarketSnapshot, bool) {
	snap, ok := p.snaps[domain.NormalizeToken(token)]
	return snap, ok
}

func (p *fakeProvider) GetPriceSeries(context.Context, string, time.Duration) []domain.PricePoint {
	return nil
}

func (p *fakeProvider) GetHolders(context.Context, string) []domain.HolderBalance { return nil }

type errAdvisor struct{}

func (errAdvisor) Advise(context.Context, domain.AdvisoryRequest) (domain.AdvisoryResponse, error) {
	return domain.AdvisoryResponse{}, errors.New("model unavailable")
}

// ---------------------------------------------------------------------------
// harness
// ---------------------------------------------------------------------------

type harness struct {
	manager    *Manager
	settlement *fakeSettlement
	provider   *fakeProvider
	holdings   *memHoldings
	trades     *memTrades
	pnl        *memPnL
	claims     *coordinator.ClaimRegistry
	blacklist  *coordinator.Blacklist
	monitor    *momentum.Monitor
}

func newHarness(t *testing.T, primary domain.Advisor, fallbackBar float64) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine, err := signal.NewEngine(logger)
	require.NoError(t, err)

	h := &harness{
		settlement: newFakeSettlement(),
		provider:   &fakeProvider{snaps: map[string]domain.MarketSnapshot{}},
		holdings:   newMemHoldings(),
		trades:     &memTrades{},
		pnl:        &memPnL{},
		claims:     coordinator.NewClaimRegistry(logger),
		blacklist:  coordinator.NewBlacklist(),
		monitor:    momentum.NewMonitor(logger),
	}
	h.manager = NewManager(Deps{
		Logger:     logger,
		Settlement: h.settlement,
		Provider:   h.provider,
		Holdings:   h.holdings,
		Trades:     h.trades,
		PnL:        h.pnl,
		Engine:     engine,
		Advisor:    primary,
		Fallback:   advisor.NewFallback(fallbackBar),
		Claims:     h.claims,
		Dead:       coordinator.NewDeadTokenRegistry(logger),
		Monitor:    h.monitor,
		Learner:    learning.NewController(),
		Tuning:     config.DefaultTuning(),
		Settings: Settings{
			MinTradeUnits: 250_000,
			MaxCapitalPct: 20,
			ClaimTTL:      5 * time.Minute,
			SlippageBps:   200,
			TxDeadline:    2 * time.Minute,
		},
	})
	return h
}

func testAgent(id string, vault int64) domain.Agent {
	return domain.Agent{
		ID:           id,
		Kind:         domain.StrategyMomentumSniper,
		DisplayName:  "Blitz-" + id,
		VaultIndex:   vault,
		RiskProfile:  "balanced",
		MaxPositions: 3,
	}
}

// strongCandidate scores 67 for momentum_sniper in a sideways regime with no
// enrichment: base 35, +12 volume, +10 holders, +10 momentum.
func strongCandidate(now time.Time) signal.Input {
	return signal.Input{
		Token: domain.TokenSummary{
			Address:       "0xABCD",
			Symbol:        "PUMP",
			Name:          "Pumpkin",
			CreatedAt:     now.Add(-time.Hour),
			Price:         0.001,
			ReserveMon:    50,
			HolderCount:   350,
			Volume1h:      400,
			PriceChange1h: 10,
			CurveProgress: 45,
		},
		Age: time.Hour,
	}
}

func cycleInput(c ...signal.Input) CycleInput {
	return CycleInput{Candidates: c}
}

// ---------------------------------------------------------------------------
// pure exit logic
// ---------------------------------------------------------------------------

func TestResolveExitPriorityOrder(t *testing.T) {
	b := []timeBand{{after: 30 * time.Minute, minPnL: -12}}

	full, ok := resolveExit(85, time.Minute, 85, 35, 80, -20, 12, 2*time.Hour, b)
	require.True(t, ok)
	assert.True(t, full.full, "full target outranks partial")

	partial, ok := resolveExit(40, time.Minute, 40, 35, 80, -20, 12, 2*time.Hour, b)
	require.True(t, ok)
	assert.False(t, partial.full)

	stop, ok := resolveExit(-25, time.Minute, 0, 35, 80, -20, 12, 2*time.Hour, b)
	require.True(t, ok)
	assert.True(t, stop.full)
	assert.Contains(t, stop.reason, "stop loss")
}

func TestTrailingStopNeverFiresUnarmed(t *testing.T) {
	// Peak never exceeded 5%: a 10-point retreat must not trigger.
	_, ok := resolveExit(-6, time.Minute, 4.9, 35, 80, -20, 12, 2*time.Hour, nil)
	assert.False(t, ok)
}

func TestTrailingStopFiresExactlyPastThreshold(t *testing.T) {
	_, ok := resolveExit(-1.9, time.Minute, 10, 35, 80, -20, 12, 2*time.Hour, nil)
	assert.False(t, ok, "drop of 11.9 within 12 threshold")

	dec, ok := resolveExit(-2.1, time.Minute, 10, 35, 80, -20, 12, 2*time.Hour, nil)
	require.True(t, ok, "drop of 12.1 exceeds threshold")
	assert.Contains(t, dec.reason, "trailing stop")
}

func TestTimeBandTightens(t *testing.T) {
	b := []timeBand{
		{after: 30 * time.Minute, minPnL: -12},
		{after: 60 * time.Minute, minPnL: -5},
	}
	_, ok := resolveExit(-8, 45*time.Minute, 0, 35, 80, -20, 12, 2*time.Hour, b)
	assert.False(t, ok, "-8 allowed inside the 30m band")

	dec, ok := resolveExit(-8, 70*time.Minute, 0, 35, 80, -20, 12, 2*time.Hour, b)
	require.True(t, ok, "-8 violates the tightened 60m band")
	assert.True(t, dec.full)
}

func TestMaxHoldForcesExit(t *testing.T) {
	dec, ok := resolveExit(3, 3*time.Hour, 3, 35, 80, -20, 12, 2*time.Hour, nil)
	require.True(t, ok)
	assert.Contains(t, dec.reason, "max hold")
}

// ---------------------------------------------------------------------------
// sizing
// ---------------------------------------------------------------------------

func TestSizeEntryClamps(t *testing.T) {
	agent := testAgent("a1", 0)
	profile := domain.LearningProfile{ConfidenceThreshold: 65, SizeMultiplier: 1, MaxPositions: 3}

	// 100 MON capital, 20% cap = 20 MON.
	capital := int64(100 * domain.UnitsPerMon)

	perfect := sizeEntry(agent, 100, profile, domain.RegimeSideways, capital, 250_000, 20)
	assert.Equal(t, int64(20*domain.UnitsPerMon), perfect, "perfect score takes the full cap")

	atThreshold := sizeEntry(agent, 65, profile, domain.RegimeSideways, capital, 250_000, 20)
	assert.Equal(t, int64(10*domain.UnitsPerMon), atThreshold, "threshold score takes half the cap")

	tiny := sizeEntry(agent, 65, profile, domain.RegimeSideways, 600_000, 250_000, 20)
	assert.Equal(t, int64(250_000), tiny, "small capital clamps up to the minimum trade")

	broke := sizeEntry(agent, 65, profile, domain.RegimeSideways, 100_000, 250_000, 20)
	assert.Zero(t, broke, "capital below the minimum trade yields no entry")
}

func TestSizeEntryRegimeAndRiskMultipliers(t *testing.T) {
	profile := domain.LearningProfile{ConfidenceThreshold: 65, SizeMultiplier: 1, MaxPositions: 3}
	capital := int64(100 * domain.UnitsPerMon)

	balanced := testAgent("a1", 0)
	aggressive := testAgent("a2", 1)
	aggressive.RiskProfile = "aggressive"

	base := sizeEntry(balanced, 80, profile, domain.RegimeSideways, capital, 250_000, 20)
	bear := sizeEntry(balanced, 80, profile, domain.RegimeBear, capital, 250_000, 20)
	hot := sizeEntry(aggressive, 80, profile, domain.RegimeSideways, capital, 250_000, 20)

	assert.Less(t, bear, base, "bear regime shrinks entries")
	assert.Greater(t, hot, base, "aggressive risk profile grows entries")
}

// ---------------------------------------------------------------------------
// cycle flows
// ---------------------------------------------------------------------------

func TestCycleEntersPosition(t *testing.T) {
	h := newHarness(t, nil, 0) // fallback approves everything
	agent := testAgent("a1", 0)
	h.settlement.capital[0] = 100 * domain.UnitsPerMon

	now := time.Now()
	in := cycleInput(strongCandidate(now))
	in.Blacklist = h.blacklist

	sum, err := h.manager.RunCycle(context.Background(), agent, in)
	require.NoError(t, err)
	assert.Equal(t, "0xabcd", sum.EnteredToken)
	assert.Equal(t, 1, sum.OpenPositions)

	held, err := h.holdings.Get(context.Background(), "a1", "0xabcd")
	require.NoError(t, err)
	assert.Positive(t, held.AmountUnits)
	assert.Equal(t, held.CostUnits, held.AmountUnits, "1:1 fake fill")

	require.Len(t, h.trades.rows, 1)
	assert.Equal(t, domain.TradeBuy, h.trades.rows[0].Type)
	assert.NotEmpty(t, h.trades.rows[0].SignalJSON)

	assert.True(t, h.blacklist.Contains("0xabcd"))
	assert.True(t, h.monitor.Tracking("a1", "0xabcd"))
	require.Len(t, h.pnl.rows, 1)
	assert.Equal(t, 1, h.pnl.rows[0].OpenPositions)
}

func TestTwoAgentsOneBuy(t *testing.T) {
	h := newHarness(t, nil, 0)
	a := testAgent("a1", 0)
	b := testAgent("a2", 1)
	h.settlement.capital[0] = 100 * domain.UnitsPerMon
	h.settlement.capital[1] = 100 * domain.UnitsPerMon

	now := time.Now()
	in := cycleInput(strongCandidate(now))
	in.Blacklist = h.blacklist

	_, err := h.manager.RunCycle(context.Background(), a, in)
	require.NoError(t, err)
	_, err = h.manager.RunCycle(context.Background(), b, in)
	require.NoError(t, err)

	n, _ := h.trades.CountBuys(context.Background(), "0xabcd", time.Time{})
	assert.Equal(t, int64(1), n, "only one buy for the shared token")
	assert.Equal(t, 1, h.settlement.buyCount)
}

func TestClaimReleasedAfterEntry(t *testing.T) {
	h := newHarness(t, nil, 0)
	agent := testAgent("a1", 0)
	h.settlement.capital[0] = 100 * domain.UnitsPerMon

	sum, err := h.manager.RunCycle(context.Background(), agent, cycleInput(strongCandidate(time.Now())))
	require.NoError(t, err)
	require.Equal(t, "0xabcd", sum.EnteredToken)

	// The trade is on record; the claim must not linger until its TTL.
	_, held := h.claims.Holder("0xabcd")
	assert.False(t, held, "claim released after a completed entry")
}

func TestClaimHeldByOtherAgentSkips(t *testing.T) {
	h := newHarness(t, nil, 0)
	agent := testAgent("a1", 0)
	h.settlement.capital[0] = 100 * domain.UnitsPerMon

	require.True(t, h.claims.Claim("0xabcd", "rival", "Rival", "entry evaluation", time.Minute))

	in := cycleInput(strongCandidate(time.Now()))
	sum, err := h.manager.RunCycle(context.Background(), agent, in)
	require.NoError(t, err)
	assert.Empty(t, sum.EnteredToken)
	assert.Zero(t, h.settlement.buyCount)
}

func TestAdvisorFailureAppliesFallback(t *testing.T) {
	// Erroring primary, bar 0: fallback approves, entry proceeds.
	h := newHarness(t, errAdvisor{}, 0)
	agent := testAgent("a1", 0)
	h.settlement.capital[0] = 100 * domain.UnitsPerMon

	sum, err := h.manager.RunCycle(context.Background(), agent, cycleInput(strongCandidate(time.Now())))
	require.NoError(t, err)
	assert.NotEmpty(t, sum.EnteredToken)

	// Erroring primary, unreachable bar: fallback skips, no buy.
	h2 := newHarness(t, errAdvisor{}, 101)
	h2.settlement.capital[0] = 100 * domain.UnitsPerMon
	sum2, err := h2.manager.RunCycle(context.Background(), agent, cycleInput(strongCandidate(time.Now())))
	require.NoError(t, err)
	assert.Empty(t, sum2.EnteredToken)
	assert.Zero(t, h2.settlement.buyCount)
}

func TestSimulationFailureRecordsErrorTrade(t *testing.T) {
	h := newHarness(t, nil, 0)
	agent := testAgent("a1", 0)
	h.settlement.capital[0] = 100 * domain.UnitsPerMon
	h.settlement.simErr = errors.New("execution reverted")

	sum, err := h.manager.RunCycle(context.Background(), agent, cycleInput(strongCandidate(time.Now())))
	require.NoError(t, err)
	assert.Empty(t, sum.EnteredToken)

	require.NotEmpty(t, h.trades.rows)
	assert.Equal(t, domain.TradeError, h.trades.rows[0].Type)
	assert.Contains(t, h.trades.rows[0].Reason, "simulation")

	_, held := h.claims.Holder("0xabcd")
	assert.False(t, held, "claim released after abandoned attempt")
}

func TestPartialExitKeepsPnLConsistent(t *testing.T) {
	h := newHarness(t, nil, 101) // no entries, exits only
	agent := testAgent("a1", 0)
	h.settlement.capital[0] = 10 * domain.UnitsPerMon
	h.settlement.sellRatio = 1.4

	now := time.Now()
	holding := domain.Holding{
		AgentID:     "a1",
		Token:       "0xheld",
		Symbol:      "HODL",
		AmountUnits: 1_000_000,
		CostUnits:   1_000_000,
		EntryPrice:  1.0,
		OpenedAt:    now.Add(-5 * time.Minute),
	}
	require.NoError(t, h.holdings.Upsert(context.Background(), holding))
	h.settlement.holdings["0xheld"] = holding
	// 40% unrealized: above the 35% partial target, below the 80% full one.
	h.provider.snaps["0xheld"] = domain.MarketSnapshot{Price: 1.4, HolderCount: 60}

	sum, err := h.manager.RunCycle(context.Background(), agent, cycleInput())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.ExitsExecuted)
	assert.Equal(t, 1, sum.OpenPositions, "partial exit keeps the position open")

	after, err := h.holdings.Get(context.Background(), "a1", "0xheld")
	require.NoError(t, err)
	assert.Equal(t, int64(500_000), after.AmountUnits)
	assert.Equal(t, int64(500_000), after.CostUnits, "cost basis reduced proportionally")
	assert.InDelta(t, 40.0, after.PnLPct(1.4), 1e-9, "remaining PnL%% unchanged by the partial")

	require.Len(t, h.trades.rows, 1)
	sell := h.trades.rows[0]
	assert.Equal(t, domain.TradeSell, sell.Type)
	require.NotNil(t, sell.RealizedPnLUnits)
	assert.Equal(t, int64(200_000), *sell.RealizedPnLUnits)
}

func TestDustPositionClosesFullyOnPartialTarget(t *testing.T) {
	h := newHarness(t, nil, 101)
	agent := testAgent("a1", 0)
	h.settlement.capital[0] = 10 * domain.UnitsPerMon
	h.settlement.sellRatio = 1.4

	now := time.Now()
	holding := domain.Holding{
		AgentID:     "a1",
		Token:       "0xdust",
		Symbol:      "DUST",
		AmountUnits: 1,
		CostUnits:   1,
		EntryPrice:  1.0,
		OpenedAt:    now.Add(-5 * time.Minute),
	}
	require.NoError(t, h.holdings.Upsert(context.Background(), holding))
	h.settlement.holdings["0xdust"] = holding
	// 40% unrealized hits the partial target, but half of one unit rounds
	// to zero, so the whole position goes instead.
	h.provider.snaps["0xdust"] = domain.MarketSnapshot{Price: 1.4, HolderCount: 60}

	sum, err := h.manager.RunCycle(context.Background(), agent, cycleInput())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.ExitsExecuted)
	assert.Zero(t, sum.OpenPositions)

	_, err = h.holdings.Get(context.Background(), "a1", "0xdust")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStopLossClosesPosition(t *testing.T) {
	h := newHarness(t, nil, 101)
	agent := testAgent("a1", 0)
	h.settlement.capital[0] = 10 * domain.UnitsPerMon
	h.settlement.sellRatio = 0.7

	now := time.Now()
	holding := domain.Holding{
		AgentID:     "a1",
		Token:       "0xheld",
		Symbol:      "DUMP",
		AmountUnits: 1_000_000,
		CostUnits:   1_000_000,
		EntryPrice:  1.0,
		OpenedAt:    now.Add(-5 * time.Minute),
	}
	require.NoError(t, h.holdings.Upsert(context.Background(), holding))
	h.settlement.holdings["0xheld"] = holding
	// -30%: through the momentum sniper's -20 stop.
	h.provider.snaps["0xheld"] = domain.MarketSnapshot{Price: 0.7, HolderCount: 60}

	sum, err := h.manager.RunCycle(context.Background(), agent, cycleInput())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.ExitsExecuted)
	assert.Zero(t, sum.OpenPositions)

	_, err = h.holdings.Get(context.Background(), "a1", "0xheld")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.False(t, h.monitor.Tracking("a1", "0xheld"))
}

func TestReconcileSettlementWins(t *testing.T) {
	h := newHarness(t, nil, 101)
	agent := testAgent("a1", 0)
	h.settlement.capital[0] = 10 * domain.UnitsPerMon

	// Persisted holding the vault no longer carries.
	stale := domain.Holding{AgentID: "a1", Token: "0xgone", AmountUnits: 500_000, CostUnits: 500_000}
	require.NoError(t, h.holdings.Upsert(context.Background(), stale))

	// Persisted holding whose amount drifted from the vault's.
	drifted := domain.Holding{AgentID: "a1", Token: "0xdrift", AmountUnits: 500_000, CostUnits: 500_000, OpenedAt: time.Now()}
	require.NoError(t, h.holdings.Upsert(context.Background(), drifted))
	h.settlement.holdings["0xdrift"] = domain.Holding{AmountUnits: 400_000, CostUnits: 500_000}
	h.provider.snaps["0xdrift"] = domain.MarketSnapshot{Price: 1.25, HolderCount: 10}

	_, err := h.manager.RunCycle(context.Background(), agent, cycleInput())
	require.NoError(t, err)

	_, err = h.holdings.Get(context.Background(), "a1", "0xgone")
	assert.ErrorIs(t, err, domain.ErrNotFound, "vault-empty holding deleted")

	got, err := h.holdings.Get(context.Background(), "a1", "0xdrift")
	require.NoError(t, err)
	assert.Equal(t, int64(400_000), got.AmountUnits, "settlement amount wins")
}

func TestPositionCapBlocksEntries(t *testing.T) {
	h := newHarness(t, nil, 0)
	agent := testAgent("a1", 0)
	agent.MaxPositions = 1
	h.settlement.capital[0] = 100 * domain.UnitsPerMon

	now := time.Now()
	open := domain.Holding{AgentID: "a1", Token: "0xheld", AmountUnits: 100_000, CostUnits: 100_000, OpenedAt: now}
	require.NoError(t, h.holdings.Upsert(context.Background(), open))
	h.settlement.holdings["0xheld"] = open
	h.provider.snaps["0xheld"] = domain.MarketSnapshot{Price: 1.0, HolderCount: 10}

	sum, err := h.manager.RunCycle(context.Background(), agent, cycleInput(strongCandidate(now)))
	require.NoError(t, err)
	assert.Empty(t, sum.EnteredToken)
	assert.Contains(t, sum.Action, "position cap")
}
