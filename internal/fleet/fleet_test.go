package fleet

import (
	"context"
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
	"github.com/alanyoungcy/curvefleet/internal/lifecycle"
	"github.com/alanyoungcy/curvefleet/internal/momentum"
	"github.com/alanyoungcy/curvefleet/internal/quality"
	"github.com/alanyoungcy/curvefleet/internal/regime"
	"github.com/alanyoungcy/curvefleet/internal/signal"
)

// ---------------------------------------------------------------------------
// fakes
// ---------------------------------------------------------------------------

type memAgents struct{ list []domain.Agent }

func (s *memAgents) Upsert(_ context.Context, a domain.Agent) error {
	s.list = append(s.list, a)
	return nil
}

func (s *memAgents) GetByID(_ context.Context, id string) (domain.Agent, error) {
	for _, a := range s.list {
		if a.ID == id {
			return a, nil
		}
	}
	return domain.Agent{}, domain.ErrNotFound
}

func (s *memAgents) List(context.Context) ([]domain.Agent, error) { return s.list, nil }

type fakeProvider struct {
	tokens []domain.TokenSummary
	snaps  map[string]domain.MarketSnapshot
}

func (p *fakeProvider) ListRecentTokens(context.Context, int) []domain.TokenSummary {
	return p.tokens
}

func (p *fakeProvider) GetMarketSnapshot(_ context.Context, token string) (domain.MarketSnapshot, bool) {
	snap, ok := p.snaps[domain.NormalizeToken(token)]
	return snap, ok
}

func (p *fakeProvider) GetPriceSeries(context.Context, string, time.Duration) []domain.PricePoint {
	return nil
}

func (p *fakeProvider) GetHolders(context.Context, string) []domain.HolderBalance { return nil }

type fakeSettlement struct {
	capital  map[int64]int64
	balErr   map[int64]error
	buyCount int
}

func (s *fakeSettlement) Quote(_ context.Context, _ string, in int64, _ bool) (int64, error) {
	return in, nil
}

func (s *fakeSettlement) Simulate(context.Context, int64, string, int64, int64, bool) error {
	return nil
}

func (s *fakeSettlement) ExecuteBuy(_ context.Context, _ int64, _ string, in, _ int64, _ time.Time) (domain.Fill, error) {
	s.buyCount++
	return domain.Fill{AmountOutUnits: in, TxRef: "0xbuy"}, nil
}

func (s *fakeSettlement) ExecuteSell(_ context.Context, _ int64, _ string, in, _ int64, _ time.Time) (domain.Fill, error) {
	return domain.Fill{AmountOutUnits: in, TxRef: "0xsell"}, nil
}

func (s *fakeSettlement) AgentBalance(_ context.Context, vault int64) (domain.AgentBalance, error) {
	if err := s.balErr[vault]; err != nil {
		return domain.AgentBalance{}, err
	}
	return domain.AgentBalance{CapitalUnits: s.capital[vault]}, nil
}

func (s *fakeSettlement) AgentHolding(context.Context, int64, string) (domain.Holding, error) {
	return domain.Holding{}, nil
}

type memHoldings struct{ m map[string]domain.Holding }

func (s *memHoldings) Upsert(_ context.Context, h domain.Holding) error {
	s.m[h.AgentID+"/"+h.Token] = h
	return nil
}

func (s *memHoldings) Get(_ context.Context, agentID, token string) (domain.Holding, error) {
	h, ok := s.m[agentID+"/"+domain.NormalizeToken(token)]
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
	delete(s.m, agentID+"/"+domain.NormalizeToken(token))
	return nil
}

type memTrades struct{ rows []domain.Trade }

func (s *memTrades) Insert(_ context.Context, t domain.Trade) (int64, error) {
	s.rows = append(s.rows, t)
	return int64(len(s.rows)), nil
}

func (s *memTrades) ListRecent(context.Context, string, int) ([]domain.Trade, error) {
	return nil, nil
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

type memPnL struct{}

func (memPnL) Insert(context.Context, domain.PnLSnapshot) error { return nil }

func (memPnL) ListRange(context.Context, string, domain.ListOpts) ([]domain.PnLSnapshot, error) {
	return nil, nil
}

// ---------------------------------------------------------------------------
// harness
// ---------------------------------------------------------------------------

func strongToken(now time.Time) domain.TokenSummary {
	return domain.TokenSummary{
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
	}
}

func newTestRunner(t *testing.T, agents []domain.Agent, provider *fakeProvider, settlement *fakeSettlement) *Runner {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine, err := signal.NewEngine(logger)
	require.NoError(t, err)

	manager := lifecycle.NewManager(lifecycle.Deps{
		Logger:     logger,
		Settlement: settlement,
		Provider:   provider,
		Holdings:   &memHoldings{m: map[string]domain.Holding{}},
		Trades:     &memTrades{},
		PnL:        memPnL{},
		Engine:     engine,
		Fallback:   advisor.NewFallback(0),
		Claims:     coordinator.NewClaimRegistry(logger),
		Dead:       coordinator.NewDeadTokenRegistry(logger),
		Monitor:    momentum.NewMonitor(logger),
		Learner:    learning.NewController(),
		Tuning:     config.DefaultTuning(),
		Settings: lifecycle.Settings{
			MinTradeUnits: 250_000,
			MaxCapitalPct: 20,
			ClaimTTL:      5 * time.Minute,
			SlippageBps:   200,
			TxDeadline:    2 * time.Minute,
		},
	})

	store := &memAgents{list: agents}
	return NewRunner(logger, store, provider, quality.NewFilter(quality.DefaultThresholds()),
		regime.NewDetector(), manager, nil, Settings{
			ScanLimit:  50,
			EnrichTopK: 10,
		})
}

func fleetAgent(id string, vault int64) domain.Agent {
	return domain.Agent{
		ID:           id,
		Kind:         domain.StrategyMomentumSniper,
		DisplayName:  "Agent-" + id,
		VaultIndex:   vault,
		RiskProfile:  "balanced",
		MaxPositions: 3,
	}
}

// ---------------------------------------------------------------------------
// tests
// ---------------------------------------------------------------------------

func TestQualityGateKeepsTokenFromScoring(t *testing.T) {
	now := time.Now()
	// Reserve 10 MON, 5 holders, 30 minutes old: rejected on the holder
	// floor before any strategy ever sees it.
	bad := domain.TokenSummary{
		Address:     "0xbad",
		Symbol:      "RUG",
		CreatedAt:   now.Add(-30 * time.Minute),
		Price:       0.01,
		ReserveMon:  10,
		HolderCount: 5,
	}
	provider := &fakeProvider{tokens: []domain.TokenSummary{bad}}
	r := newTestRunner(t, nil, provider, &fakeSettlement{capital: map[int64]int64{}})

	in := r.buildCycleInput(context.Background())
	assert.Empty(t, in.Candidates)
}

func TestFleetCycleTwoAgentsOneBuy(t *testing.T) {
	now := time.Now()
	provider := &fakeProvider{
		tokens: []domain.TokenSummary{strongToken(now)},
		snaps:  map[string]domain.MarketSnapshot{},
	}
	settlement := &fakeSettlement{capital: map[int64]int64{
		0: 100 * domain.UnitsPerMon,
		1: 100 * domain.UnitsPerMon,
	}}
	agents := []domain.Agent{fleetAgent("a1", 0), fleetAgent("a2", 1)}
	r := newTestRunner(t, agents, provider, settlement)

	results, err := r.RunFleetCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, res := range results {
		assert.Empty(t, res.Error)
	}
	assert.Equal(t, 1, settlement.buyCount, "shared token bought exactly once")
}

func TestFailingAgentIsolated(t *testing.T) {
	now := time.Now()
	provider := &fakeProvider{
		tokens: []domain.TokenSummary{strongToken(now)},
		snaps:  map[string]domain.MarketSnapshot{},
	}
	settlement := &fakeSettlement{
		capital: map[int64]int64{1: 100 * domain.UnitsPerMon},
		balErr:  map[int64]error{0: context.DeadlineExceeded},
	}
	agents := []domain.Agent{fleetAgent("a1", 0), fleetAgent("a2", 1)}
	r := newTestRunner(t, agents, provider, settlement)

	results, err := r.RunFleetCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "error", results[0].Status)
	assert.NotEmpty(t, results[0].Error)
	assert.Empty(t, results[1].Error, "second agent unaffected")
	assert.Equal(t, 1, settlement.buyCount)
}

func TestRunSingleAgentCycle(t *testing.T) {
	now := time.Now()
	provider := &fakeProvider{
		tokens: []domain.TokenSummary{strongToken(now)},
		snaps:  map[string]domain.MarketSnapshot{},
	}
	settlement := &fakeSettlement{capital: map[int64]int64{0: 100 * domain.UnitsPerMon}}
	r := newTestRunner(t, []domain.Agent{fleetAgent("a1", 0)}, provider, settlement)

	res, err := r.RunSingleAgentCycle(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, "a1", res.AgentID)
	assert.Empty(t, res.Error)

	_, err = r.RunSingleAgentCycle(context.Background(), "missing")
	assert.Error(t, err)
}
