package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/curvefleet/internal/domain"
	"github.com/alanyoungcy/curvefleet/internal/momentum"
	"github.com/alanyoungcy/curvefleet/internal/notify"
)

// regimeSizeMultiplier scales entry size with the market regime.
var regimeSizeMultiplier = map[domain.MarketRegime]float64{
	domain.RegimeBull:     1.2,
	domain.RegimeSideways: 1.0,
	domain.RegimeBear:     0.7,
}

// scanEntries ranks the cycle's candidates for the agent's strategy and takes
// at most one through claim, advisory, sizing, and execution. It returns the
// entered token (empty if none) and a human-readable outcome with the same
// shape for action and no-action alike.
func (m *Manager) scanEntries(ctx context.Context, agent domain.Agent, in CycleInput, profile domain.LearningProfile, capitalUnits int64, openCount int, now time.Time) (string, string) {
	if len(in.Candidates) == 0 {
		return "", "no candidates passed the quality gate"
	}
	if capitalUnits < m.settings.MinTradeUnits {
		return "", fmt.Sprintf("insufficient capital (%.2f MON)", float64(capitalUnits)/domain.UnitsPerMon)
	}

	signals := m.engine.Rank(agent.Kind, in.Candidates, now)
	attempts := 0
	for _, sig := range signals {
		if sig.Score < profile.ConfidenceThreshold {
			// Ranked best-first: everything after is also below threshold.
			return "", fmt.Sprintf("best signal %.0f below threshold %.0f", sig.Score, profile.ConfidenceThreshold)
		}
		if attempts >= maxEntryAttempts {
			return "", "entry attempts exhausted"
		}

		if in.Blacklist != nil && in.Blacklist.Contains(sig.Token) {
			continue
		}
		if m.dead.IsDead(ctx, sig.Token) {
			continue
		}
		if _, err := m.holdings.Get(ctx, agent.ID, sig.Token); err == nil {
			continue // already holding
		} else if !errors.Is(err, domain.ErrNotFound) {
			m.logger.Warn("holding lookup failed", slog.Any("error", err))
		}

		if !m.claims.Claim(sig.Token, agent.ID, agent.DisplayName, "entry evaluation", m.settings.ClaimTTL) {
			m.logger.Info("skip, another agent has this",
				slog.String("agent", agent.DisplayName),
				slog.String("token", sig.Token))
			continue
		}
		attempts++

		resp := m.advise(ctx, agent, sig, openCount, in)
		if resp.Action != domain.AdviseBuy {
			m.claims.Release(sig.Token, agent.ID)
			m.logger.Info("advisory declined entry",
				slog.String("agent", agent.DisplayName),
				slog.String("token", sig.Token),
				slog.String("action", string(resp.Action)),
				slog.String("reasoning", resp.Reasoning))
			continue
		}

		sizeUnits := sizeEntry(agent, sig.Score, profile, in.Regime.Regime, capitalUnits,
			m.settings.MinTradeUnits, m.settings.MaxCapitalPct)
		if sizeUnits == 0 {
			m.claims.Release(sig.Token, agent.ID)
			return "", "insufficient capital for minimum trade"
		}

		token, ok := m.executeBuy(ctx, agent, sig, sizeUnits, in, now)
		// The claim only guards the evaluation and submission window; the
		// trade is on record now, so release rather than let the TTL lapse.
		m.claims.Release(sig.Token, agent.ID)
		if ok {
			return token, "entered " + sig.Symbol
		}
	}
	return "", "no viable entry this cycle"
}

// advise consults the primary advisor and falls back to the deterministic
// policy on any failure. Fallback is policy, not an error path that blocks.
func (m *Manager) advise(ctx context.Context, agent domain.Agent, sig domain.MarketSignal, openCount int, in CycleInput) domain.AdvisoryResponse {
	var token domain.TokenSummary
	for _, c := range in.Candidates {
		if domain.NormalizeToken(c.Token.Address) == sig.Token {
			token = c.Token
			break
		}
	}
	req := domain.AdvisoryRequest{
		AgentName:    agent.DisplayName,
		Strategy:     agent.Kind,
		Personality:  agent.Personality,
		Token:        token,
		Signal:       sig,
		OpenHoldings: openCount,
		MaxPositions: agent.MaxPositions,
	}
	if recent, err := m.trades.ListRecent(ctx, agent.ID, 10); err == nil {
		req.RecentTrades = recent
	}

	adv := m.advisor
	if adv == nil {
		adv = m.fallback
	}
	resp, err := adv.Advise(ctx, req)
	if err != nil {
		m.logger.Warn("advisory failed, applying fallback",
			slog.String("agent", agent.DisplayName),
			slog.String("token", sig.Token),
			slog.Any("error", err))
		resp, _ = m.fallback.Advise(ctx, req)
	}
	return resp
}

// sizeEntry computes the buy amount: the capital cap scaled by signal
// strength relative to the decision threshold, the regime multiplier, the
// agent's risk multiplier, and the learning size tier, clamped to the minimum
// trade size and available capital. Returns 0 when capital cannot cover the
// minimum.
func sizeEntry(agent domain.Agent, score float64, profile domain.LearningProfile, regime domain.MarketRegime, capitalUnits, minTradeUnits int64, maxCapitalPct float64) int64 {
	capUnits := int64(float64(capitalUnits) * maxCapitalPct / 100)

	// Normalize score against the threshold: 0.5 at the threshold, 1.0 at a
	// perfect score.
	norm := 1.0
	if profile.ConfidenceThreshold < 100 {
		norm = 0.5 + 0.5*(score-profile.ConfidenceThreshold)/(100-profile.ConfidenceThreshold)
	}
	if norm > 1 {
		norm = 1
	}
	if norm < 0.5 {
		norm = 0.5
	}

	amount := int64(float64(capUnits) * norm * regimeSizeMultiplier[regime] * agent.RiskMultiplier() * profile.SizeMultiplier)
	if amount > capUnits {
		amount = capUnits
	}
	if amount < minTradeUnits {
		amount = minTradeUnits
	}
	if amount > capitalUnits {
		return 0
	}
	return amount
}

// executeBuy quotes, simulates, and submits the buy, then records the
// holding, the audit trade, the cycle blacklist entry, and the momentum
// entry snapshot.
func (m *Manager) executeBuy(ctx context.Context, agent domain.Agent, sig domain.MarketSignal, sizeUnits int64, in CycleInput, now time.Time) (string, bool) {
	quoted, err := m.settlement.Quote(ctx, sig.Token, sizeUnits, true)
	if err != nil {
		m.recordError(ctx, agent, sig.Token, sig.Symbol, "buy quote failed: "+err.Error())
		return "", false
	}
	minOut := applySlippage(quoted, m.settings.SlippageBps)

	if err := m.settlement.Simulate(ctx, agent.VaultIndex, sig.Token, sizeUnits, minOut, true); err != nil {
		m.recordError(ctx, agent, sig.Token, sig.Symbol, "buy simulation reverted: "+err.Error())
		return "", false
	}

	fill, err := m.settlement.ExecuteBuy(ctx, agent.VaultIndex, sig.Token, sizeUnits, minOut, now.Add(m.settings.TxDeadline))
	if err != nil {
		m.recordError(ctx, agent, sig.Token, sig.Symbol, "buy execution failed: "+err.Error())
		return "", false
	}

	price := sig.Metrics["price"]
	h := domain.Holding{
		AgentID:      agent.ID,
		Token:        sig.Token,
		Symbol:       sig.Symbol,
		AmountUnits:  fill.AmountOutUnits,
		CostUnits:    sizeUnits,
		EntryPrice:   price,
		CurrentPrice: price,
		OpenedAt:     now,
		UpdatedAt:    now,
	}
	if err := m.holdings.Upsert(ctx, h); err != nil {
		m.logger.Error("holding upsert failed after buy", slog.Any("error", err))
	}

	signalJSON, _ := json.Marshal(sig)
	trade := domain.Trade{
		AgentID:        agent.ID,
		Token:          sig.Token,
		Symbol:         sig.Symbol,
		Type:           domain.TradeBuy,
		AmountInUnits:  sizeUnits,
		AmountOutUnits: fill.AmountOutUnits,
		Reason:         firstReason(sig),
		SignalJSON:     string(signalJSON),
		TxRef:          fill.TxRef,
		CreatedAt:      now,
	}
	if _, err := m.trades.Insert(ctx, trade); err != nil {
		m.logger.Warn("buy trade insert failed", slog.Any("error", err))
	}

	if in.Blacklist != nil {
		in.Blacklist.Add(sig.Token)
	}
	m.monitor.Track(agent.ID, sig.Token, momentum.EntrySnapshot{
		Time:          now,
		Price:         price,
		HolderCount:   int(sig.Metrics["holder_count"]),
		Volume1h:      sig.Metrics["volume_1h"],
		CurveProgress: sig.Metrics["curve_progress"],
	}, now)

	monIn := float64(sizeUnits) / domain.UnitsPerMon
	m.logger.Info("entered position",
		slog.String("agent", agent.DisplayName),
		slog.String("token", sig.Token),
		slog.String("symbol", sig.Symbol),
		slog.Float64("score", sig.Score),
		slog.Float64("size_mon", monIn))
	m.notify(ctx, notify.EventTradeExecuted, agent.DisplayName+" bought "+sig.Symbol,
		fmt.Sprintf("score %.0f, %.2f MON in", sig.Score, monIn))
	return sig.Token, true
}

// firstReason returns the signal's top reason for the audit record.
func firstReason(sig domain.MarketSignal) string {
	if len(sig.Reasons) > 0 {
		return sig.Reasons[0]
	}
	return "signal score " + fmt.Sprintf("%.0f", sig.Score)
}
