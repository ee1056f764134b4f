package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/curvefleet/internal/config"
	"github.com/alanyoungcy/curvefleet/internal/domain"
	"github.com/alanyoungcy/curvefleet/internal/momentum"
	"github.com/alanyoungcy/curvefleet/internal/notify"
)

// partialSellFraction is the share of a position sold on a partial exit.
const partialSellFraction = 0.5

// exitDecision is one resolved exit trigger.
type exitDecision struct {
	full   bool
	reason string
}

// evaluateExit checks one holding against the exit triggers in fixed
// priority order and executes the first that fires. It reports whether the
// position was fully closed and whether any sell happened.
func (m *Manager) evaluateExit(ctx context.Context, agent domain.Agent, h *domain.Holding, now time.Time) (closed, sold bool) {
	snap, ok := m.provider.GetMarketSnapshot(ctx, h.Token)
	if !ok || snap.Price <= 0 {
		m.logger.Debug("no snapshot, exit evaluation skipped",
			slog.String("agent", agent.DisplayName), slog.String("token", h.Token))
		return false, false
	}
	h.CurrentPrice = snap.Price
	pnl := h.PnLPct(snap.Price)
	held := now.Sub(h.OpenedAt)

	ts := m.trailingFor(agent.ID, h.Token)
	if pnl > ts.PeakPnLPct {
		ts.PeakPnLPct = pnl
		ts.PeakAt = now
	}

	tun, ok := m.tuning[agent.Kind.String()]
	if !ok {
		// Validated config guarantees a row; treat absence as hold.
		m.logger.Error("missing tuning row", slog.String("strategy", agent.Kind.String()))
		return false, false
	}

	decision, ok := resolveExit(pnl, held, ts.PeakPnLPct, tun.PartialTargetPct, tun.FullTargetPct,
		tun.StopLossPct, tun.TrailingStopPct, tun.MaxHold.Duration, bands(tun))
	if !ok {
		// Checkpoint matrices and the continuous classifier get a say only
		// when no threshold trigger fired.
		if rec, due := m.monitor.Evaluate(agent.ID, h.Token, snap, now); due && rec.Verdict != momentum.Hold {
			decision = exitDecision{full: true, reason: rec.Reason}
			ok = true
			if rec.MarkDead {
				if err := m.dead.MarkDead(ctx, h.Token, rec.Reason, rec.DeadTTL); err != nil {
					m.logger.Warn("dead token mark failed", slog.Any("error", err))
				}
			}
		} else if pnl < 0 && m.monitor.Classify(agent.ID, h.Token, snap.HolderCount, now) == momentum.TrendDead {
			decision = exitDecision{full: true, reason: "holder growth dead, cutting underwater position"}
			ok = true
		}
	}
	if !ok {
		return false, false
	}

	sellUnits := h.AmountUnits
	if !decision.full {
		sellUnits = int64(float64(h.AmountUnits) * partialSellFraction)
		// A half that rounds to zero means the position is dust; close it
		// out instead of holding an unsellable remainder.
		if sellUnits == 0 {
			sellUnits = h.AmountUnits
		}
	}
	return m.executeSell(ctx, agent, h, sellUnits, decision.reason, now)
}

type timeBand struct {
	after  time.Duration
	minPnL float64
}

func bands(tun config.StrategyTuning) []timeBand {
	out := make([]timeBand, len(tun.TimeBands))
	for i, b := range tun.TimeBands {
		out[i] = timeBand{after: b.After.Duration, minPnL: b.MinPnLPct}
	}
	return out
}

// resolveExit applies the exit priority order: full and partial profit
// targets, hard stop, trailing stop once armed, tightening time bands, max
// hold. Pure so the order is directly testable.
func resolveExit(pnl float64, held time.Duration, peak float64,
	partialTarget, fullTarget, stopLoss, trailingStop float64,
	maxHold time.Duration, tbands []timeBand) (exitDecision, bool) {

	switch {
	case pnl >= fullTarget:
		return exitDecision{full: true, reason: fmt.Sprintf("full profit target %.0f%% reached at %.1f%%", fullTarget, pnl)}, true
	case pnl >= partialTarget:
		return exitDecision{full: false, reason: fmt.Sprintf("partial profit target %.0f%% reached at %.1f%%", partialTarget, pnl)}, true
	case pnl <= stopLoss:
		return exitDecision{full: true, reason: fmt.Sprintf("stop loss %.0f%% hit at %.1f%%", stopLoss, pnl)}, true
	case peak > trailingArmPct && peak-pnl > trailingStop:
		return exitDecision{full: true, reason: fmt.Sprintf("trailing stop: %.1f%% off peak %.1f%%", peak-pnl, peak)}, true
	}

	for _, b := range tbands {
		if held > b.after && pnl < b.minPnL {
			return exitDecision{full: true, reason: fmt.Sprintf("held %s with pnl %.1f%% below %.0f%% band", held.Round(time.Minute), pnl, b.minPnL)}, true
		}
	}

	if held > maxHold {
		return exitDecision{full: true, reason: fmt.Sprintf("max hold %s exceeded", maxHold)}, true
	}
	return exitDecision{}, false
}

// executeSell quotes, simulates, and submits a sell, then updates the
// holding's amount and cost basis proportionally to the fraction sold.
func (m *Manager) executeSell(ctx context.Context, agent domain.Agent, h *domain.Holding, sellUnits int64, reason string, now time.Time) (closed, sold bool) {
	if sellUnits <= 0 {
		return false, false
	}

	quoted, err := m.settlement.Quote(ctx, h.Token, sellUnits, false)
	if err != nil {
		m.recordError(ctx, agent, h.Token, h.Symbol, "sell quote failed: "+err.Error())
		return false, false
	}
	minOut := applySlippage(quoted, m.settings.SlippageBps)

	if err := m.settlement.Simulate(ctx, agent.VaultIndex, h.Token, sellUnits, minOut, false); err != nil {
		m.recordError(ctx, agent, h.Token, h.Symbol, "sell simulation reverted: "+err.Error())
		return false, false
	}

	fill, err := m.settlement.ExecuteSell(ctx, agent.VaultIndex, h.Token, sellUnits, minOut, now.Add(m.settings.TxDeadline))
	if err != nil {
		m.recordError(ctx, agent, h.Token, h.Symbol, "sell execution failed: "+err.Error())
		return false, false
	}

	released := h.ReduceFor(sellUnits)
	realized := fill.AmountOutUnits - released
	trade := domain.Trade{
		AgentID:          agent.ID,
		Token:            domain.NormalizeToken(h.Token),
		Symbol:           h.Symbol,
		Type:             domain.TradeSell,
		AmountInUnits:    sellUnits,
		AmountOutUnits:   fill.AmountOutUnits,
		RealizedPnLUnits: &realized,
		Reason:           reason,
		TxRef:            fill.TxRef,
		CreatedAt:        now,
	}
	if _, err := m.trades.Insert(ctx, trade); err != nil {
		m.logger.Warn("sell trade insert failed", slog.Any("error", err))
	}

	pnlMon := float64(realized) / domain.UnitsPerMon
	if h.AmountUnits == 0 {
		if err := m.holdings.Delete(ctx, agent.ID, h.Token); err != nil {
			m.logger.Warn("closed holding delete failed", slog.Any("error", err))
		}
		m.forgetPosition(agent.ID, h.Token)
		m.logger.Info("position closed",
			slog.String("agent", agent.DisplayName),
			slog.String("token", h.Token),
			slog.String("reason", reason),
			slog.Float64("realized_mon", pnlMon))
		m.notify(ctx, notify.EventPositionClosed, agent.DisplayName+" closed "+h.Symbol,
			fmt.Sprintf("%s (%.2f MON realized)", reason, pnlMon))
		return true, true
	}

	h.UpdatedAt = now
	if err := m.holdings.Upsert(ctx, *h); err != nil {
		m.logger.Warn("partial holding upsert failed", slog.Any("error", err))
	}
	m.logger.Info("partial exit",
		slog.String("agent", agent.DisplayName),
		slog.String("token", h.Token),
		slog.String("reason", reason),
		slog.Float64("realized_mon", pnlMon))
	m.notify(ctx, notify.EventTradeExecuted, agent.DisplayName+" trimmed "+h.Symbol,
		fmt.Sprintf("%s (%.2f MON realized)", reason, pnlMon))
	return false, true
}

// applySlippage reduces a quoted amount by the configured basis points.
func applySlippage(quoted int64, bps int) int64 {
	return quoted * int64(10000-bps) / 10000
}
