// Package quality implements the pre-scoring hard gate. The gate is
// strategy-independent: a token that fails here is never handed to the
// signal engine in that cycle.
package quality

import (
	"fmt"
	"time"

	"github.com/alanyoungcy/curvefleet/internal/domain"
)

// Thresholds holds the gate's tunable minimums.
type Thresholds struct {
	MinReserveMon   float64
	MinHolders      int
	MinAge          time.Duration
	MinQualityScore float64
}

// DefaultThresholds returns the production gate settings.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinReserveMon:   5,
		MinHolders:      30,
		MinAge:          10 * time.Minute,
		MinQualityScore: 40,
	}
}

// Result is the gate's verdict. Score is populated even on soft rejections
// so the number is observable downstream.
type Result struct {
	Passed bool
	Score  float64
	Reason string
}

// Filter evaluates hard gates and the 0-100 quality score.
type Filter struct {
	thresholds Thresholds
}

// NewFilter creates a Filter with the given thresholds.
func NewFilter(t Thresholds) *Filter {
	return &Filter{thresholds: t}
}

// Evaluate applies the hard gates, then scores the token. Hard-gate
// rejections carry score 0; tokens scoring below the configured floor are
// rejected with the numeric score attached.
func (f *Filter) Evaluate(token domain.TokenSummary, now time.Time) Result {
	t := f.thresholds

	if token.Price <= 0 {
		return Result{Reason: "non-positive price"}
	}
	if token.ReserveMon < t.MinReserveMon {
		return Result{Reason: fmt.Sprintf("reserve %.1f MON below %.1f minimum", token.ReserveMon, t.MinReserveMon)}
	}
	if token.HolderCount < t.MinHolders {
		return Result{Reason: fmt.Sprintf("%d holders below %d minimum", token.HolderCount, t.MinHolders)}
	}
	if age := token.Age(now); age < t.MinAge {
		return Result{Reason: fmt.Sprintf("age %s below %s minimum", age.Round(time.Second), t.MinAge)}
	}

	score := f.score(token)
	if score < t.MinQualityScore {
		return Result{
			Score:  score,
			Reason: fmt.Sprintf("quality score %.0f below %.0f floor", score, t.MinQualityScore),
		}
	}
	return Result{Passed: true, Score: score}
}

// score rates a gate-passing token 0-100 from price action, holder base,
// liquidity depth, and volume-to-liquidity tiers.
func (f *Filter) score(token domain.TokenSummary) float64 {
	var score float64

	// Price action: reward steady appreciation, punish collapse.
	switch {
	case token.PriceChange1h > 20:
		score += 15
	case token.PriceChange1h > 5:
		score += 25
	case token.PriceChange1h > -5:
		score += 20
	case token.PriceChange1h > -20:
		score += 10
	}

	// Holder base.
	switch {
	case token.HolderCount >= 200:
		score += 25
	case token.HolderCount >= 100:
		score += 20
	case token.HolderCount >= 50:
		score += 15
	default:
		score += 10
	}

	// Liquidity depth.
	switch {
	case token.ReserveMon >= 100:
		score += 25
	case token.ReserveMon >= 40:
		score += 20
	case token.ReserveMon >= 15:
		score += 15
	default:
		score += 5
	}

	// Volume relative to liquidity: turnover signals genuine interest,
	// but extreme ratios on thin reserves look like wash trading.
	if token.ReserveMon > 0 {
		ratio := token.Volume1h / token.ReserveMon
		switch {
		case ratio > 5:
			score += 10
		case ratio > 0.5:
			score += 25
		case ratio > 0.1:
			score += 15
		}
	}

	if score > 100 {
		score = 100
	}
	return score
}
