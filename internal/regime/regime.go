// Package regime classifies the fleet-wide market mood from a batch of
// recently observed tokens. One reading is computed per fleet cycle and
// biases every strategy's scoring.
package regime

import (
	"fmt"
	"time"

	"github.com/alanyoungcy/curvefleet/internal/domain"
)

const (
	// minBatch is the minimum number of qualifying tokens for a reading;
	// below it the detector returns sideways with low confidence instead
	// of guessing.
	minBatch = 5

	decisionMargin = 15.0
)

// Detector accumulates bull/bear point totals from fixed thresholds over a
// token batch. Stateless; safe for concurrent use.
type Detector struct{}

// NewDetector returns a Detector.
func NewDetector() *Detector {
	return &Detector{}
}

// Detect classifies the batch. Tokens with a non-positive price are skipped
// as unqualifying. It never fails: insufficient data yields sideways with
// confidence 20 and an explicit reason.
func (d *Detector) Detect(batch []domain.TokenSummary, now time.Time) domain.RegimeReading {
	qualified := batch[:0:0]
	for _, t := range batch {
		if t.Price > 0 {
			qualified = append(qualified, t)
		}
	}

	if len(qualified) < minBatch {
		return domain.RegimeReading{
			Regime:     domain.RegimeSideways,
			Confidence: 20,
			Reasons:    []string{fmt.Sprintf("insufficient data: %d qualifying tokens, need %d", len(qualified), minBatch)},
		}
	}

	var sum1h, sum24h, sumVol float64
	var positive int
	oldest := now
	for _, t := range qualified {
		sum1h += t.PriceChange1h
		sum24h += t.PriceChange24h
		sumVol += t.Volume1h
		if t.PriceChange1h > 0 {
			positive++
		}
		if t.CreatedAt.Before(oldest) {
			oldest = t.CreatedAt
		}
	}
	n := float64(len(qualified))
	r := domain.RegimeReading{
		AvgChange1h:  sum1h / n,
		AvgChange24h: sum24h / n,
		Breadth:      float64(positive) / n * 100,
		AvgVolume:    sumVol / n,
	}
	if span := now.Sub(oldest).Hours(); span > 0 {
		r.CreationRate = n / span
	}

	var bull, bear float64
	addReason := func(pts float64, side string, format string, args ...any) {
		r.Reasons = append(r.Reasons, fmt.Sprintf("%s +%.0f: ", side, pts)+fmt.Sprintf(format, args...))
	}

	switch {
	case r.AvgChange1h > 5:
		bull += 30
		addReason(30, "bull", "avg 1h change %.1f%% > 5%%", r.AvgChange1h)
	case r.AvgChange1h < -5:
		bear += 30
		addReason(30, "bear", "avg 1h change %.1f%% < -5%%", r.AvgChange1h)
	}

	switch {
	case r.Breadth > 65:
		bull += 25
		addReason(25, "bull", "breadth %.0f%% > 65%%", r.Breadth)
	case r.Breadth < 35:
		bear += 25
		addReason(25, "bear", "breadth %.0f%% < 35%%", r.Breadth)
	}

	switch {
	case r.AvgChange24h > 10:
		bull += 20
		addReason(20, "bull", "avg 24h change %.1f%% > 10%%", r.AvgChange24h)
	case r.AvgChange24h < -10:
		bear += 20
		addReason(20, "bear", "avg 24h change %.1f%% < -10%%", r.AvgChange24h)
	}

	switch {
	case r.AvgVolume > 500:
		bull += 15
		addReason(15, "bull", "avg 1h volume %.0f MON > 500", r.AvgVolume)
	case r.AvgVolume < 50:
		bear += 15
		addReason(15, "bear", "avg 1h volume %.0f MON < 50", r.AvgVolume)
	}

	if r.CreationRate > 10 {
		bull += 10
		addReason(10, "bull", "creation rate %.1f tokens/h > 10", r.CreationRate)
	}

	diff := bull - bear
	switch {
	case diff > decisionMargin:
		r.Regime = domain.RegimeBull
	case -diff > decisionMargin:
		r.Regime = domain.RegimeBear
	default:
		r.Regime = domain.RegimeSideways
	}
	r.Confidence = clamp(50+abs(diff), 30, 90)
	return r
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
