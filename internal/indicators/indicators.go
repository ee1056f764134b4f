// Package indicators computes deterministic technical transforms over a
// token's price/volume series. Every function reports ok=false when the
// series is shorter than its required window; callers must treat that as
// "no adjustment", never as zero.
package indicators

import (
	"math"

	"github.com/alanyoungcy/curvefleet/internal/domain"
)

const (
	rsiPeriod   = 14
	shortWindow = 5
	longWindow  = 20
)

// Crossover classifies the short MA relative to the long MA. The 1% band
// keeps near-equal values from flapping between bullish and bearish.
type Crossover string

const (
	CrossBullish Crossover = "bullish"
	CrossBearish Crossover = "bearish"
	CrossNeutral Crossover = "neutral"
)

// VolumeTrend classifies recent volume against the preceding window.
type VolumeTrend string

const (
	VolumeIncreasing VolumeTrend = "increasing"
	VolumeDecreasing VolumeTrend = "decreasing"
	VolumeStable     VolumeTrend = "stable"
)

// Summary bundles every indicator computed from one series. Each Has* flag
// reports whether the corresponding value met its data requirement.
type Summary struct {
	RSI           float64
	HasRSI        bool
	SMAShort      float64
	SMALong       float64
	EMAShort      float64
	EMALong       float64
	HasMAs        bool
	VWAP          float64
	HasVWAP       bool
	Crossover     Crossover
	Volatility    float64
	HasVolatility bool
	VolumeTrend   VolumeTrend
	HasVolume     bool
}

// Compute derives the full indicator summary from a price series ordered
// oldest first.
func Compute(series []domain.PricePoint) Summary {
	prices := make([]float64, len(series))
	volumes := make([]float64, len(series))
	for i, p := range series {
		prices[i] = p.Price
		volumes[i] = p.Volume
	}

	s := Summary{Crossover: CrossNeutral, VolumeTrend: VolumeStable}

	s.RSI, s.HasRSI = RSI(prices, rsiPeriod)
	if emaS, emaL, ok := emaPair(prices); ok {
		s.EMAShort, s.EMALong = emaS, emaL
		s.SMAShort, _ = SMA(prices, shortWindow)
		s.SMALong, _ = SMA(prices, longWindow)
		s.HasMAs = true
		s.Crossover = Classify(emaS, emaL)
	}
	s.VWAP, s.HasVWAP = VWAP(prices, volumes)
	s.Volatility, s.HasVolatility = Volatility(prices)
	s.VolumeTrend, s.HasVolume = TrendOfVolume(volumes)
	return s
}

// RSI computes Wilder's relative strength index over the trailing period.
// When average loss is zero the series only gained, so RSI is 100.
func RSI(prices []float64, period int) (float64, bool) {
	if len(prices) < period+1 {
		return 0, false
	}
	var gain, loss float64
	start := len(prices) - period
	for i := start; i < len(prices); i++ {
		delta := prices[i] - prices[i-1]
		if delta > 0 {
			gain += delta
		} else {
			loss -= delta
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)
	if avgLoss == 0 {
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}

// SMA returns the simple moving average of the trailing window.
func SMA(prices []float64, window int) (float64, bool) {
	if window <= 0 || len(prices) < window {
		return 0, false
	}
	var sum float64
	for _, p := range prices[len(prices)-window:] {
		sum += p
	}
	return sum / float64(window), true
}

// EMA returns the exponential moving average over the whole series, seeded
// with the SMA of the first window.
func EMA(prices []float64, window int) (float64, bool) {
	if window <= 0 || len(prices) < window {
		return 0, false
	}
	seed, _ := SMA(prices[:window], window)
	k := 2.0 / (float64(window) + 1)
	ema := seed
	for _, p := range prices[window:] {
		ema = p*k + ema*(1-k)
	}
	return ema, true
}

func emaPair(prices []float64) (short, long float64, ok bool) {
	short, okS := EMA(prices, shortWindow)
	long, okL := EMA(prices, longWindow)
	return short, long, okS && okL
}

// VWAP returns the volume-weighted average price of the series. A series
// with zero total volume carries no weighting information.
func VWAP(prices, volumes []float64) (float64, bool) {
	if len(prices) == 0 || len(prices) != len(volumes) {
		return 0, false
	}
	var pv, v float64
	for i := range prices {
		pv += prices[i] * volumes[i]
		v += volumes[i]
	}
	if v == 0 {
		return 0, false
	}
	return pv / v, true
}

// Classify compares the short MA to the long MA with a 1% band.
func Classify(short, long float64) Crossover {
	switch {
	case short > long*1.01:
		return CrossBullish
	case short < long*0.99:
		return CrossBearish
	default:
		return CrossNeutral
	}
}

// Volatility returns the sample standard deviation of simple returns.
func Volatility(prices []float64) (float64, bool) {
	if len(prices) < 3 {
		return 0, false
	}
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}
		returns = append(returns, (prices[i]-prices[i-1])/prices[i-1])
	}
	if len(returns) < 2 {
		return 0, false
	}
	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	var ss float64
	for _, r := range returns {
		d := r - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(returns)-1)), true
}

// TrendOfVolume compares the mean of the last 3 samples to the prior 3 with
// a ±20% band for "stable".
func TrendOfVolume(volumes []float64) (VolumeTrend, bool) {
	if len(volumes) < 6 {
		return VolumeStable, false
	}
	recent := mean(volumes[len(volumes)-3:])
	prior := mean(volumes[len(volumes)-6 : len(volumes)-3])
	if prior == 0 {
		if recent > 0 {
			return VolumeIncreasing, true
		}
		return VolumeStable, true
	}
	ratio := recent / prior
	switch {
	case ratio > 1.2:
		return VolumeIncreasing, true
	case ratio < 0.8:
		return VolumeDecreasing, true
	default:
		return VolumeStable, true
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
