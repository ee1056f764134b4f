package indicators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/curvefleet/internal/domain"
)

func TestRSIInsufficientData(t *testing.T) {
	_, ok := RSI([]float64{1, 2, 3}, 14)
	assert.False(t, ok)
}

func TestRSIAllGainsIs100(t *testing.T) {
	prices := make([]float64, 20)
	for i := range prices {
		prices[i] = 1 + float64(i)*0.1
	}
	rsi, ok := RSI(prices, 14)
	require.True(t, ok)
	assert.Equal(t, 100.0, rsi)
}

func TestRSIMixedSeriesInRange(t *testing.T) {
	prices := []float64{10, 11, 10.5, 11.2, 10.8, 11.5, 11.1, 12, 11.6, 12.3, 11.9, 12.5, 12.1, 12.8, 12.4, 13}
	rsi, ok := RSI(prices, 14)
	require.True(t, ok)
	assert.Greater(t, rsi, 0.0)
	assert.Less(t, rsi, 100.0)
	// Net-up series should lean above 50.
	assert.Greater(t, rsi, 50.0)
}

func TestSMA(t *testing.T) {
	sma, ok := SMA([]float64{1, 2, 3, 4, 5}, 5)
	require.True(t, ok)
	assert.InDelta(t, 3.0, sma, 1e-9)

	_, ok = SMA([]float64{1, 2}, 5)
	assert.False(t, ok)
}

func TestEMASeededWithFirstWindowSMA(t *testing.T) {
	// With exactly window samples, EMA equals the seed SMA.
	prices := []float64{2, 4, 6, 8, 10}
	ema, ok := EMA(prices, 5)
	require.True(t, ok)
	assert.InDelta(t, 6.0, ema, 1e-9)
}

func TestEMATracksLatestPrices(t *testing.T) {
	flat := []float64{10, 10, 10, 10, 10, 10, 10, 10}
	ema, ok := EMA(flat, 5)
	require.True(t, ok)
	assert.InDelta(t, 10.0, ema, 1e-9)

	rising := []float64{10, 10, 10, 10, 10, 20, 20, 20}
	emaUp, ok := EMA(rising, 5)
	require.True(t, ok)
	assert.Greater(t, emaUp, 10.0)
	assert.Less(t, emaUp, 20.0)
}

func TestVWAP(t *testing.T) {
	vwap, ok := VWAP([]float64{1, 2, 3}, []float64{1, 1, 2})
	require.True(t, ok)
	assert.InDelta(t, 2.25, vwap, 1e-9)

	_, ok = VWAP([]float64{1, 2}, []float64{0, 0})
	assert.False(t, ok, "zero total volume carries no weighting")
}

func TestClassifyBand(t *testing.T) {
	assert.Equal(t, CrossBullish, Classify(1.02, 1.0))
	assert.Equal(t, CrossBearish, Classify(0.98, 1.0))
	assert.Equal(t, CrossNeutral, Classify(1.005, 1.0))
	assert.Equal(t, CrossNeutral, Classify(0.995, 1.0))
}

func TestVolatility(t *testing.T) {
	_, ok := Volatility([]float64{1, 2})
	assert.False(t, ok)

	vol, ok := Volatility([]float64{10, 10, 10, 10})
	require.True(t, ok)
	assert.InDelta(t, 0.0, vol, 1e-9)

	volUp, ok := Volatility([]float64{10, 12, 9, 14, 8})
	require.True(t, ok)
	assert.Greater(t, volUp, 0.0)
}

func TestTrendOfVolume(t *testing.T) {
	_, ok := TrendOfVolume([]float64{1, 2, 3})
	assert.False(t, ok)

	trend, ok := TrendOfVolume([]float64{10, 10, 10, 20, 20, 20})
	require.True(t, ok)
	assert.Equal(t, VolumeIncreasing, trend)

	trend, ok = TrendOfVolume([]float64{20, 20, 20, 10, 10, 10})
	require.True(t, ok)
	assert.Equal(t, VolumeDecreasing, trend)

	trend, ok = TrendOfVolume([]float64{10, 10, 10, 11, 10, 11})
	require.True(t, ok)
	assert.Equal(t, VolumeStable, trend)
}

func TestComputeShortSeriesDegradesGracefully(t *testing.T) {
	now := time.Now()
	series := []domain.PricePoint{
		{Timestamp: now, Price: 1, Volume: 5},
		{Timestamp: now.Add(time.Minute), Price: 1.1, Volume: 6},
	}
	s := Compute(series)
	assert.False(t, s.HasRSI)
	assert.False(t, s.HasMAs)
	assert.Equal(t, CrossNeutral, s.Crossover)
	assert.True(t, s.HasVWAP)
}
