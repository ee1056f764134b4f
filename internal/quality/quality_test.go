package quality

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/curvefleet/internal/domain"
)

func healthyToken(now time.Time) domain.TokenSummary {
	return domain.TokenSummary{
		Address:       "0xaaa",
		Price:         0.002,
		ReserveMon:    60,
		HolderCount:   120,
		Volume1h:      45,
		PriceChange1h: 8,
		CreatedAt:     now.Add(-2 * time.Hour),
	}
}

func TestHardGateRejections(t *testing.T) {
	now := time.Now()
	f := NewFilter(DefaultThresholds())

	cases := []struct {
		name   string
		mutate func(*domain.TokenSummary)
		reason string
	}{
		{"zero price", func(tok *domain.TokenSummary) { tok.Price = 0 }, "non-positive price"},
		{"thin reserve", func(tok *domain.TokenSummary) { tok.ReserveMon = 2 }, "below 5.0 minimum"},
		{"few holders", func(tok *domain.TokenSummary) { tok.HolderCount = 5 }, "5 holders below 30 minimum"},
		{"too young", func(tok *domain.TokenSummary) { tok.CreatedAt = now.Add(-time.Minute) }, "minimum"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tok := healthyToken(now)
			tc.mutate(&tok)
			res := f.Evaluate(tok, now)
			assert.False(t, res.Passed)
			assert.Zero(t, res.Score)
			assert.Contains(t, res.Reason, tc.reason)
		})
	}
}

func TestHolderFloorDominatesOtherMetrics(t *testing.T) {
	// Spec scenario: reserve=10 MON, holders=5, age=30m is rejected on the
	// holder floor regardless of any other metric.
	now := time.Now()
	f := NewFilter(DefaultThresholds())
	tok := domain.TokenSummary{
		Address:       "0xbbb",
		Price:         0.01,
		ReserveMon:    10,
		HolderCount:   5,
		Volume1h:      500,
		PriceChange1h: 50,
		CreatedAt:     now.Add(-30 * time.Minute),
	}
	res := f.Evaluate(tok, now)
	assert.False(t, res.Passed)
	assert.Contains(t, res.Reason, "holders below 30 minimum")
}

func TestHealthyTokenPasses(t *testing.T) {
	now := time.Now()
	f := NewFilter(DefaultThresholds())
	res := f.Evaluate(healthyToken(now), now)
	assert.True(t, res.Passed)
	assert.GreaterOrEqual(t, res.Score, 40.0)
	assert.LessOrEqual(t, res.Score, 100.0)
	assert.Empty(t, res.Reason)
}

func TestSoftRejectionCarriesScore(t *testing.T) {
	now := time.Now()
	f := NewFilter(Thresholds{
		MinReserveMon:   5,
		MinHolders:      30,
		MinAge:          10 * time.Minute,
		MinQualityScore: 95,
	})
	res := f.Evaluate(healthyToken(now), now)
	assert.False(t, res.Passed)
	assert.Greater(t, res.Score, 0.0, "soft rejections keep the score for observability")
	assert.Contains(t, res.Reason, "below 95 floor")
}
