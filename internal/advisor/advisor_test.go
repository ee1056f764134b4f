package advisor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/curvefleet/internal/domain"
)

func reqWithScore(score float64) domain.AdvisoryRequest {
	return domain.AdvisoryRequest{
		AgentName: "Blitz",
		Strategy:  domain.StrategyMomentumSniper,
		Signal:    domain.MarketSignal{Score: score},
	}
}

func TestFallbackApprovesAboveBar(t *testing.T) {
	f := NewFallback(85)
	resp, err := f.Advise(context.Background(), reqWithScore(92))
	require.NoError(t, err)
	assert.Equal(t, domain.AdviseBuy, resp.Action)
}

func TestFallbackRejectsBelowBar(t *testing.T) {
	f := NewFallback(85)
	resp, err := f.Advise(context.Background(), reqWithScore(70))
	require.NoError(t, err)
	assert.Equal(t, domain.AdviseSkip, resp.Action)
}

func TestFallbackExactBarApproves(t *testing.T) {
	f := NewFallback(85)
	resp, err := f.Advise(context.Background(), reqWithScore(85))
	require.NoError(t, err)
	assert.Equal(t, domain.AdviseBuy, resp.Action)
}

func TestValidateResponse(t *testing.T) {
	ok := domain.AdvisoryResponse{Action: domain.AdviseBuy, Confidence: 80}
	assert.NoError(t, validateResponse(ok))

	badAction := domain.AdvisoryResponse{Action: "HODL", Confidence: 80}
	assert.ErrorIs(t, validateResponse(badAction), domain.ErrAdvisorInvalid)

	badConfidence := domain.AdvisoryResponse{Action: domain.AdviseSkip, Confidence: 140}
	assert.ErrorIs(t, validateResponse(badConfidence), domain.ErrAdvisorInvalid)
}
