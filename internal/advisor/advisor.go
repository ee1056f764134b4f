// Package advisor implements the LLM advisory contract and the deterministic
// fallback applied when the model is unavailable or returns malformed output.
package advisor

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/curvefleet/internal/domain"
)

// Fallback is the deterministic advisory policy: approve only when the raw
// signal score clears a high fixed bar, otherwise SKIP. It biases outages
// toward inaction.
type Fallback struct {
	scoreBar float64
}

// NewFallback returns a Fallback with the given approval bar.
func NewFallback(scoreBar float64) *Fallback {
	return &Fallback{scoreBar: scoreBar}
}

// Advise implements domain.Advisor. It never returns an error.
func (f *Fallback) Advise(_ context.Context, req domain.AdvisoryRequest) (domain.AdvisoryResponse, error) {
	if req.Signal.Score >= f.scoreBar {
		return domain.AdvisoryResponse{
			Action:     domain.AdviseBuy,
			Confidence: req.Signal.Score,
			Reasoning:  fmt.Sprintf("fallback: score %.0f clears %.0f bar", req.Signal.Score, f.scoreBar),
		}, nil
	}
	return domain.AdvisoryResponse{
		Action:     domain.AdviseSkip,
		Confidence: 100 - req.Signal.Score,
		Reasoning:  fmt.Sprintf("fallback: score %.0f below %.0f bar", req.Signal.Score, f.scoreBar),
	}, nil
}

var _ domain.Advisor = (*Fallback)(nil)

// validateResponse enforces the strict contract on model output.
func validateResponse(resp domain.AdvisoryResponse) error {
	switch resp.Action {
	case domain.AdviseBuy, domain.AdviseSkip, domain.AdviseSell:
	default:
		return fmt.Errorf("%w: action %q", domain.ErrAdvisorInvalid, resp.Action)
	}
	if resp.Confidence < 0 || resp.Confidence > 100 {
		return fmt.Errorf("%w: confidence %.1f out of range", domain.ErrAdvisorInvalid, resp.Confidence)
	}
	return nil
}
