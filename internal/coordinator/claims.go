// Package coordinator holds the state shared between agents in a fleet:
// the token claim registry, the per-cycle blacklist, and the dead-token
// registry. Everything here is constructor-injected and mutex-guarded so
// tests run in isolation and the runner can move to parallel agents without
// rewriting callers.
package coordinator

import (
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/curvefleet/internal/domain"
)

const (
	// DefaultClaimTTL bounds how long an agent may sit on a token claim.
	DefaultClaimTTL = 5 * time.Minute
	// MaxClaimTTL is the hard cap; the registry clamps any longer request.
	MaxClaimTTL = 10 * time.Minute
)

// ClaimRegistry grants one agent exclusive, time-bounded rights to act on a
// token. Check-and-set happens under one lock so two agents racing for the
// same token cannot both win. Expired entries are swept lazily on every
// claim and list operation; there is no background timer.
type ClaimRegistry struct {
	mu     sync.Mutex
	claims map[string]domain.TokenClaim
	logger *slog.Logger
	now    func() time.Time
}

// NewClaimRegistry returns an empty registry.
func NewClaimRegistry(logger *slog.Logger) *ClaimRegistry {
	return &ClaimRegistry{
		claims: make(map[string]domain.TokenClaim),
		logger: logger.With(slog.String("component", "claim_registry")),
		now:    time.Now,
	}
}

// Claim attempts to take the token for the agent. It returns true when the
// claim is granted. Re-claiming by the current holder extends the expiry
// without creating a duplicate record. A request with ttl <= 0 uses the
// default; anything above the hard cap is clamped.
func (r *ClaimRegistry) Claim(token, agentID, agentName, reason string, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = DefaultClaimTTL
	}
	if ttl > MaxClaimTTL {
		ttl = MaxClaimTTL
	}
	key := domain.NormalizeToken(token)
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked(now)

	if existing, ok := r.claims[key]; ok && existing.AgentID != agentID {
		r.logger.Debug("claim denied",
			slog.String("token", key),
			slog.String("requested_by", agentName),
			slog.String("held_by", existing.AgentName),
		)
		return false
	}

	claim := domain.TokenClaim{
		Token:     key,
		AgentID:   agentID,
		AgentName: agentName,
		Reason:    reason,
		ClaimedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if existing, ok := r.claims[key]; ok {
		// Same agent extending: keep the original claim time.
		claim.ClaimedAt = existing.ClaimedAt
	}
	r.claims[key] = claim
	return true
}

// Release drops the agent's claim on the token. Releasing a token that is
// unclaimed or held by a different agent is a logged no-op, not an error.
func (r *ClaimRegistry) Release(token, agentID string) {
	key := domain.NormalizeToken(token)

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.claims[key]
	if !ok {
		r.logger.Debug("release of unclaimed token", slog.String("token", key))
		return
	}
	if existing.AgentID != agentID {
		r.logger.Debug("release denied, different claimant",
			slog.String("token", key),
			slog.String("held_by", existing.AgentName),
		)
		return
	}
	delete(r.claims, key)
}

// Holder returns the live claim for the token, if any.
func (r *ClaimRegistry) Holder(token string) (domain.TokenClaim, bool) {
	key := domain.NormalizeToken(token)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked(r.now())

	claim, ok := r.claims[key]
	return claim, ok
}

// List returns all live claims.
func (r *ClaimRegistry) List() []domain.TokenClaim {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked(r.now())

	out := make([]domain.TokenClaim, 0, len(r.claims))
	for _, c := range r.claims {
		out = append(out, c)
	}
	return out
}

func (r *ClaimRegistry) sweepLocked(now time.Time) {
	for key, c := range r.claims {
		if c.Expired(now) {
			delete(r.claims, key)
		}
	}
}
