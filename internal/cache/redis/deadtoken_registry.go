package redis

import (
	"context"
	"time"

	"github.com/alanyoungcy/curvefleet/internal/domain"
)

// DeadTokenRegistry implements domain.DeadTokenRegistry. An entry's value is
// the reason the monitor flagged the token; the TTL bounds how long the fleet
// stays out of it.
//
// Key schema:
//
//	dead:{token} - reason string
type DeadTokenRegistry struct {
	client *Client
}

// NewDeadTokenRegistry creates a DeadTokenRegistry backed by the given Client.
func NewDeadTokenRegistry(c *Client) *DeadTokenRegistry {
	return &DeadTokenRegistry{client: c}
}

func deadKey(token string) string { return "dead:" + domain.NormalizeToken(token) }

// MarkDead flags the token for the given TTL. Re-marking an already flagged
// token refreshes the TTL and replaces the reason.
func (r *DeadTokenRegistry) MarkDead(ctx context.Context, token, reason string, ttl time.Duration) error {
	return r.client.SetString(ctx, deadKey(token), reason, ttl)
}

// IsDead reports whether the token is currently flagged. Transport errors
// report false so a degraded registry never blocks the scoring path.
func (r *DeadTokenRegistry) IsDead(ctx context.Context, token string) bool {
	ok, err := r.client.Exists(ctx, deadKey(token))
	return err == nil && ok
}

var _ domain.DeadTokenRegistry = (*DeadTokenRegistry)(nil)
