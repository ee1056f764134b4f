package domain

import "time"

// TokenClaim grants one agent exclusive, time-bounded rights to act on a
// token. Claims coordinate agents within a fleet cycle; they carry no
// financial authority.
type TokenClaim struct {
	Token     string
	AgentID   string
	AgentName string
	Reason    string
	ClaimedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the claim has lapsed at the given instant.
func (c TokenClaim) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
