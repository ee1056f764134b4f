package coordinator

import (
	"sync"

	"github.com/alanyoungcy/curvefleet/internal/domain"
)

// Blacklist is the set of tokens already bought during the current fleet
// cycle. One instance is created per cycle and discarded with it, so no
// expiry logic is needed.
type Blacklist struct {
	mu     sync.RWMutex
	tokens map[string]struct{}
}

// NewBlacklist returns an empty per-cycle blacklist.
func NewBlacklist() *Blacklist {
	return &Blacklist{tokens: make(map[string]struct{})}
}

// Add marks the token as taken for the rest of the cycle.
func (b *Blacklist) Add(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens[domain.NormalizeToken(token)] = struct{}{}
}

// Contains reports whether the token was already bought this cycle.
func (b *Blacklist) Contains(token string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.tokens[domain.NormalizeToken(token)]
	return ok
}

// Len returns the number of blacklisted tokens.
func (b *Blacklist) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.tokens)
}
