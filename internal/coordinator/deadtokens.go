package coordinator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/curvefleet/internal/domain"
)

// deadEntry records why a token was excluded and until when.
type deadEntry struct {
	reason    string
	expiresAt time.Time
}

// DeadTokenRegistry is the in-memory implementation of
// domain.DeadTokenRegistry. Entries are swept lazily on reads, mirroring the
// claim registry. A redis-backed implementation exists for multi-process
// deployments (internal/cache/redis).
type DeadTokenRegistry struct {
	mu     sync.Mutex
	tokens map[string]deadEntry
	logger *slog.Logger
	now    func() time.Time
}

// NewDeadTokenRegistry returns an empty registry.
func NewDeadTokenRegistry(logger *slog.Logger) *DeadTokenRegistry {
	return &DeadTokenRegistry{
		tokens: make(map[string]deadEntry),
		logger: logger.With(slog.String("component", "dead_tokens")),
		now:    time.Now,
	}
}

// MarkDead excludes the token for ttl. Marking an already-dead token
// refreshes its expiry and reason.
func (r *DeadTokenRegistry) MarkDead(_ context.Context, token, reason string, ttl time.Duration) error {
	key := domain.NormalizeToken(token)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[key] = deadEntry{reason: reason, expiresAt: r.now().Add(ttl)}
	r.logger.Info("token marked dead",
		slog.String("token", key),
		slog.String("reason", reason),
		slog.Duration("ttl", ttl),
	)
	return nil
}

// IsDead reports whether the token is currently excluded.
func (r *DeadTokenRegistry) IsDead(_ context.Context, token string) bool {
	key := domain.NormalizeToken(token)
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.tokens[key]
	if !ok {
		return false
	}
	if r.now().After(entry.expiresAt) {
		delete(r.tokens, key)
		return false
	}
	return true
}

var _ domain.DeadTokenRegistry = (*DeadTokenRegistry)(nil)
