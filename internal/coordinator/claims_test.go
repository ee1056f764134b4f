package coordinator

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRegistry(now *time.Time) *ClaimRegistry {
	r := NewClaimRegistry(quietLogger())
	r.now = func() time.Time { return *now }
	return r
}

func TestClaimExclusivity(t *testing.T) {
	now := time.Now()
	r := testRegistry(&now)

	assert.True(t, r.Claim("0xToK", "agent-a", "Alice", "scored 80", 0))
	assert.False(t, r.Claim("0xtok", "agent-b", "Bob", "scored 75", 0),
		"normalized address must collide")

	r.Release("0xTOK", "agent-a")
	assert.True(t, r.Claim("0xtok", "agent-b", "Bob", "scored 75", 0))
}

func TestReclaimExtendsWithoutDuplicate(t *testing.T) {
	now := time.Now()
	r := testRegistry(&now)

	require.True(t, r.Claim("0xtok", "agent-a", "Alice", "first", 0))
	first, ok := r.Holder("0xtok")
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	require.True(t, r.Claim("0xtok", "agent-a", "Alice", "extend", 0))
	second, ok := r.Holder("0xtok")
	require.True(t, ok)

	assert.Equal(t, first.ClaimedAt, second.ClaimedAt, "original claim time kept")
	assert.True(t, second.ExpiresAt.After(first.ExpiresAt), "expiry extended")
	assert.Len(t, r.List(), 1)
}

func TestExpiredClaimReclaimableByAnyone(t *testing.T) {
	now := time.Now()
	r := testRegistry(&now)

	require.True(t, r.Claim("0xtok", "agent-a", "Alice", "first", time.Minute))
	now = now.Add(2 * time.Minute)
	assert.True(t, r.Claim("0xtok", "agent-b", "Bob", "takeover", 0))
}

func TestTTLClampedToHardCap(t *testing.T) {
	now := time.Now()
	r := testRegistry(&now)

	require.True(t, r.Claim("0xtok", "agent-a", "Alice", "greedy", time.Hour))
	claim, ok := r.Holder("0xtok")
	require.True(t, ok)
	assert.Equal(t, now.Add(MaxClaimTTL), claim.ExpiresAt)
}

func TestReleaseByNonHolderIsNoOp(t *testing.T) {
	now := time.Now()
	r := testRegistry(&now)

	require.True(t, r.Claim("0xtok", "agent-a", "Alice", "first", 0))
	r.Release("0xtok", "agent-b")
	_, ok := r.Holder("0xtok")
	assert.True(t, ok, "claim survives a foreign release")

	r.Release("0xother", "agent-b") // unclaimed, also fine
}

func TestListSweepsExpired(t *testing.T) {
	now := time.Now()
	r := testRegistry(&now)

	require.True(t, r.Claim("0xa", "agent-a", "Alice", "", time.Minute))
	require.True(t, r.Claim("0xb", "agent-b", "Bob", "", 5*time.Minute))
	now = now.Add(2 * time.Minute)

	claims := r.List()
	require.Len(t, claims, 1)
	assert.Equal(t, "0xb", claims[0].Token)
}

func TestBlacklist(t *testing.T) {
	b := NewBlacklist()
	assert.False(t, b.Contains("0xTok"))
	b.Add("0xTok")
	assert.True(t, b.Contains("0xtok"))
	assert.Equal(t, 1, b.Len())
}

func TestDeadTokenRegistryExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	r := NewDeadTokenRegistry(quietLogger())
	r.now = func() time.Time { return now }

	require.NoError(t, r.MarkDead(ctx, "0xTok", "no follow-through", time.Minute))
	assert.True(t, r.IsDead(ctx, "0xtok"))

	now = now.Add(2 * time.Minute)
	assert.False(t, r.IsDead(ctx, "0xtok"))
}
