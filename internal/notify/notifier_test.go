package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	name string
	err  error
	sent []Notification
}

func (f *fakeSender) Send(_ context.Context, n Notification) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}

func (f *fakeSender) Name() string { return f.name }

func newTestNotifier(events []string, senders ...Sender) *Notifier {
	return NewNotifier(senders, events, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNotifyFiltersUnsubscribedEvents(t *testing.T) {
	s := &fakeSender{name: "fake"}
	n := newTestNotifier([]string{"trade_executed", "cycle_error"}, s)
	ctx := context.Background()

	require.NoError(t, n.Notify(ctx, EventTradeExecuted, "Blitz bought PUMP", "details"))
	require.NoError(t, n.Notify(ctx, EventPositionClosed, "should be filtered", "details"))

	require.Len(t, s.sent, 1)
	assert.Equal(t, EventTradeExecuted, s.sent[0].Event)
	assert.Equal(t, "Blitz bought PUMP", s.sent[0].Title)
}

func TestNotifyEmptySubscriptionAllowsEverything(t *testing.T) {
	s := &fakeSender{name: "fake"}
	n := newTestNotifier(nil, s)

	require.NoError(t, n.Notify(context.Background(), EventPositionClosed, "title", "msg"))
	assert.Len(t, s.sent, 1)
}

func TestDispatchContinuesPastFailingSender(t *testing.T) {
	bad := &fakeSender{name: "telegram", err: errors.New("rate limited")}
	good := &fakeSender{name: "discord"}
	n := newTestNotifier(nil, bad, good)

	err := n.Notify(context.Background(), EventCycleError, "Ahab cycle failed", "msg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram")
	assert.Len(t, good.sent, 1)
}

func TestNotifierWithNoSendersIsNoop(t *testing.T) {
	n := newTestNotifier([]string{"trade_executed"})
	assert.NoError(t, n.Notify(context.Background(), EventTradeExecuted, "t", "m"))
}

func TestDiscordColorSeparatesEventClasses(t *testing.T) {
	colors := map[int]bool{
		discordColor(EventTradeExecuted):  true,
		discordColor(EventPositionClosed): true,
		discordColor(EventCycleError):     true,
	}
	assert.Len(t, colors, 3, "each event class gets its own color")
}
