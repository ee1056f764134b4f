// Package notify delivers fleet trade and error events to operator chat
// channels. Delivery is failure-soft: a channel outage degrades to a log
// line and never blocks the trading cycle that raised the event.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Event classifies a notification. The set is closed: the lifecycle manager
// and fleet runner emit these constants, and operator config filters on
// their wire names.
type Event string

const (
	// EventTradeExecuted fires on every buy and on partial sells.
	EventTradeExecuted Event = "trade_executed"
	// EventPositionClosed fires when a position is fully exited.
	EventPositionClosed Event = "position_closed"
	// EventCycleError fires when an agent's cycle fails outright.
	EventCycleError Event = "cycle_error"
)

// Notification is one fleet event bound for the operator channels.
type Notification struct {
	Event   Event
	Title   string
	Message string
}

// Sender delivers a notification over one channel.
type Sender interface {
	Send(ctx context.Context, n Notification) error
	// Name identifies the channel in logs and combined errors.
	Name() string
}

// Notifier fans fleet events out to the configured senders, filtered by the
// operator's event subscription.
type Notifier struct {
	senders []Sender
	allowed map[Event]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to the given senders. The events
// slice holds the wire names the operator subscribed to; an empty slice
// subscribes to everything.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[Event]bool, len(events))
	for _, e := range events {
		allowed[Event(strings.TrimSpace(e))] = true
	}
	return &Notifier{
		senders: senders,
		allowed: allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify delivers the event to every sender if the operator subscribed to
// its class.
func (n *Notifier) Notify(ctx context.Context, event Event, title, message string) error {
	if len(n.allowed) > 0 && !n.allowed[event] {
		n.logger.DebugContext(ctx, "event filtered out",
			slog.String("event", string(event)),
		)
		return nil
	}
	return n.dispatch(ctx, Notification{Event: event, Title: title, Message: message})
}

// dispatch sends to every sender. Per-sender failures are collected into one
// combined error so a dead channel never starves the others.
func (n *Notifier) dispatch(ctx context.Context, note Notification) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, note); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("event", string(note.Event)),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", note.Title),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
