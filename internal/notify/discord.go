package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// discordColor maps the event class to the embed's sidebar color.
func discordColor(e Event) int {
	switch e {
	case EventTradeExecuted:
		return 0x2ECC71 // green
	case EventPositionClosed:
		return 0x3498DB // blue
	case EventCycleError:
		return 0xE74C3C // red
	default:
		return 0x95A5A6 // grey
	}
}

// DiscordSender delivers fleet events via a Discord webhook.
type DiscordSender struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordSender creates a DiscordSender for the given webhook URL.
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts the notification to the webhook as an embed, colored by event
// class so trades, closes, and errors separate visually in the channel.
func (d *DiscordSender) Send(ctx context.Context, n Notification) error {
	payload := map[string]any{
		"embeds": []map[string]any{{
			"title":       n.Title,
			"description": n.Message,
			"color":       discordColor(n.Event),
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("discord: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord: send request: %w", err)
	}
	defer resp.Body.Close()

	// Discord returns 204 No Content on success.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("discord: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// Name returns the sender identifier.
func (d *DiscordSender) Name() string {
	return "discord"
}
