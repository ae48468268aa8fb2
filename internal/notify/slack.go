package notify

import (
	"context"
	"log/slog"

	"github.com/slack-go/slack"
)

// Alerter forwards unexpected server errors to an external channel.
// Implementations must never propagate their own failures.
type Alerter interface {
	Alert(ctx context.Context, message string)
}

type SlackAlerter struct {
	webhookURL string
}

// NewSlackAlerter returns nil when no webhook is configured; a nil
// *SlackAlerter is safe to call.
func NewSlackAlerter(webhookURL string) *SlackAlerter {
	if webhookURL == "" {
		return nil
	}
	return &SlackAlerter{webhookURL: webhookURL}
}

func (a *SlackAlerter) Alert(ctx context.Context, message string) {
	if a == nil || a.webhookURL == "" {
		return
	}

	msg := &slack.WebhookMessage{
		Attachments: []slack.Attachment{{
			Color: "#e01d5a",
			Text:  ":rotating_light: " + message,
		}},
	}

	if err := slack.PostWebhookContext(ctx, a.webhookURL, msg); err != nil {
		slog.Error("slack alert failed", "error", err)
	}
}
