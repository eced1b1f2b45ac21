package alert

import (
	"context"
	"fmt"

	"github.com/veerdrishti/veerdrishti/internal/webhook"
	"github.com/veerdrishti/veerdrishti/internal/ws"
)

const EventAlertTriggered = "alert.triggered"

// Notifier delivers an alert to one channel.
type Notifier interface {
	Notify(ctx context.Context, a *Alert) error
}

type WebhookNotifier struct {
	sender *webhook.Sender
}

func NewWebhookNotifier(sender *webhook.Sender) *WebhookNotifier {
	return &WebhookNotifier{sender: sender}
}

func (n *WebhookNotifier) Notify(ctx context.Context, a *Alert) error {
	payload := webhook.Payload{
		Type:      EventAlertTriggered,
		Data:      a,
		Timestamp: a.TriggeredAt,
	}
	if err := n.sender.Send(ctx, payload); err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	return nil
}

// Broadcaster is implemented by ws.Hub.
type Broadcaster interface {
	Broadcast(eventType ws.EventType, data any)
}

type HubNotifier struct {
	hub Broadcaster
}

func NewHubNotifier(hub Broadcaster) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) Notify(_ context.Context, a *Alert) error {
	n.hub.Broadcast(ws.EventAlert, a)
	return nil
}
