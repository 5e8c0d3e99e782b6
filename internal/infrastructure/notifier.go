package infrastructure

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/sglre6355/webhook-relay/internal/domain"
)

// WebhookNotifier posts usage notices to an operator-owned Discord webhook.
// Notices carry the affected webhook ID only, never its token.
type WebhookNotifier struct {
	session *discordgo.Session
	target  domain.WebhookRef
}

// NewWebhookNotifier builds a notifier that reports to targetURL.
func NewWebhookNotifier(session *discordgo.Session, targetURL string) (*WebhookNotifier, error) {
	if session == nil {
		return nil, fmt.Errorf("discord session cannot be nil")
	}

	target, err := domain.ParseWebhookURL(targetURL)
	if err != nil {
		return nil, fmt.Errorf("notification webhook: %w", err)
	}

	return &WebhookNotifier{session: session, target: target}, nil
}

// TargetID returns the ID of the webhook notices are sent to.
func (n *WebhookNotifier) TargetID() string {
	return n.target.ID
}

// NotifyDeleted reports that ref was deleted through the relay.
func (n *WebhookNotifier) NotifyDeleted(ctx context.Context, ref domain.WebhookRef) error {
	return n.post(ctx, fmt.Sprintf("A webhook was deleted: %s", ref.ID))
}

// NotifyUsed reports that messages were sent through ref.
func (n *WebhookNotifier) NotifyUsed(ctx context.Context, ref domain.WebhookRef) error {
	return n.post(ctx, fmt.Sprintf("Someone used the webhook sender. Webhook ID: %s", ref.ID))
}

func (n *WebhookNotifier) post(ctx context.Context, content string) error {
	params := &discordgo.WebhookParams{Content: content}
	if _, err := requestSession(n.session).WebhookExecute(n.target.ID, n.target.Token, false, params, requestOptions(ctx)...); err != nil {
		return fmt.Errorf("failed to send notification: %w", redactURL(err))
	}
	return nil
}
