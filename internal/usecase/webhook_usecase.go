package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/sglre6355/webhook-relay/internal/domain"
)

// ErrWebhookUnavailable reports a webhook Discord refused or could not be reached for.
var ErrWebhookUnavailable = errors.New("webhook not found or inaccessible")

// WebhookClient performs the raw webhook calls against Discord.
type WebhookClient interface {
	Webhook(ctx context.Context, ref domain.WebhookRef) (domain.WebhookInfo, error)
	Execute(ctx context.Context, ref domain.WebhookRef, msg domain.Message) error
	Edit(ctx context.Context, ref domain.WebhookRef, name, avatar string) error
	Delete(ctx context.Context, ref domain.WebhookRef) error
}

// Notifier reports webhook usage to an operator-configured destination.
type Notifier interface {
	NotifyDeleted(ctx context.Context, ref domain.WebhookRef) error
	NotifyUsed(ctx context.Context, ref domain.WebhookRef) error
}

// NotificationErrorHandler is invoked when a notification cannot be delivered.
type NotificationErrorHandler func(domain.WebhookRef, error)

// SendError reports which message of a sequential batch failed.
type SendError struct {
	Index int
	Err   error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("message %d failed after %d sent: %v", e.Index+1, e.Index, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// Sent returns how many messages were delivered before the failure.
func (e *SendError) Sent() int {
	return e.Index
}

// BroadcastResult tallies a one-shot send to several webhooks.
type BroadcastResult struct {
	Sent   int
	Failed int
}

// WebhookUsecase exposes the single-webhook operations.
type WebhookUsecase struct {
	client       WebhookClient
	notifier     Notifier
	notifyOnSend bool
	sendDelay    time.Duration
	onNotifyErr  NotificationErrorHandler
}

// WebhookUsecaseOption configures a WebhookUsecase.
type WebhookUsecaseOption func(*WebhookUsecase)

// WithNotifier enables notifications on delete (and on send when WithNotifyOnSend is set).
func WithNotifier(notifier Notifier) WebhookUsecaseOption {
	return func(u *WebhookUsecase) {
		u.notifier = notifier
	}
}

// WithNotifyOnSend also notifies after every successful send batch.
func WithNotifyOnSend(enabled bool) WebhookUsecaseOption {
	return func(u *WebhookUsecase) {
		u.notifyOnSend = enabled
	}
}

// WithSendDelay sets the pause between consecutive messages of one batch.
func WithSendDelay(delay time.Duration) WebhookUsecaseOption {
	return func(u *WebhookUsecase) {
		if delay >= 0 {
			u.sendDelay = delay
		}
	}
}

// WithNotificationErrorHandler registers the callback used when a notification fails.
func WithNotificationErrorHandler(handler NotificationErrorHandler) WebhookUsecaseOption {
	return func(u *WebhookUsecase) {
		if handler != nil {
			u.onNotifyErr = handler
		}
	}
}

// NewWebhookUsecase wraps client to expose higher-level webhook operations.
func NewWebhookUsecase(client WebhookClient, opts ...WebhookUsecaseOption) *WebhookUsecase {
	u := &WebhookUsecase{
		client:      client,
		sendDelay:   100 * time.Millisecond,
		onNotifyErr: func(domain.WebhookRef, error) {},
	}

	for _, opt := range opts {
		opt(u)
	}

	return u
}

// Verify checks that rawURL looks like a webhook URL and that Discord accepts a GET against it.
func (u *WebhookUsecase) Verify(ctx context.Context, rawURL string) error {
	_, err := u.Info(ctx, rawURL)
	return err
}

// Info fetches the metadata Discord holds for the webhook.
func (u *WebhookUsecase) Info(ctx context.Context, rawURL string) (domain.WebhookInfo, error) {
	ref, err := domain.ParseWebhookURL(rawURL)
	if err != nil {
		return domain.WebhookInfo{}, err
	}

	info, err := u.client.Webhook(ctx, ref)
	if err != nil {
		return domain.WebhookInfo{}, fmt.Errorf("%w: %w", ErrWebhookUnavailable, err)
	}

	return info, nil
}

// SendRepeated posts repeat copies of one message, optionally with an embed.
func (u *WebhookUsecase) SendRepeated(
	ctx context.Context,
	rawURL, content string,
	repeat int,
	embed *domain.Embed,
) error {
	messages, err := domain.ComposeMessages(content, repeat, embed)
	if err != nil {
		return err
	}

	return u.Send(ctx, rawURL, messages)
}

// Send posts messages one after another, pausing between them.
// The first failure aborts the batch and is returned as a *SendError.
func (u *WebhookUsecase) Send(ctx context.Context, rawURL string, messages []domain.Message) error {
	ref, err := domain.ParseWebhookURL(rawURL)
	if err != nil {
		return err
	}
	if err := domain.ValidateRepeat(len(messages)); err != nil {
		return err
	}

	limiter := rate.NewLimiter(rate.Every(u.sendDelay), 1)
	for i, msg := range messages {
		if err := limiter.Wait(ctx); err != nil {
			return &SendError{Index: i, Err: err}
		}
		if err := u.client.Execute(ctx, ref, msg); err != nil {
			return &SendError{Index: i, Err: err}
		}
	}

	if u.notifyOnSend && u.notifier != nil {
		if err := u.notifier.NotifyUsed(ctx, ref); err != nil {
			u.onNotifyErr(ref, err)
		}
	}

	return nil
}

// Broadcast posts one message to every webhook in rawURLs, in order.
// Failures are counted and do not stop the remaining sends.
func (u *WebhookUsecase) Broadcast(
	ctx context.Context,
	rawURLs []string,
	msg domain.Message,
) (BroadcastResult, error) {
	if msg.Empty() {
		return BroadcastResult{}, domain.ErrEmptyMessage
	}

	targets := domain.NewWebhookList(rawURLs...).URLs()
	if len(targets) == 0 {
		return BroadcastResult{}, domain.ErrNoWebhooks
	}

	var result BroadcastResult
	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := u.Send(ctx, target, []domain.Message{msg}); err != nil {
			result.Failed++
			continue
		}
		result.Sent++
	}

	return result, nil
}

// Update changes the webhook's display name and avatar.
func (u *WebhookUsecase) Update(ctx context.Context, rawURL, name, avatar string) error {
	ref, err := domain.ParseWebhookURL(rawURL)
	if err != nil {
		return err
	}

	if err := u.client.Edit(ctx, ref, name, avatar); err != nil {
		return fmt.Errorf("failed to update webhook: %w", err)
	}

	return nil
}

// Delete removes the webhook and, when a notifier is configured, reports the deletion once.
func (u *WebhookUsecase) Delete(ctx context.Context, rawURL string) error {
	ref, err := domain.ParseWebhookURL(rawURL)
	if err != nil {
		return err
	}

	if err := u.client.Delete(ctx, ref); err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}

	if u.notifier != nil {
		if err := u.notifier.NotifyDeleted(ctx, ref); err != nil {
			u.onNotifyErr(ref, err)
		}
	}

	return nil
}
