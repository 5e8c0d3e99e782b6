package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/sglre6355/webhook-relay/internal/domain"
)

// DiscordWebhookClient talks to Discord's webhook endpoints using the webhook token for auth.
type DiscordWebhookClient struct {
	session *discordgo.Session
}

// NewDiscordSession returns a token-less session suitable for webhook-token calls.
// It only carries the HTTP client and request settings; each call runs on a copy
// with its own rate limiter (see requestSession).
func NewDiscordSession(timeout time.Duration) (*discordgo.Session, error) {
	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	session.Client = &http.Client{Timeout: timeout}
	session.ShouldRetryOnRateLimit = false
	session.MaxRestRetries = 0
	session.StateEnabled = false

	return session, nil
}

// NewDiscordWebhookClient wires a Discord session to the webhook client interface expected by the use case layer.
func NewDiscordWebhookClient(session *discordgo.Session) *DiscordWebhookClient {
	return &DiscordWebhookClient{session: session}
}

// Webhook fetches the webhook's metadata.
func (c *DiscordWebhookClient) Webhook(ctx context.Context, ref domain.WebhookRef) (domain.WebhookInfo, error) {
	if c.session == nil {
		return domain.WebhookInfo{}, fmt.Errorf("discord session is not initialised")
	}

	hook, err := requestSession(c.session).WebhookWithToken(ref.ID, ref.Token, requestOptions(ctx)...)
	if err != nil {
		return domain.WebhookInfo{}, fmt.Errorf("failed to fetch webhook: %w", redactURL(err))
	}

	return domain.WebhookInfo{
		ID:        hook.ID,
		Name:      hook.Name,
		Avatar:    hook.Avatar,
		ChannelID: hook.ChannelID,
		GuildID:   hook.GuildID,
	}, nil
}

// Execute posts msg through the webhook without waiting for the created message.
func (c *DiscordWebhookClient) Execute(ctx context.Context, ref domain.WebhookRef, msg domain.Message) error {
	if c.session == nil {
		return fmt.Errorf("discord session is not initialised")
	}

	if _, err := requestSession(c.session).WebhookExecute(ref.ID, ref.Token, false, toWebhookParams(msg), requestOptions(ctx)...); err != nil {
		return fmt.Errorf("failed to execute webhook: %w", redactURL(err))
	}

	return nil
}

// Edit changes the webhook's name and avatar. Empty values are left untouched by Discord.
func (c *DiscordWebhookClient) Edit(ctx context.Context, ref domain.WebhookRef, name, avatar string) error {
	if c.session == nil {
		return fmt.Errorf("discord session is not initialised")
	}

	if _, err := requestSession(c.session).WebhookEditWithToken(ref.ID, ref.Token, name, avatar, requestOptions(ctx)...); err != nil {
		return fmt.Errorf("failed to edit webhook: %w", redactURL(err))
	}

	return nil
}

// Delete removes the webhook.
func (c *DiscordWebhookClient) Delete(ctx context.Context, ref domain.WebhookRef) error {
	if c.session == nil {
		return fmt.Errorf("discord session is not initialised")
	}

	_, err := requestSession(c.session).WebhookDeleteWithToken(ref.ID, ref.Token, requestOptions(ctx)...)
	// Discord answers 204 with an empty body, which discordgo fails to decode.
	if err != nil && !errors.Is(err, discordgo.ErrJSONUnmarshal) {
		return fmt.Errorf("failed to delete webhook: %w", redactURL(err))
	}

	return nil
}

// requestSession returns a session sharing base's HTTP client but holding a fresh
// rate limiter. discordgo sleeps on an exhausted bucket while holding its lock and
// keys every token webhook call except execute to one bucket, so a shared limiter
// would delay sends and serialise unrelated webhooks.
func requestSession(base *discordgo.Session) *discordgo.Session {
	return &discordgo.Session{
		Client:                 base.Client,
		UserAgent:              base.UserAgent,
		Ratelimiter:            discordgo.NewRatelimiter(),
		ShouldRetryOnRateLimit: false,
		MaxRestRetries:         0,
	}
}

func requestOptions(ctx context.Context) []discordgo.RequestOption {
	return []discordgo.RequestOption{
		discordgo.WithContext(ctx),
		discordgo.WithRetryOnRatelimit(false),
		discordgo.WithRestRetries(0),
	}
}

func toWebhookParams(msg domain.Message) *discordgo.WebhookParams {
	params := &discordgo.WebhookParams{Content: msg.Content}
	for _, embed := range msg.Embeds {
		params.Embeds = append(params.Embeds, &discordgo.MessageEmbed{
			Title:       embed.Title,
			Description: embed.Description,
			URL:         embed.URL,
			Color:       embed.Color,
		})
	}
	return params
}

// redactURL drops the request URL from transport errors; it carries the webhook token.
func redactURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s webhook request: %w", urlErr.Op, urlErr.Err)
	}
	return err
}
