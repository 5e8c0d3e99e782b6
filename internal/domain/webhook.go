package domain

import (
	"errors"
	"net/url"
	"strings"
)

// WebhookPathMarker is the substring every accepted webhook URL must contain.
const WebhookPathMarker = "discord.com/api/webhooks/"

var (
	// ErrInvalidWebhookURL reports a string that is not shaped like a Discord webhook URL.
	ErrInvalidWebhookURL = errors.New("invalid Discord webhook URL")
)

// WebhookRef identifies a webhook by the ID and token embedded in its URL.
type WebhookRef struct {
	ID    string
	Token string
}

// ParseWebhookURL extracts the webhook ID and token from rawURL.
func ParseWebhookURL(rawURL string) (WebhookRef, error) {
	rawURL = strings.TrimSpace(rawURL)
	idx := strings.Index(rawURL, WebhookPathMarker)
	if idx < 0 {
		return WebhookRef{}, ErrInvalidWebhookURL
	}

	rest := rawURL[idx+len(WebhookPathMarker):]
	if cut := strings.IndexAny(rest, "?#"); cut >= 0 {
		rest = rest[:cut]
	}

	segments := strings.Split(strings.Trim(rest, "/"), "/")
	if len(segments) < 2 {
		return WebhookRef{}, ErrInvalidWebhookURL
	}

	id, token := segments[0], segments[1]
	if id == "" || token == "" || !isSnowflake(id) {
		return WebhookRef{}, ErrInvalidWebhookURL
	}

	return WebhookRef{ID: id, Token: token}, nil
}

// IsWebhookURL reports whether rawURL is an absolute URL carrying the webhook path.
func IsWebhookURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return false
	}
	return strings.Contains(rawURL, WebhookPathMarker)
}

// WebhookInfo is the public metadata Discord returns for a webhook.
type WebhookInfo struct {
	ID        string
	Name      string
	Avatar    string
	ChannelID string
	GuildID   string
}

func isSnowflake(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
