package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// MinRepeat is the smallest accepted repeat count for a single-target send.
	MinRepeat = 1
	// MaxRepeat is the largest accepted repeat count for a single-target send.
	MaxRepeat = 50

	maxColor = 0xFFFFFF
)

var (
	// ErrRepeatOutOfRange reports a repeat count outside [MinRepeat, MaxRepeat].
	ErrRepeatOutOfRange = fmt.Errorf("repeat count must be between %d and %d", MinRepeat, MaxRepeat)
	// ErrInvalidColor reports an embed colour that is not a 24-bit hex value.
	ErrInvalidColor = errors.New("embed color must be a hex value between #000000 and #FFFFFF")
	// ErrEmptyMessage reports a message with nothing to send.
	ErrEmptyMessage = errors.New("message content cannot be empty")
)

// Embed is a rich content block attached to a message.
type Embed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Color       int    `json:"color"`
}

// Message is one outbound webhook message.
type Message struct {
	Content string  `json:"content"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

// Empty reports whether the message carries neither text nor embeds.
func (m Message) Empty() bool {
	return strings.TrimSpace(m.Content) == "" && len(m.Embeds) == 0
}

// ParseColor converts a "#rrggbb" string into its integer value.
func ParseColor(hex string) (int, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if trimmed == "" {
		return 0, ErrInvalidColor
	}

	value, err := strconv.ParseUint(trimmed, 16, 32)
	if err != nil || value > maxColor {
		return 0, ErrInvalidColor
	}

	return int(value), nil
}

// ValidateRepeat checks that count lies within [MinRepeat, MaxRepeat].
func ValidateRepeat(count int) error {
	if count < MinRepeat || count > MaxRepeat {
		return ErrRepeatOutOfRange
	}
	return nil
}

// ComposeMessages returns repeat identical copies of a message built from content and an optional embed.
func ComposeMessages(content string, repeat int, embed *Embed) ([]Message, error) {
	if err := ValidateRepeat(repeat); err != nil {
		return nil, err
	}

	msg := Message{Content: content}
	if embed != nil {
		msg.Embeds = []Embed{*embed}
	}
	if msg.Empty() {
		return nil, ErrEmptyMessage
	}

	messages := make([]Message, repeat)
	for i := range messages {
		messages[i] = msg
	}

	return messages, nil
}
