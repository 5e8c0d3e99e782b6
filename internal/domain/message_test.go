package domain

import (
	"errors"
	"testing"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "#000000", want: 0},
		{in: "#ff8800", want: 0xFF8800},
		{in: "FFFFFF", want: 0xFFFFFF},
		{in: "#1", want: 1},
		{in: "", wantErr: true},
		{in: "#", wantErr: true},
		{in: "#zzzzzz", wantErr: true},
		{in: "#1000000", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidColor) {
				t.Errorf("ParseColor(%q): expected ErrInvalidColor, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseColor(%q) = %d, %v; want %d", tt.in, got, err, tt.want)
		}
	}
}

func TestComposeMessagesRejectsRepeatOutsideRange(t *testing.T) {
	for _, repeat := range []int{-1, 0, 51, 1000} {
		msgs, err := ComposeMessages("hi", repeat, nil)
		if !errors.Is(err, ErrRepeatOutOfRange) {
			t.Errorf("repeat %d: expected ErrRepeatOutOfRange, got %v", repeat, err)
		}
		if msgs != nil {
			t.Errorf("repeat %d: expected no messages, got %d", repeat, len(msgs))
		}
	}
}

func TestComposeMessagesBuildsCopies(t *testing.T) {
	embed := &Embed{Title: "t", Description: "d", URL: "https://example.com", Color: 0x00FF00}

	msgs, err := ComposeMessages("hello", 3, embed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	for i, msg := range msgs {
		if msg.Content != "hello" || len(msg.Embeds) != 1 || msg.Embeds[0] != *embed {
			t.Fatalf("message %d not a copy of the template: %+v", i, msg)
		}
	}
}

func TestComposeMessagesEmbedOnly(t *testing.T) {
	msgs, err := ComposeMessages("", 1, &Embed{Title: "only embed"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}

	if _, err := ComposeMessages("   ", 1, nil); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
}
