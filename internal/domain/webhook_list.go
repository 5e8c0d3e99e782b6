package domain

import (
	"strings"
	"sync"
)

// WebhookList is an ordered set of webhook URLs, de-duplicated by value.
type WebhookList struct {
	mu   sync.RWMutex
	urls []string
}

// NewWebhookList builds a list from urls, dropping blanks and duplicates.
func NewWebhookList(urls ...string) *WebhookList {
	list := &WebhookList{}
	for _, u := range urls {
		list.Add(u)
	}
	return list
}

// Add appends url unless it is blank or already present.
func (l *WebhookList) Add(url string) bool {
	url = strings.TrimSpace(url)
	if url == "" {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.indexLocked(url) >= 0 {
		return false
	}
	l.urls = append(l.urls, url)
	return true
}

// Remove deletes url from the list and reports whether it was present.
func (l *WebhookList) Remove(url string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.indexLocked(strings.TrimSpace(url))
	if idx < 0 {
		return false
	}
	l.urls = append(l.urls[:idx], l.urls[idx+1:]...)
	return true
}

// Import adds every webhook URL found in text, split on newlines and commas.
// Entries that are not absolute webhook URLs are skipped. Returns how many were added.
func (l *WebhookList) Import(text string) int {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ','
	})

	added := 0
	for _, field := range fields {
		candidate := strings.TrimSpace(field)
		if !IsWebhookURL(candidate) {
			continue
		}
		if l.Add(candidate) {
			added++
		}
	}
	return added
}

// URLs returns a snapshot of the list in insertion order.
func (l *WebhookList) URLs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]string, len(l.urls))
	copy(out, l.urls)
	return out
}

// Len returns the number of URLs in the list.
func (l *WebhookList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.urls)
}

func (l *WebhookList) indexLocked(url string) int {
	for i, existing := range l.urls {
		if existing == url {
			return i
		}
	}
	return -1
}
