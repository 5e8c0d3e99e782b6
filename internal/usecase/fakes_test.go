package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/sglre6355/webhook-relay/internal/domain"
)

var errUpstream = errors.New("upstream refused request")

type call struct {
	Method string
	Ref    domain.WebhookRef
	Msg    domain.Message
	Name   string
	Avatar string
}

// fakeClient records every call and fails those whose webhook ID is listed in failIDs.
type fakeClient struct {
	mu      sync.Mutex
	calls   []call
	failIDs map[string]bool
	failAt  int // fail the Nth Execute (1-based), 0 disables
	execs   int
	info    domain.WebhookInfo
	block   chan struct{}
}

func (f *fakeClient) record(c call) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, c)
	if c.Method == "POST" {
		f.execs++
		if f.failAt > 0 && f.execs == f.failAt {
			return errUpstream
		}
	}
	if f.failIDs[c.Ref.ID] {
		return errUpstream
	}
	return nil
}

func (f *fakeClient) Webhook(_ context.Context, ref domain.WebhookRef) (domain.WebhookInfo, error) {
	if err := f.record(call{Method: "GET", Ref: ref}); err != nil {
		return domain.WebhookInfo{}, err
	}
	return f.info, nil
}

func (f *fakeClient) Execute(ctx context.Context, ref domain.WebhookRef, msg domain.Message) error {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.record(call{Method: "POST", Ref: ref, Msg: msg})
}

func (f *fakeClient) Edit(_ context.Context, ref domain.WebhookRef, name, avatar string) error {
	return f.record(call{Method: "PATCH", Ref: ref, Name: name, Avatar: avatar})
}

func (f *fakeClient) Delete(_ context.Context, ref domain.WebhookRef) error {
	return f.record(call{Method: "DELETE", Ref: ref})
}

func (f *fakeClient) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]call, len(f.calls))
	copy(out, f.calls)
	return out
}

type fakeNotifier struct {
	mu      sync.Mutex
	deleted []domain.WebhookRef
	used    []domain.WebhookRef
	err     error
}

func (n *fakeNotifier) NotifyDeleted(_ context.Context, ref domain.WebhookRef) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deleted = append(n.deleted, ref)
	return n.err
}

func (n *fakeNotifier) NotifyUsed(_ context.Context, ref domain.WebhookRef) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.used = append(n.used, ref)
	return n.err
}
