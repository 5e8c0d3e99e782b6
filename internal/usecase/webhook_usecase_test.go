package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sglre6355/webhook-relay/internal/domain"
)

const (
	hookA = "https://discord.com/api/webhooks/1/a"
	hookB = "https://discord.com/api/webhooks/2/b"
	hookC = "https://discord.com/api/webhooks/3/c"
)

func TestVerifyRejectsMalformedURLWithoutNetwork(t *testing.T) {
	client := &fakeClient{}
	u := NewWebhookUsecase(client)

	for _, raw := range []string{"", "https://example.com/hook", "https://discord.com/api/v10/webhooks/1/a"} {
		if err := u.Verify(context.Background(), raw); !errors.Is(err, domain.ErrInvalidWebhookURL) {
			t.Fatalf("Verify(%q): expected ErrInvalidWebhookURL, got %v", raw, err)
		}
	}

	if n := len(client.Calls()); n != 0 {
		t.Fatalf("expected no outbound calls, got %d", n)
	}
}

func TestVerifyMapsUpstreamFailure(t *testing.T) {
	client := &fakeClient{failIDs: map[string]bool{"1": true}}
	u := NewWebhookUsecase(client)

	if err := u.Verify(context.Background(), hookA); !errors.Is(err, ErrWebhookUnavailable) {
		t.Fatalf("expected ErrWebhookUnavailable, got %v", err)
	}
	if err := u.Verify(context.Background(), hookB); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestInfoReturnsMetadata(t *testing.T) {
	want := domain.WebhookInfo{ID: "2", Name: "relay", ChannelID: "10", GuildID: "20"}
	u := NewWebhookUsecase(&fakeClient{info: want})

	got, err := u.Info(context.Background(), hookB)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestSendRepeatedRejectsOutOfRangeBeforeDispatch(t *testing.T) {
	client := &fakeClient{}
	u := NewWebhookUsecase(client, WithSendDelay(0))

	for _, repeat := range []int{0, 51} {
		err := u.SendRepeated(context.Background(), hookA, "hi", repeat, nil)
		if !errors.Is(err, domain.ErrRepeatOutOfRange) {
			t.Fatalf("repeat %d: expected ErrRepeatOutOfRange, got %v", repeat, err)
		}
	}

	if n := len(client.Calls()); n != 0 {
		t.Fatalf("expected no dispatch, got %d calls", n)
	}
}

func TestSendRepeatedSendsSequentially(t *testing.T) {
	client := &fakeClient{}
	u := NewWebhookUsecase(client, WithSendDelay(time.Millisecond))
	embed := &domain.Embed{Title: "t", Color: 0xABCDEF}

	if err := u.SendRepeated(context.Background(), hookA, "hi", 5, embed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := client.Calls()
	if len(calls) != 5 {
		t.Fatalf("expected 5 sends, got %d", len(calls))
	}
	for _, c := range calls {
		if c.Method != "POST" || c.Ref.ID != "1" || c.Msg.Content != "hi" || c.Msg.Embeds[0].Color != 0xABCDEF {
			t.Fatalf("unexpected call: %+v", c)
		}
	}
}

func TestSendPacesMessages(t *testing.T) {
	client := &fakeClient{}
	u := NewWebhookUsecase(client, WithSendDelay(20*time.Millisecond))
	msgs := []domain.Message{{Content: "1"}, {Content: "2"}, {Content: "3"}}

	start := time.Now()
	if err := u.Send(context.Background(), hookA, msgs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if elapsed := time.Since(start); elapsed < 35*time.Millisecond {
		t.Fatalf("expected at least two delays between three messages, took %v", elapsed)
	}
}

func TestSendAbortsOnFirstFailure(t *testing.T) {
	client := &fakeClient{failAt: 3}
	notifier := &fakeNotifier{}
	u := NewWebhookUsecase(client, WithSendDelay(0), WithNotifier(notifier), WithNotifyOnSend(true))
	msgs := make([]domain.Message, 5)
	for i := range msgs {
		msgs[i] = domain.Message{Content: "x"}
	}

	err := u.Send(context.Background(), hookA, msgs)

	var sendErr *SendError
	if !errors.As(err, &sendErr) {
		t.Fatalf("expected *SendError, got %v", err)
	}
	if sendErr.Index != 2 || sendErr.Sent() != 2 {
		t.Fatalf("expected failure at index 2 after 2 sent, got %+v", sendErr)
	}
	if !errors.Is(err, errUpstream) {
		t.Fatalf("expected wrapped upstream error, got %v", err)
	}
	if n := len(client.Calls()); n != 3 {
		t.Fatalf("expected 3 attempts, got %d", n)
	}
	if len(notifier.used) != 0 {
		t.Fatal("failed batches must not notify")
	}
}

func TestSendRejectsEmptyBatch(t *testing.T) {
	u := NewWebhookUsecase(&fakeClient{})

	if err := u.Send(context.Background(), hookA, nil); !errors.Is(err, domain.ErrRepeatOutOfRange) {
		t.Fatalf("expected ErrRepeatOutOfRange, got %v", err)
	}
}

func TestSendStopsWhenContextCancelled(t *testing.T) {
	client := &fakeClient{}
	u := NewWebhookUsecase(client, WithSendDelay(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := u.Send(ctx, hookA, []domain.Message{{Content: "1"}, {Content: "2"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSendNotifiesWhenEnabled(t *testing.T) {
	notifier := &fakeNotifier{}
	u := NewWebhookUsecase(&fakeClient{}, WithSendDelay(0), WithNotifier(notifier), WithNotifyOnSend(true))

	if err := u.Send(context.Background(), hookA, []domain.Message{{Content: "x"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifier.used) != 1 || notifier.used[0].ID != "1" {
		t.Fatalf("expected one usage notice for webhook 1, got %+v", notifier.used)
	}
}

func TestBroadcastContinuesPastFailures(t *testing.T) {
	client := &fakeClient{failIDs: map[string]bool{"2": true}}
	u := NewWebhookUsecase(client, WithSendDelay(0))

	res, err := u.Broadcast(context.Background(), []string{hookA, hookB, hookA, hookC, "bogus"}, domain.Message{Content: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Sent != 2 || res.Failed != 2 {
		t.Fatalf("expected sent=2 failed=2, got %+v", res)
	}
	if n := len(client.Calls()); n != 3 {
		t.Fatalf("expected 3 dispatches, got %d", n)
	}
}

func TestBroadcastGuards(t *testing.T) {
	u := NewWebhookUsecase(&fakeClient{})

	if _, err := u.Broadcast(context.Background(), []string{hookA}, domain.Message{}); !errors.Is(err, domain.ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if _, err := u.Broadcast(context.Background(), nil, domain.Message{Content: "hi"}); !errors.Is(err, domain.ErrNoWebhooks) {
		t.Fatalf("expected ErrNoWebhooks, got %v", err)
	}
}

func TestUpdatePassesNameAndAvatar(t *testing.T) {
	client := &fakeClient{}
	u := NewWebhookUsecase(client)

	if err := u.Update(context.Background(), hookA, "new name", "https://example.com/a.png"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := client.Calls()
	if len(calls) != 1 || calls[0].Method != "PATCH" || calls[0].Name != "new name" || calls[0].Avatar != "https://example.com/a.png" {
		t.Fatalf("unexpected calls: %+v", calls)
	}
}

func TestDeleteNotifiesExactlyOnce(t *testing.T) {
	client := &fakeClient{}
	notifier := &fakeNotifier{}
	u := NewWebhookUsecase(client, WithNotifier(notifier))

	if err := u.Delete(context.Background(), hookA); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(notifier.deleted) != 1 || notifier.deleted[0].ID != "1" {
		t.Fatalf("expected exactly one deletion notice, got %+v", notifier.deleted)
	}
	if len(notifier.used) != 0 {
		t.Fatalf("delete must not send usage notices, got %+v", notifier.used)
	}
}

func TestDeleteFailureSkipsNotification(t *testing.T) {
	notifier := &fakeNotifier{}
	u := NewWebhookUsecase(&fakeClient{failIDs: map[string]bool{"1": true}}, WithNotifier(notifier))

	if err := u.Delete(context.Background(), hookA); !errors.Is(err, errUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if len(notifier.deleted) != 0 {
		t.Fatal("failed deletes must not notify")
	}
}

func TestDeleteSucceedsWhenNotificationFails(t *testing.T) {
	notifier := &fakeNotifier{err: errors.New("notice failed")}
	var handled error
	u := NewWebhookUsecase(
		&fakeClient{},
		WithNotifier(notifier),
		WithNotificationErrorHandler(func(_ domain.WebhookRef, err error) { handled = err }),
	)

	if err := u.Delete(context.Background(), hookA); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if handled == nil {
		t.Fatal("expected notification error to reach the handler")
	}
}

func TestDeleteWithoutNotifier(t *testing.T) {
	client := &fakeClient{}
	u := NewWebhookUsecase(client)

	if err := u.Delete(context.Background(), hookA); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls := client.Calls(); len(calls) != 1 || calls[0].Method != "DELETE" {
		t.Fatalf("unexpected calls: %+v", calls)
	}
}
