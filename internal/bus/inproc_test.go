package bus

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestInprocDeliversToSubscriber(t *testing.T) {
	b := StartInproc(InprocOptions{})
	defer b.Close()

	var mu sync.Mutex
	var got []string
	err := b.Subscribe(TopicDebugCommandV1, func(ctx context.Context, msg BusMessage) error {
		env, err := msg.Envelope()
		if err != nil {
			return err
		}
		mu.Lock()
		got = append(got, env.Text)
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	msg, err := NewInbound(ChannelTelegram, "tg:1", DebugEnvelope{
		MessageID: "msg_01",
		ChannelID: "1",
		AuthorID:  "42",
		Text:      "jsk tasks",
		SentAt:    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		t.Fatalf("NewInbound() error = %v", err)
	}
	if err := b.Publish(context.Background(), msg); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n == 1 {
			if got[0] != "jsk tasks" {
				t.Fatalf("delivered text = %q", got[0])
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("message was not delivered")
}

func TestInprocDropsDuplicateIdempotencyKey(t *testing.T) {
	b := StartInproc(InprocOptions{})
	defer b.Close()

	var mu sync.Mutex
	count := 0
	_ = b.Subscribe(TopicDebugCommandV1, func(ctx context.Context, msg BusMessage) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	})

	msg := validMessage(t)
	if err := b.Publish(context.Background(), msg); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if err := b.Publish(context.Background(), msg); err != nil {
		t.Fatalf("Publish() duplicate error = %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Fatalf("handler ran %d times, want 1", count)
	}
}

func TestInprocRejectsAfterClose(t *testing.T) {
	b := StartInproc(InprocOptions{})
	b.Close()
	if err := b.Publish(context.Background(), validMessage(t)); err == nil {
		t.Fatal("Publish() after Close should fail")
	}
	if err := b.Subscribe(TopicDebugOutputV1, func(ctx context.Context, msg BusMessage) error { return nil }); err == nil {
		t.Fatal("Subscribe() after Close should fail")
	}
}

func TestInprocRejectsInvalidMessage(t *testing.T) {
	b := StartInproc(InprocOptions{})
	defer b.Close()
	msg := validMessage(t)
	msg.Topic = "Not A Topic"
	if err := b.Publish(context.Background(), msg); err == nil {
		t.Fatal("Publish() with invalid topic should fail")
	}
}
