package telegram

import (
	"context"
	"testing"
	"time"

	busruntime "github.com/dolfies/jishaku/internal/bus"
)

func TestToFromBusMessageRoundTrip(t *testing.T) {
	in := InboundMessage{
		ChatID:           -1001,
		MessageID:        42,
		ReplyToMessageID: 41,
		SentAt:           time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
		FromUserID:       7,
		FromUsername:     "dev",
		Text:             "jsk eval `1+1`",
	}
	msg, err := ToBusMessage(in)
	if err != nil {
		t.Fatalf("ToBusMessage() error = %v", err)
	}
	if err := msg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if msg.ConversationKey != "tg:-1001" {
		t.Fatalf("conversation key = %q", msg.ConversationKey)
	}

	got, err := FromBusMessage(msg)
	if err != nil {
		t.Fatalf("FromBusMessage() error = %v", err)
	}
	if got != in {
		t.Fatalf("round trip mismatch: got=%+v want=%+v", got, in)
	}
}

func TestToBusMessageRejectsEmptyText(t *testing.T) {
	_, err := ToBusMessage(InboundMessage{ChatID: 1, MessageID: 2, Text: "   "})
	if err == nil {
		t.Fatal("expected an error for empty text")
	}
}

func TestDeliveryAdapterDeliver(t *testing.T) {
	var gotChatID int64
	var gotText string
	adapter, err := NewDeliveryAdapter(func(ctx context.Context, chatID int64, text string) error {
		gotChatID = chatID
		gotText = text
		return nil
	})
	if err != nil {
		t.Fatalf("NewDeliveryAdapter() error = %v", err)
	}

	out, err := busruntime.NewOutbound(busruntime.ChannelTelegram, "tg:123", "corr_01", busruntime.DebugEnvelope{
		MessageID: "123:9",
		ChannelID: "123",
		Text:      "```\n2\n```",
		SentAt:    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		t.Fatalf("NewOutbound() error = %v", err)
	}
	if err := adapter.Deliver(context.Background(), out); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if gotChatID != 123 || gotText != "```\n2\n```" {
		t.Fatalf("delivered (%d, %q)", gotChatID, gotText)
	}
}

func TestDeliveryAdapterRejectsInbound(t *testing.T) {
	adapter, _ := NewDeliveryAdapter(func(ctx context.Context, chatID int64, text string) error { return nil })
	in, err := ToBusMessage(InboundMessage{ChatID: 1, MessageID: 2, Text: "jsk"})
	if err != nil {
		t.Fatalf("ToBusMessage() error = %v", err)
	}
	if err := adapter.Deliver(context.Background(), in); err == nil {
		t.Fatal("expected an error for inbound message")
	}
}
