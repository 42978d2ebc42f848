package discord

import (
	"context"
	"testing"
	"time"

	busruntime "github.com/dolfies/jishaku/internal/bus"
)

func TestToFromBusMessageRoundTrip(t *testing.T) {
	in := InboundMessage{
		ChannelID:  "111222333",
		MessageID:  "444555666",
		ReplyToID:  "444555665",
		SentAt:     time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
		AuthorID:   "777",
		AuthorName: "dev",
		Text:       "jsk sh `uptime`",
	}
	msg, err := ToBusMessage(in)
	if err != nil {
		t.Fatalf("ToBusMessage() error = %v", err)
	}
	if err := msg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if msg.ConversationKey != "discord:111222333" {
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

func TestDeliveryAdapterDeliver(t *testing.T) {
	var gotChannelID, gotText string
	adapter, err := NewDeliveryAdapter(func(ctx context.Context, channelID, text string) error {
		gotChannelID = channelID
		gotText = text
		return nil
	})
	if err != nil {
		t.Fatalf("NewDeliveryAdapter() error = %v", err)
	}

	out, err := busruntime.NewOutbound(busruntime.ChannelDiscord, "discord:9", "corr_01", busruntime.DebugEnvelope{
		MessageID: "10",
		ChannelID: "9",
		Text:      "```\nok\n```",
		SentAt:    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		t.Fatalf("NewOutbound() error = %v", err)
	}
	if err := adapter.Deliver(context.Background(), out); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if gotChannelID != "9" || gotText != "```\nok\n```" {
		t.Fatalf("delivered (%q, %q)", gotChannelID, gotText)
	}
}
