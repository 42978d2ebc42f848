// Package discord converts Discord chat traffic to and from debug bus
// messages.
package discord

import (
	"context"
	"fmt"
	"strings"
	"time"

	busruntime "github.com/dolfies/jishaku/internal/bus"
)

// InboundMessage is a received Discord message reduced to what the debug
// feature needs. Discord snowflake ids stay as strings.
type InboundMessage struct {
	ChannelID  string
	MessageID  string
	ReplyToID  string
	SentAt     time.Time
	AuthorID   string
	AuthorName string
	Text       string
}

// ToBusMessage wraps an inbound Discord message for publication on the debug
// command topic.
func ToBusMessage(msg InboundMessage) (busruntime.BusMessage, error) {
	if strings.TrimSpace(msg.ChannelID) == "" {
		return busruntime.BusMessage{}, fmt.Errorf("channel_id is required")
	}
	if strings.TrimSpace(msg.MessageID) == "" {
		return busruntime.BusMessage{}, fmt.Errorf("message_id is required")
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return busruntime.BusMessage{}, fmt.Errorf("text is required")
	}
	sentAt := msg.SentAt.UTC()
	if sentAt.IsZero() {
		sentAt = time.Now().UTC()
	}

	conversationKey, err := busruntime.BuildDiscordChannelConversationKey(msg.ChannelID)
	if err != nil {
		return busruntime.BusMessage{}, err
	}

	env := busruntime.DebugEnvelope{
		MessageID:  msg.MessageID,
		ChannelID:  msg.ChannelID,
		AuthorID:   strings.TrimSpace(msg.AuthorID),
		AuthorName: strings.TrimSpace(msg.AuthorName),
		Text:       text,
		SentAt:     sentAt.Format(time.RFC3339),
		ReplyTo:    strings.TrimSpace(msg.ReplyToID),
	}
	return busruntime.NewInbound(busruntime.ChannelDiscord, conversationKey, env)
}

// FromBusMessage recovers the Discord view of an inbound bus message.
func FromBusMessage(msg busruntime.BusMessage) (InboundMessage, error) {
	if msg.Direction != busruntime.DirectionInbound {
		return InboundMessage{}, fmt.Errorf("direction must be inbound")
	}
	if msg.Channel != busruntime.ChannelDiscord {
		return InboundMessage{}, fmt.Errorf("channel must be discord")
	}
	env, err := msg.Envelope()
	if err != nil {
		return InboundMessage{}, err
	}
	sentAt, err := time.Parse(time.RFC3339, env.SentAt)
	if err != nil {
		return InboundMessage{}, fmt.Errorf("sent_at is invalid")
	}
	return InboundMessage{
		ChannelID:  env.ChannelID,
		MessageID:  env.MessageID,
		ReplyToID:  env.ReplyTo,
		SentAt:     sentAt.UTC(),
		AuthorID:   env.AuthorID,
		AuthorName: env.AuthorName,
		Text:       env.Text,
	}, nil
}

// SendTextFunc delivers text to a Discord channel.
type SendTextFunc func(ctx context.Context, channelID, text string) error

// DeliveryAdapter routes outbound debug output bus messages to Discord.
type DeliveryAdapter struct {
	sendText SendTextFunc
}

func NewDeliveryAdapter(sendText SendTextFunc) (*DeliveryAdapter, error) {
	if sendText == nil {
		return nil, fmt.Errorf("send text func is required")
	}
	return &DeliveryAdapter{sendText: sendText}, nil
}

func (a *DeliveryAdapter) Deliver(ctx context.Context, msg busruntime.BusMessage) error {
	if a == nil || a.sendText == nil {
		return fmt.Errorf("discord delivery adapter is not initialized")
	}
	if msg.Direction != busruntime.DirectionOutbound {
		return fmt.Errorf("direction must be outbound")
	}
	if msg.Channel != busruntime.ChannelDiscord {
		return fmt.Errorf("channel must be discord")
	}
	env, err := msg.Envelope()
	if err != nil {
		return err
	}
	const prefix = "discord:"
	if !strings.HasPrefix(msg.ConversationKey, prefix) {
		return fmt.Errorf("discord conversation key is invalid")
	}
	channelID := strings.TrimPrefix(msg.ConversationKey, prefix)
	return a.sendText(ctx, channelID, strings.TrimSpace(env.Text))
}
