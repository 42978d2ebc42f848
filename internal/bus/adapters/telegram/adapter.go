// Package telegram converts Telegram chat traffic to and from debug bus
// messages.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	busruntime "github.com/dolfies/jishaku/internal/bus"
)

// InboundMessage is a received Telegram message reduced to what the debug
// feature needs.
type InboundMessage struct {
	ChatID           int64
	MessageID        int64
	ReplyToMessageID int64
	SentAt           time.Time
	FromUserID       int64
	FromUsername     string
	Text             string
}

// ToBusMessage wraps an inbound Telegram message for publication on the
// debug command topic.
func ToBusMessage(msg InboundMessage) (busruntime.BusMessage, error) {
	if msg.ChatID == 0 {
		return busruntime.BusMessage{}, fmt.Errorf("chat_id is required")
	}
	if msg.MessageID == 0 {
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

	conversationKey, err := busruntime.BuildTelegramChatConversationKey(strconv.FormatInt(msg.ChatID, 10))
	if err != nil {
		return busruntime.BusMessage{}, err
	}

	env := busruntime.DebugEnvelope{
		MessageID: fmt.Sprintf("%d:%d", msg.ChatID, msg.MessageID),
		ChannelID: strconv.FormatInt(msg.ChatID, 10),
		AuthorID:  strconv.FormatInt(msg.FromUserID, 10),
		Text:      text,
		SentAt:    sentAt.Format(time.RFC3339),
	}
	if msg.FromUsername != "" {
		env.AuthorName = strings.TrimSpace(msg.FromUsername)
	}
	if msg.ReplyToMessageID > 0 {
		env.ReplyTo = strconv.FormatInt(msg.ReplyToMessageID, 10)
	}
	return busruntime.NewInbound(busruntime.ChannelTelegram, conversationKey, env)
}

// FromBusMessage recovers the Telegram view of an inbound bus message.
func FromBusMessage(msg busruntime.BusMessage) (InboundMessage, error) {
	if msg.Direction != busruntime.DirectionInbound {
		return InboundMessage{}, fmt.Errorf("direction must be inbound")
	}
	if msg.Channel != busruntime.ChannelTelegram {
		return InboundMessage{}, fmt.Errorf("channel must be telegram")
	}
	chatID, err := chatIDFromConversationKey(msg.ConversationKey)
	if err != nil {
		return InboundMessage{}, err
	}
	env, err := msg.Envelope()
	if err != nil {
		return InboundMessage{}, err
	}
	messageID, err := messageIDFromEnvelope(env.MessageID)
	if err != nil {
		return InboundMessage{}, err
	}
	sentAt, err := time.Parse(time.RFC3339, env.SentAt)
	if err != nil {
		return InboundMessage{}, fmt.Errorf("sent_at is invalid")
	}
	out := InboundMessage{
		ChatID:       chatID,
		MessageID:    messageID,
		SentAt:       sentAt.UTC(),
		FromUsername: env.AuthorName,
		Text:         env.Text,
	}
	if env.AuthorID != "" {
		userID, err := strconv.ParseInt(env.AuthorID, 10, 64)
		if err != nil {
			return InboundMessage{}, fmt.Errorf("author_id is invalid: %w", err)
		}
		out.FromUserID = userID
	}
	if env.ReplyTo != "" {
		replyTo, err := strconv.ParseInt(env.ReplyTo, 10, 64)
		if err != nil || replyTo <= 0 {
			return InboundMessage{}, fmt.Errorf("reply_to is invalid")
		}
		out.ReplyToMessageID = replyTo
	}
	return out, nil
}

// SendTextFunc delivers text to a Telegram chat.
type SendTextFunc func(ctx context.Context, chatID int64, text string) error

// DeliveryAdapter routes outbound debug output bus messages to Telegram.
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
		return fmt.Errorf("telegram delivery adapter is not initialized")
	}
	if msg.Direction != busruntime.DirectionOutbound {
		return fmt.Errorf("direction must be outbound")
	}
	if msg.Channel != busruntime.ChannelTelegram {
		return fmt.Errorf("channel must be telegram")
	}
	chatID, err := chatIDFromConversationKey(msg.ConversationKey)
	if err != nil {
		return err
	}
	env, err := msg.Envelope()
	if err != nil {
		return err
	}
	return a.sendText(ctx, chatID, strings.TrimSpace(env.Text))
}

func chatIDFromConversationKey(conversationKey string) (int64, error) {
	const prefix = "tg:"
	if !strings.HasPrefix(conversationKey, prefix) {
		return 0, fmt.Errorf("telegram conversation key is invalid")
	}
	raw := strings.TrimSpace(strings.TrimPrefix(conversationKey, prefix))
	if raw == "" {
		return 0, fmt.Errorf("telegram chat id is required")
	}
	chatID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("telegram chat id is invalid: %w", err)
	}
	return chatID, nil
}

func messageIDFromEnvelope(envelopeMessageID string) (int64, error) {
	parts := strings.Split(envelopeMessageID, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("message_id is invalid")
	}
	messageID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || messageID == 0 {
		return 0, fmt.Errorf("message_id is invalid")
	}
	return messageID, nil
}
