package telegramcmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	busruntime "github.com/dolfies/jishaku/internal/bus"
	"github.com/dolfies/jishaku/internal/outputfmt"
	"github.com/dolfies/jishaku/paginator"
	"github.com/dolfies/jishaku/reactor"
)

// chatTransport serves one triggering message: replies, reactions, owner DMs
// and paginator interfaces, all against a single chat.
type chatTransport struct {
	rt        *Runtime
	chatID    int64
	messageID int64
	authorID  string
}

// Reply chunks text to the page size and publishes each chunk on the debug
// output topic; the delivery adapter sends it to the chat.
func (t *chatTransport) Reply(ctx context.Context, text string) error {
	conversationKey, err := busruntime.BuildTelegramChatConversationKey(strconv.FormatInt(t.chatID, 10))
	if err != nil {
		return err
	}
	correlationID := fmt.Sprintf("%d:%d", t.chatID, t.messageID)
	for _, chunk := range outputfmt.SplitChunks(text, t.MaxMessageSize()) {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		env := busruntime.DebugEnvelope{
			MessageID: correlationID,
			ChannelID: strconv.FormatInt(t.chatID, 10),
			Text:      chunk,
			SentAt:    time.Now().UTC().Format(time.RFC3339),
			ReplyTo:   strconv.FormatInt(t.messageID, 10),
		}
		bm, err := busruntime.NewOutbound(busruntime.ChannelTelegram, conversationKey, correlationID, env)
		if err != nil {
			return err
		}
		if err := t.rt.broker.Publish(ctx, bm); err != nil {
			return err
		}
	}
	return nil
}

// OwnerDM sends to the first configured owner's private chat. Telegram only
// lets bots message users who have started them; a failed send falls back to
// the channel.
func (t *chatTransport) OwnerDM(ctx context.Context, text string) (bool, error) {
	if len(t.rt.opts.Owners) == 0 {
		return false, nil
	}
	ownerID, err := strconv.ParseInt(t.rt.opts.Owners[0], 10, 64)
	if err != nil {
		return false, nil
	}
	for _, chunk := range outputfmt.SplitChunks(text, t.MaxMessageSize()) {
		_, err := t.rt.api.sendMessage(ctx, telegramSendMessageRequest{
			ChatID:                ownerID,
			Text:                  chunk,
			DisableWebPagePreview: true,
		})
		if err != nil {
			t.rt.logger.Warn("telegram_owner_dm_error", "owner_id", ownerID, "error", err.Error())
			return false, nil
		}
	}
	return true, nil
}

func (t *chatTransport) React(ctx context.Context, r reactor.Reaction) {
	if !t.rt.opts.ReactionsEnabled {
		return
	}
	if err := t.rt.api.setMessageReaction(ctx, t.chatID, t.messageID, telegramReactionEmoji(r)); err != nil {
		t.rt.logger.Debug("telegram_reaction_error", "chat_id", t.chatID, "error", err.Error())
	}
}

func (t *chatTransport) MaxMessageSize() int {
	return t.rt.opts.PageSize
}

// OpenInterface posts a keyboard-controlled display message and wires its
// callback events back to the interface.
func (t *chatTransport) OpenInterface(ctx context.Context, prefix, suffix string) (*paginator.Interface, error) {
	pag := paginator.New(prefix, suffix, t.MaxMessageSize())
	iface := paginator.NewInterface(&pageTransport{rt: t.rt, chatID: t.chatID}, pag, paginator.Options{
		OwnerID: t.authorID,
		Logger:  t.rt.logger,
	})
	// The display stays scrollable after the command finishes, so its loop
	// must not die with the command context.
	if err := iface.Start(context.WithoutCancel(ctx)); err != nil {
		return nil, err
	}
	t.rt.trackInterface(displayKeyFromMessageID(t.chatID, iface.MessageID()), iface)
	return iface, nil
}

// pageTransport renders paginator pages as one Telegram message edited in
// place, with the paging keyboard while the interface is live.
type pageTransport struct {
	rt     *Runtime
	chatID int64
}

func (p *pageTransport) SendPage(ctx context.Context, text string, withControls bool) (string, error) {
	req := telegramSendMessageRequest{
		ChatID:                p.chatID,
		Text:                  text,
		DisableWebPagePreview: true,
	}
	if withControls {
		req.ReplyMarkup = paginatorKeyboard()
	}
	msg, err := p.rt.api.sendMessage(ctx, req)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(msg.MessageID, 10), nil
}

func (p *pageTransport) EditPage(ctx context.Context, messageID, text string, withControls bool) error {
	id, err := strconv.ParseInt(messageID, 10, 64)
	if err != nil {
		return fmt.Errorf("message id is invalid: %w", err)
	}
	req := telegramEditMessageTextRequest{
		ChatID:    p.chatID,
		MessageID: id,
		Text:      text,
	}
	if withControls {
		req.ReplyMarkup = paginatorKeyboard()
	}
	return p.rt.api.editMessageText(ctx, req)
}

func displayKeyFromMessageID(chatID int64, messageID string) string {
	id, _ := strconv.ParseInt(messageID, 10, 64)
	return displayKey(chatID, id)
}

// Telegram restricts reactions to a fixed emoji palette, so outcome markers
// use the closest allowed stand-ins.
func telegramReactionEmoji(r reactor.Reaction) string {
	switch r {
	case reactor.ReactionWorking:
		return "👀"
	case reactor.ReactionDone:
		return "👌"
	case reactor.ReactionSyntax:
		return "🤨"
	case reactor.ReactionTimeout:
		return "😴"
	case reactor.ReactionFault:
		return "💔"
	}
	return ""
}
