package discordcmd

import (
	"context"
	"strings"
	"time"

	busruntime "github.com/dolfies/jishaku/internal/bus"
	"github.com/dolfies/jishaku/internal/outputfmt"
	"github.com/dolfies/jishaku/paginator"
	"github.com/dolfies/jishaku/reactor"
)

// chatTransport serves one triggering message: replies, reactions, owner DMs
// and paginator interfaces, all against a single channel.
type chatTransport struct {
	rt        *Runtime
	channelID string
	messageID string
	authorID  string
}

// Reply chunks text to the page size and publishes each chunk on the debug
// output topic; the delivery adapter sends it to the channel.
func (t *chatTransport) Reply(ctx context.Context, text string) error {
	conversationKey, err := busruntime.BuildDiscordChannelConversationKey(t.channelID)
	if err != nil {
		return err
	}
	for _, chunk := range outputfmt.SplitChunks(text, t.MaxMessageSize()) {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		env := busruntime.DebugEnvelope{
			MessageID: t.messageID,
			ChannelID: t.channelID,
			Text:      chunk,
			SentAt:    time.Now().UTC().Format(time.RFC3339),
			ReplyTo:   t.messageID,
		}
		bm, err := busruntime.NewOutbound(busruntime.ChannelDiscord, conversationKey, t.messageID, env)
		if err != nil {
			return err
		}
		if err := t.rt.broker.Publish(ctx, bm); err != nil {
			return err
		}
	}
	return nil
}

// OwnerDM opens a DM channel with the first configured owner and sends
// there. ok=false when Discord refuses (closed DMs), so callers fall back.
func (t *chatTransport) OwnerDM(ctx context.Context, text string) (bool, error) {
	if len(t.rt.opts.Owners) == 0 {
		return false, nil
	}
	dmChannel, err := t.rt.api.createDM(ctx, t.rt.opts.Owners[0])
	if err != nil {
		t.rt.logger.Warn("discord_owner_dm_error", "owner_id", t.rt.opts.Owners[0], "error", err.Error())
		return false, nil
	}
	for _, chunk := range outputfmt.SplitChunks(text, t.MaxMessageSize()) {
		if _, err := t.rt.api.createMessage(ctx, dmChannel, chunk, ""); err != nil {
			t.rt.logger.Warn("discord_owner_dm_error", "owner_id", t.rt.opts.Owners[0], "error", err.Error())
			return false, nil
		}
	}
	return true, nil
}

func (t *chatTransport) React(ctx context.Context, r reactor.Reaction) {
	if err := t.rt.api.createReaction(ctx, t.channelID, t.messageID, reactionEmoji(r)); err != nil {
		t.rt.logger.Debug("discord_reaction_error", "channel_id", t.channelID, "error", err.Error())
	}
}

func (t *chatTransport) MaxMessageSize() int {
	return t.rt.opts.PageSize
}

// OpenInterface posts a display message, arms the control reactions and
// wires reaction-add events back to the interface.
func (t *chatTransport) OpenInterface(ctx context.Context, prefix, suffix string) (*paginator.Interface, error) {
	pag := paginator.New(prefix, suffix, t.MaxMessageSize())
	iface := paginator.NewInterface(&pageTransport{rt: t.rt, channelID: t.channelID}, pag, paginator.Options{
		OwnerID: t.authorID,
		Logger:  t.rt.logger,
	})
	// The display stays scrollable after the command finishes, so its loop
	// must not die with the command context.
	if err := iface.Start(context.WithoutCancel(ctx)); err != nil {
		return nil, err
	}
	t.rt.trackInterface(t.channelID+":"+iface.MessageID(), iface)
	return iface, nil
}

// Paginator controls are the bot's own reactions on the display message.
const (
	emojiFirst = "⏮️"
	emojiBack  = "◀️"
	emojiNext  = "▶️"
	emojiLast  = "⏭️"
	emojiClose = "⏹️"
)

var controlEmojis = []string{emojiFirst, emojiBack, emojiNext, emojiLast, emojiClose}

func controlEvent(emoji string) (paginator.Event, bool) {
	switch emoji {
	case emojiFirst:
		return paginator.EventFirst, true
	case emojiBack:
		return paginator.EventBack, true
	case emojiNext:
		return paginator.EventNext, true
	case emojiLast:
		return paginator.EventLast, true
	case emojiClose:
		return paginator.EventClose, true
	}
	return 0, false
}

// pageTransport renders paginator pages as one Discord message edited in
// place. Controls are armed once on send; a controls-free edit clears them.
type pageTransport struct {
	rt        *Runtime
	channelID string
}

func (p *pageTransport) SendPage(ctx context.Context, text string, withControls bool) (string, error) {
	msg, err := p.rt.api.createMessage(ctx, p.channelID, text, "")
	if err != nil {
		return "", err
	}
	if withControls {
		for _, emoji := range controlEmojis {
			if err := p.rt.api.createReaction(ctx, p.channelID, msg.ID, emoji); err != nil {
				p.rt.logger.Debug("discord_control_arm_error", "emoji", emoji, "error", err.Error())
			}
		}
	}
	return msg.ID, nil
}

func (p *pageTransport) EditPage(ctx context.Context, messageID, text string, withControls bool) error {
	if err := p.rt.api.editMessage(ctx, p.channelID, messageID, text); err != nil {
		return err
	}
	if !withControls {
		for _, emoji := range controlEmojis {
			if err := p.rt.api.deleteOwnReaction(ctx, p.channelID, messageID, emoji); err != nil {
				p.rt.logger.Debug("discord_control_clear_error", "emoji", emoji, "error", err.Error())
			}
		}
	}
	return nil
}

func reactionEmoji(r reactor.Reaction) string {
	switch r {
	case reactor.ReactionWorking:
		return "▶️"
	case reactor.ReactionDone:
		return "✅"
	case reactor.ReactionSyntax:
		return "❗"
	case reactor.ReactionTimeout:
		return "⏰"
	case reactor.ReactionFault:
		return "‼️"
	}
	return "❔"
}
