package bus

import (
	"fmt"
	"strings"
)

// BuildConversationKey canonicalizes a channel-scoped conversation id, e.g.
// "tg:123456" or "discord:9876".
func BuildConversationKey(channel Channel, id string) (string, error) {
	prefix := conversationKeyPrefix(channel)
	if prefix == "" {
		return "", fmt.Errorf("channel is invalid")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("conversation id is required")
	}
	if strings.Contains(id, " ") {
		return "", fmt.Errorf("conversation id must not contain spaces")
	}
	return fmt.Sprintf("%s:%s", prefix, id), nil
}

func BuildTelegramChatConversationKey(chatID string) (string, error) {
	return BuildConversationKey(ChannelTelegram, chatID)
}

func BuildDiscordChannelConversationKey(channelID string) (string, error) {
	return BuildConversationKey(ChannelDiscord, channelID)
}

func conversationKeyPrefix(channel Channel) string {
	switch channel {
	case ChannelTelegram:
		return "tg"
	case ChannelDiscord:
		return "discord"
	default:
		return ""
	}
}
