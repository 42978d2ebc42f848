package telegramcmd

import (
	"testing"

	"github.com/dolfies/jishaku/reactor"
)

func TestTelegramReactionEmojiCoversAllOutcomes(t *testing.T) {
	for _, r := range []reactor.Reaction{
		reactor.ReactionWorking,
		reactor.ReactionDone,
		reactor.ReactionSyntax,
		reactor.ReactionTimeout,
		reactor.ReactionFault,
	} {
		if telegramReactionEmoji(r) == "" {
			t.Fatalf("no emoji for reaction %d", r)
		}
	}
}

func TestPaginatorKeyboardCallbacksAreDistinct(t *testing.T) {
	kb := paginatorKeyboard()
	if len(kb.InlineKeyboard) != 1 {
		t.Fatalf("expected one keyboard row")
	}
	seen := map[string]bool{}
	for _, b := range kb.InlineKeyboard[0] {
		if b.CallbackData == "" {
			t.Fatalf("button %q has no callback data", b.Text)
		}
		if seen[b.CallbackData] {
			t.Fatalf("duplicate callback data %q", b.CallbackData)
		}
		seen[b.CallbackData] = true
	}
}
