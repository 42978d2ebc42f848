package telegramcmd

import (
	"testing"

	"github.com/dolfies/jishaku/feature"
)

func TestChatAllowList(t *testing.T) {
	rt, err := NewRuntime(Options{
		Token:        "t",
		Runner:       feature.New(feature.Config{}),
		AllowedChats: []int64{42},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !rt.chatAllowed(42) {
		t.Fatal("listed chat should be allowed")
	}
	if rt.chatAllowed(7) {
		t.Fatal("unlisted chat should be rejected")
	}
}

func TestChatAllowListEmptyAdmitsAll(t *testing.T) {
	rt, err := NewRuntime(Options{Token: "t", Runner: feature.New(feature.Config{})})
	if err != nil {
		t.Fatal(err)
	}
	if !rt.chatAllowed(7) {
		t.Fatal("empty allow-list should admit every chat")
	}
}
