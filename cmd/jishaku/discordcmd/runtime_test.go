package discordcmd

import (
	"testing"

	"github.com/dolfies/jishaku/feature"
)

func TestChannelAllowList(t *testing.T) {
	rt, err := NewRuntime(Options{
		Token:           "t",
		Runner:          feature.New(feature.Config{}),
		AllowedChannels: []string{"123"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !rt.channelAllowed("123") {
		t.Fatal("listed channel should be allowed")
	}
	if rt.channelAllowed("456") {
		t.Fatal("unlisted channel should be rejected")
	}
}

func TestChannelAllowListEmptyAdmitsAll(t *testing.T) {
	rt, err := NewRuntime(Options{Token: "t", Runner: feature.New(feature.Config{})})
	if err != nil {
		t.Fatal(err)
	}
	if !rt.channelAllowed("456") {
		t.Fatal("empty allow-list should admit every channel")
	}
}
