package discordcmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreateMessageSendsAuthAndReference(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bot tok" {
			t.Errorf("unexpected auth header %q", got)
		}
		if r.URL.Path != "/channels/123/messages" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id":"900","channel_id":"123","content":"hi"}`))
	}))
	defer srv.Close()

	api := newDiscordAPI(srv.Client(), srv.URL, "tok", "")
	msg, err := api.createMessage(context.Background(), "123", "hi", "456")
	if err != nil {
		t.Fatalf("createMessage: %v", err)
	}
	if msg.ID != "900" {
		t.Fatalf("expected message id 900, got %q", msg.ID)
	}
}

func TestDoRetriesOnceOnRateLimit(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"retry_after":0.01}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"1","username":"jsk"}`))
	}))
	defer srv.Close()

	api := newDiscordAPI(srv.Client(), srv.URL, "tok", "")
	u, err := api.getCurrentUser(context.Background())
	if err != nil {
		t.Fatalf("getCurrentUser: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if u.Username != "jsk" {
		t.Fatalf("unexpected username %q", u.Username)
	}
}

func TestDoSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"code":50007,"message":"Cannot send messages to this user"}`))
	}))
	defer srv.Close()

	api := newDiscordAPI(srv.Client(), srv.URL, "tok", "")
	_, err := api.createDM(context.Background(), "42")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestControlEventMapping(t *testing.T) {
	for _, emoji := range controlEmojis {
		if _, ok := controlEvent(emoji); !ok {
			t.Fatalf("control emoji %q not mapped", emoji)
		}
	}
	if _, ok := controlEvent("🍌"); ok {
		t.Fatal("unexpected mapping for non-control emoji")
	}
}
