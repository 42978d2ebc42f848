package telegramcmd

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetUpdatesAdvancesOffset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottok/getUpdates" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":[
			{"update_id":10,"message":{"message_id":1,"chat":{"id":5},"from":{"id":7},"text":"jsk"}},
			{"update_id":11,"message":{"message_id":2,"chat":{"id":5},"from":{"id":7},"text":"jsk help"}}
		]}`))
	}))
	defer srv.Close()

	api := newTelegramAPI(srv.Client(), srv.URL, "tok")
	updates, next, err := api.getUpdates(context.Background(), 0, time.Second)
	if err != nil {
		t.Fatalf("getUpdates: %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(updates))
	}
	if next != 12 {
		t.Fatalf("expected next offset 12, got %d", next)
	}
	if updates[1].Message.Text != "jsk help" {
		t.Fatalf("unexpected text %q", updates[1].Message.Text)
	}
}

func TestSendMessageMarkdownFallback(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req telegramSendMessageRequest
		_ = json.Unmarshal(body, &req)
		calls = append(calls, req.ParseMode)
		if req.ParseMode == "MarkdownV2" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: can't parse entities"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":42,"chat":{"id":5}}}`))
	}))
	defer srv.Close()

	api := newTelegramAPI(srv.Client(), srv.URL, "tok")
	msg, err := api.sendMessage(context.Background(), telegramSendMessageRequest{
		ChatID:    5,
		Text:      "_broken markdown",
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		t.Fatalf("sendMessage: %v", err)
	}
	if msg.MessageID != 42 {
		t.Fatalf("expected message id 42, got %d", msg.MessageID)
	}
	if len(calls) != 3 || calls[0] != "MarkdownV2" || calls[1] != "MarkdownV2" || calls[2] != "" {
		t.Fatalf("expected markdown, escaped markdown, then plain, got %v", calls)
	}
}

func TestSendMessageSurfacesOtherErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`))
	}))
	defer srv.Close()

	api := newTelegramAPI(srv.Client(), srv.URL, "tok")
	_, err := api.sendMessage(context.Background(), telegramSendMessageRequest{ChatID: 5, Text: "hi"})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestEditMessageTextIgnoresNotModified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: message is not modified"}`))
	}))
	defer srv.Close()

	api := newTelegramAPI(srv.Client(), srv.URL, "tok")
	err := api.editMessageText(context.Background(), telegramEditMessageTextRequest{ChatID: 5, MessageID: 42, Text: "same"})
	if err != nil {
		t.Fatalf("expected not-modified to be swallowed, got %v", err)
	}
}
