package discordcmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Discord REST client, covering what the debug runtime needs.

type discordAPI struct {
	http      *http.Client
	baseURL   string
	token     string
	userAgent string
}

func newDiscordAPI(httpClient *http.Client, baseURL, token, userAgent string) *discordAPI {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &discordAPI{
		http:      httpClient,
		baseURL:   strings.TrimRight(baseURL, "/"),
		token:     token,
		userAgent: userAgent,
	}
}

type discordUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Bot      bool   `json:"bot,omitempty"`
}

type discordMessage struct {
	ID        string       `json:"id"`
	ChannelID string       `json:"channel_id"`
	Author    *discordUser `json:"author,omitempty"`
	Content   string       `json:"content"`
	Timestamp string       `json:"timestamp,omitempty"`
	GuildID   string       `json:"guild_id,omitempty"`

	ReferencedMessage *discordMessage `json:"referenced_message,omitempty"`
}

type discordChannel struct {
	ID string `json:"id"`
}

type discordMessageReference struct {
	MessageID string `json:"message_id,omitempty"`
}

type discordCreateMessageRequest struct {
	Content          string                   `json:"content"`
	MessageReference *discordMessageReference `json:"message_reference,omitempty"`
}

type discordRequestError struct {
	StatusCode int
	Code       int
	Message    string
	Body       string
}

func (e *discordRequestError) Error() string {
	if e == nil {
		return "discord request failed"
	}
	msg := strings.TrimSpace(e.Message)
	if msg != "" {
		return fmt.Sprintf("discord http %d: %s (code %d)", e.StatusCode, msg, e.Code)
	}
	return fmt.Sprintf("discord http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// do performs one authenticated request, retrying once on a rate limit.
func (api *discordAPI) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}

	for attempt := 0; attempt < 2; attempt++ {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, api.baseURL+path, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bot "+api.token)
		if api.userAgent != "" {
			req.Header.Set("User-Agent", api.userAgent)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := api.http.Do(req)
		if err != nil {
			return err
		}
		raw, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests && attempt == 0 {
			var rl struct {
				RetryAfter float64 `json:"retry_after"`
			}
			_ = json.Unmarshal(raw, &rl)
			wait := time.Duration(rl.RetryAfter * float64(time.Second))
			if wait <= 0 {
				wait = time.Second
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			var derr struct {
				Code    int    `json:"code"`
				Message string `json:"message"`
			}
			_ = json.Unmarshal(raw, &derr)
			return &discordRequestError{
				StatusCode: resp.StatusCode,
				Code:       derr.Code,
				Message:    derr.Message,
				Body:       strings.TrimSpace(string(raw)),
			}
		}
		if out != nil && len(raw) > 0 {
			return json.Unmarshal(raw, out)
		}
		return nil
	}
	return fmt.Errorf("discord: rate limited")
}

func (api *discordAPI) getCurrentUser(ctx context.Context) (*discordUser, error) {
	var u discordUser
	if err := api.do(ctx, http.MethodGet, "/users/@me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (api *discordAPI) getGatewayURL(ctx context.Context) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := api.do(ctx, http.MethodGet, "/gateway/bot", nil, &out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", fmt.Errorf("discord: gateway url missing")
	}
	return out.URL, nil
}

func (api *discordAPI) createMessage(ctx context.Context, channelID, content, replyToID string) (*discordMessage, error) {
	req := discordCreateMessageRequest{Content: content}
	if replyToID != "" {
		req.MessageReference = &discordMessageReference{MessageID: replyToID}
	}
	var msg discordMessage
	if err := api.do(ctx, http.MethodPost, "/channels/"+channelID+"/messages", req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (api *discordAPI) editMessage(ctx context.Context, channelID, messageID, content string) error {
	body := map[string]string{"content": content}
	return api.do(ctx, http.MethodPatch, "/channels/"+channelID+"/messages/"+messageID, body, nil)
}

func (api *discordAPI) createReaction(ctx context.Context, channelID, messageID, emoji string) error {
	path := fmt.Sprintf("/channels/%s/messages/%s/reactions/%s/@me",
		channelID, messageID, url.PathEscape(emoji))
	return api.do(ctx, http.MethodPut, path, nil, nil)
}

func (api *discordAPI) deleteOwnReaction(ctx context.Context, channelID, messageID, emoji string) error {
	path := fmt.Sprintf("/channels/%s/messages/%s/reactions/%s/@me",
		channelID, messageID, url.PathEscape(emoji))
	return api.do(ctx, http.MethodDelete, path, nil, nil)
}

// deleteUserReaction removes another user's reaction; needs the Manage
// Messages permission in guild channels.
func (api *discordAPI) deleteUserReaction(ctx context.Context, channelID, messageID, emoji, userID string) error {
	path := fmt.Sprintf("/channels/%s/messages/%s/reactions/%s/%s",
		channelID, messageID, url.PathEscape(emoji), userID)
	return api.do(ctx, http.MethodDelete, path, nil, nil)
}

// createDM opens (or reuses) the DM channel with a user.
func (api *discordAPI) createDM(ctx context.Context, userID string) (string, error) {
	body := map[string]string{"recipient_id": userID}
	var ch discordChannel
	if err := api.do(ctx, http.MethodPost, "/users/@me/channels", body, &ch); err != nil {
		return "", err
	}
	if ch.ID == "" {
		return "", fmt.Errorf("discord: dm channel id missing")
	}
	return ch.ID, nil
}
