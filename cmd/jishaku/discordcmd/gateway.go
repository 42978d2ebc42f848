package discordcmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

// Gateway opcodes and intents used by the debug runtime.
const (
	opDispatch       = 0
	opHeartbeat      = 1
	opIdentify       = 2
	opReconnect      = 7
	opInvalidSession = 9
	opHello          = 10
	opHeartbeatACK   = 11
)

const gatewayIntents = 1<<9 | // GUILD_MESSAGES
	1<<10 | // GUILD_MESSAGE_REACTIONS
	1<<12 | // DIRECT_MESSAGES
	1<<13 | // DIRECT_MESSAGE_REACTIONS
	1<<15 // MESSAGE_CONTENT

var errGatewayReconnect = fmt.Errorf("discord gateway asked to reconnect")

type gatewayPayload struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d,omitempty"`
	S  int64           `json:"s,omitempty"`
	T  string          `json:"t,omitempty"`
}

type gatewayHello struct {
	HeartbeatInterval int64 `json:"heartbeat_interval"`
}

type gatewayIdentify struct {
	Token      string            `json:"token"`
	Intents    int               `json:"intents"`
	Properties map[string]string `json:"properties"`
}

type gatewayReactionAdd struct {
	UserID    string `json:"user_id"`
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
	Emoji     struct {
		Name string `json:"name"`
	} `json:"emoji"`
}

// gatewayHandler receives dispatched events off the socket.
type gatewayHandler interface {
	onMessageCreate(ctx context.Context, msg *discordMessage)
	onReactionAdd(ctx context.Context, ev *gatewayReactionAdd)
}

// gatewaySession is one websocket connection to the Discord gateway. Run
// blocks until the connection drops or the context ends; the caller owns
// reconnection.
type gatewaySession struct {
	token   string
	handler gatewayHandler
	logger  *slog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
	seq  int64
}

func runGatewaySession(ctx context.Context, gatewayURL, token string, handler gatewayHandler, logger *slog.Logger) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, gatewayURL+"?v=10&encoding=json", nil)
	if err != nil {
		return fmt.Errorf("dial gateway: %w", err)
	}
	s := &gatewaySession{token: token, handler: handler, logger: logger, conn: conn}
	defer func() { _ = conn.Close() }()

	hello, err := s.readHello()
	if err != nil {
		return err
	}
	if err := s.send(gatewayPayload{Op: opIdentify, D: mustJSON(gatewayIdentify{
		Token:   token,
		Intents: gatewayIntents,
		Properties: map[string]string{
			"os":      "linux",
			"browser": "jishaku",
			"device":  "jishaku",
		},
	})}); err != nil {
		return fmt.Errorf("identify: %w", err)
	}

	interval := time.Duration(hello.HeartbeatInterval) * time.Millisecond
	if interval <= 0 {
		interval = 41 * time.Second
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.heartbeatLoop(gctx, interval) })
	g.Go(func() error { return s.readLoop(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		_ = conn.Close()
		return nil
	})
	return g.Wait()
}

func (s *gatewaySession) readHello() (*gatewayHello, error) {
	var payload gatewayPayload
	if err := s.conn.ReadJSON(&payload); err != nil {
		return nil, fmt.Errorf("read hello: %w", err)
	}
	if payload.Op != opHello {
		return nil, fmt.Errorf("expected hello, got op %d", payload.Op)
	}
	var hello gatewayHello
	if err := json.Unmarshal(payload.D, &hello); err != nil {
		return nil, fmt.Errorf("decode hello: %w", err)
	}
	return &hello, nil
}

func (s *gatewaySession) readLoop(ctx context.Context) error {
	for {
		var payload gatewayPayload
		if err := s.conn.ReadJSON(&payload); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("gateway read: %w", err)
		}
		if payload.S > 0 {
			s.mu.Lock()
			s.seq = payload.S
			s.mu.Unlock()
		}
		switch payload.Op {
		case opDispatch:
			s.dispatch(ctx, payload)
		case opHeartbeat:
			_ = s.sendHeartbeat()
		case opHeartbeatACK:
			// nothing to track; a stalled socket surfaces as a read error
		case opReconnect, opInvalidSession:
			return errGatewayReconnect
		}
	}
}

func (s *gatewaySession) dispatch(ctx context.Context, payload gatewayPayload) {
	switch payload.T {
	case "READY":
		var ready struct {
			User discordUser `json:"user"`
		}
		if err := json.Unmarshal(payload.D, &ready); err == nil {
			s.logger.Info("discord_gateway_ready", "username", ready.User.Username, "user_id", ready.User.ID)
		}
	case "MESSAGE_CREATE":
		var msg discordMessage
		if err := json.Unmarshal(payload.D, &msg); err != nil {
			s.logger.Warn("discord_message_decode_error", "error", err.Error())
			return
		}
		s.handler.onMessageCreate(ctx, &msg)
	case "MESSAGE_REACTION_ADD":
		var ev gatewayReactionAdd
		if err := json.Unmarshal(payload.D, &ev); err != nil {
			s.logger.Warn("discord_reaction_decode_error", "error", err.Error())
			return
		}
		s.handler.onReactionAdd(ctx, &ev)
	}
}

func (s *gatewaySession) heartbeatLoop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.sendHeartbeat(); err != nil {
				return fmt.Errorf("heartbeat: %w", err)
			}
		}
	}
}

func (s *gatewaySession) sendHeartbeat() error {
	s.mu.Lock()
	seq := s.seq
	s.mu.Unlock()
	d := json.RawMessage("null")
	if seq > 0 {
		d, _ = json.Marshal(seq)
	}
	return s.send(gatewayPayload{Op: opHeartbeat, D: d})
}

func (s *gatewaySession) send(payload gatewayPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(payload)
}

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
