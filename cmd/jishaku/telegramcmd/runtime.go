// Package telegramcmd runs the debug feature against the Telegram Bot API:
// long-poll ingestion, bus-backed dispatch through a worker pool, and a chat
// transport with inline-keyboard paginator controls.
package telegramcmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dolfies/jishaku/feature"
	busruntime "github.com/dolfies/jishaku/internal/bus"
	tgadapter "github.com/dolfies/jishaku/internal/bus/adapters/telegram"
	"github.com/dolfies/jishaku/internal/worker"
	"github.com/dolfies/jishaku/paginator"
)

// Options wire a Runtime.
type Options struct {
	Token   string
	BaseURL string
	// PollTimeout is the getUpdates long-poll window.
	PollTimeout time.Duration
	// MaxConcurrency caps commands executing at once.
	MaxConcurrency int
	// PageSize bounds outbound message length.
	PageSize int
	// ReactionsEnabled toggles outcome reactions on triggering messages.
	ReactionsEnabled bool
	// Owners are the user ids allowed to run debug commands; the first one
	// is also the DM target for verbose fault reports.
	Owners []string
	// AllowedChats restricts which chats are ingested at all. Empty means
	// every chat.
	AllowedChats []int64

	Runner     *feature.Runner
	Logger     *slog.Logger
	HTTPClient *http.Client
}

// Runtime is the Telegram frontend loop.
type Runtime struct {
	api    *telegramAPI
	runner *feature.Runner
	logger *slog.Logger
	opts   Options

	broker       *busruntime.Inproc
	pool         *worker.Pool[busruntime.BusMessage]
	allowedChats map[int64]bool

	mu     sync.Mutex
	ifaces map[string]*paginator.Interface // display message id -> interface
	me     *telegramUser
}

// NewRuntime builds a Runtime. Run does the network work.
func NewRuntime(opts Options) (*Runtime, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}
	if opts.Runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if strings.TrimSpace(opts.BaseURL) == "" {
		opts.BaseURL = "https://api.telegram.org"
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 30 * time.Second
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 3
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 3500
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	rt := &Runtime{
		api:    newTelegramAPI(opts.HTTPClient, opts.BaseURL, opts.Token),
		runner: opts.Runner,
		logger: opts.Logger,
		opts:   opts,
		ifaces: make(map[string]*paginator.Interface),
	}
	if len(opts.AllowedChats) > 0 {
		rt.allowedChats = make(map[int64]bool, len(opts.AllowedChats))
		for _, id := range opts.AllowedChats {
			rt.allowedChats[id] = true
		}
	}
	return rt, nil
}

// chatAllowed applies the allow-list; an empty list admits every chat.
func (rt *Runtime) chatAllowed(chatID int64) bool {
	return rt.allowedChats == nil || rt.allowedChats[chatID]
}

// Stats contributes frontend lines to the jsk summary.
func (rt *Runtime) Stats() []string {
	rt.mu.Lock()
	me := rt.me
	open := len(rt.ifaces)
	rt.mu.Unlock()

	lines := []string{"Frontend: Telegram long-poll"}
	if me != nil {
		lines = append(lines, fmt.Sprintf("Logged in as @%s (%d)", me.Username, me.ID))
	}
	if open > 0 {
		lines = append(lines, fmt.Sprintf("%d open paginator(s)", open))
	}
	return lines
}

// Run polls Telegram until the context ends. Inbound messages flow through
// the debug command topic into a bounded worker pool; rendered output flows
// back out through the debug output topic.
func (rt *Runtime) Run(ctx context.Context) error {
	me, err := rt.api.getMe(ctx)
	if err != nil {
		return fmt.Errorf("getMe: %w", err)
	}
	rt.mu.Lock()
	rt.me = me
	rt.mu.Unlock()
	rt.logger.Info("telegram_connected", "username", me.Username, "user_id", me.ID)

	rt.broker = busruntime.StartInproc(busruntime.InprocOptions{
		MaxInFlight: rt.opts.MaxConcurrency * 2,
		Logger:      rt.logger,
	})
	defer rt.broker.Close()

	pool, err := worker.Start(ctx, worker.Options[busruntime.BusMessage]{
		Workers: rt.opts.MaxConcurrency,
		Handle:  rt.handleCommandMessage,
		Logger:  rt.logger,
	})
	if err != nil {
		return err
	}
	defer pool.Stop()
	rt.pool = pool

	if err := rt.broker.Subscribe(busruntime.TopicDebugCommandV1, func(ctx context.Context, msg busruntime.BusMessage) error {
		return rt.pool.Enqueue(ctx, msg)
	}); err != nil {
		return err
	}

	delivery, err := tgadapter.NewDeliveryAdapter(func(ctx context.Context, chatID int64, text string) error {
		_, err := rt.api.sendMessage(ctx, telegramSendMessageRequest{
			ChatID:                chatID,
			Text:                  text,
			ParseMode:             "MarkdownV2",
			DisableWebPagePreview: true,
		})
		return err
	})
	if err != nil {
		return err
	}
	if err := rt.broker.Subscribe(busruntime.TopicDebugOutputV1, delivery.Deliver); err != nil {
		return err
	}

	var offset int64
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		updates, next, err := rt.api.getUpdates(ctx, offset, rt.opts.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if isTelegramPollTimeoutError(err) {
				continue
			}
			rt.logger.Warn("telegram_poll_error", "error", err.Error())
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(3 * time.Second):
			}
			continue
		}
		offset = next
		for _, u := range updates {
			rt.handleUpdate(ctx, u)
		}
	}
}

func (rt *Runtime) handleUpdate(ctx context.Context, u telegramUpdate) {
	switch {
	case u.CallbackQuery != nil:
		rt.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil:
		rt.handleInbound(ctx, u.Message)
	}
}

func (rt *Runtime) handleInbound(ctx context.Context, msg *telegramMessage) {
	if msg.Chat == nil || msg.From == nil || msg.From.IsBot {
		return
	}
	if !rt.chatAllowed(msg.Chat.ID) {
		rt.logger.Debug("telegram_chat_not_allowed", "chat_id", msg.Chat.ID)
		return
	}
	if strings.TrimSpace(msg.Text) == "" {
		return
	}
	in := tgadapter.InboundMessage{
		ChatID:       msg.Chat.ID,
		MessageID:    msg.MessageID,
		SentAt:       time.Unix(msg.Date, 0),
		FromUserID:   msg.From.ID,
		FromUsername: msg.From.Username,
		Text:         msg.Text,
	}
	if msg.ReplyTo != nil {
		in.ReplyToMessageID = msg.ReplyTo.MessageID
	}
	bm, err := tgadapter.ToBusMessage(in)
	if err != nil {
		rt.logger.Warn("telegram_inbound_invalid", "chat_id", msg.Chat.ID, "error", err.Error())
		return
	}
	if err := rt.broker.Publish(ctx, bm); err != nil {
		rt.logger.Warn("telegram_inbound_publish_error", "chat_id", msg.Chat.ID, "error", err.Error())
	}
}

// handleCommandMessage runs on the worker pool: unwrap the bus message and
// dispatch it through the feature runner.
func (rt *Runtime) handleCommandMessage(ctx context.Context, bm busruntime.BusMessage) {
	in, err := tgadapter.FromBusMessage(bm)
	if err != nil {
		rt.logger.Warn("telegram_bus_decode_error", "message_id", bm.ID, "error", err.Error())
		return
	}
	fm := feature.Message{
		ID:         strconv.FormatInt(in.MessageID, 10),
		ChannelID:  strconv.FormatInt(in.ChatID, 10),
		AuthorID:   strconv.FormatInt(in.FromUserID, 10),
		AuthorName: in.FromUsername,
		Text:       in.Text,
		SentAt:     in.SentAt,
	}
	tr := &chatTransport{rt: rt, chatID: in.ChatID, messageID: in.MessageID, authorID: fm.AuthorID}
	if _, err := rt.runner.Dispatch(ctx, fm, tr); err != nil {
		// already reported to chat by the reactor
		rt.logger.Debug("telegram_dispatch_error", "chat_id", in.ChatID, "error", err.Error())
	}
}

// Paginator controls travel as callback data on the display message's inline
// keyboard.
const (
	callbackFirst = "pg:first"
	callbackBack  = "pg:back"
	callbackNext  = "pg:next"
	callbackLast  = "pg:last"
	callbackClose = "pg:close"
)

func paginatorKeyboard() *telegramInlineKeyboardMarkup {
	return &telegramInlineKeyboardMarkup{
		InlineKeyboard: [][]telegramInlineKeyboardButton{{
			{Text: "⏮", CallbackData: callbackFirst},
			{Text: "◀", CallbackData: callbackBack},
			{Text: "▶", CallbackData: callbackNext},
			{Text: "⏭", CallbackData: callbackLast},
			{Text: "✖", CallbackData: callbackClose},
		}},
	}
}

func (rt *Runtime) handleCallback(ctx context.Context, cq *telegramCallbackQuery) {
	defer func() {
		if err := rt.api.answerCallbackQuery(ctx, cq.ID, ""); err != nil {
			rt.logger.Debug("telegram_callback_answer_error", "error", err.Error())
		}
	}()
	if cq.Message == nil || cq.Message.Chat == nil || cq.From == nil {
		return
	}
	key := displayKey(cq.Message.Chat.ID, cq.Message.MessageID)
	rt.mu.Lock()
	iface := rt.ifaces[key]
	rt.mu.Unlock()
	if iface == nil {
		return
	}
	userID := strconv.FormatInt(cq.From.ID, 10)
	switch cq.Data {
	case callbackFirst:
		iface.Submit(paginator.EventFirst, userID)
	case callbackBack:
		iface.Submit(paginator.EventBack, userID)
	case callbackNext:
		iface.Submit(paginator.EventNext, userID)
	case callbackLast:
		iface.Submit(paginator.EventLast, userID)
	case callbackClose:
		iface.Submit(paginator.EventClose, userID)
	}
}

func (rt *Runtime) trackInterface(key string, iface *paginator.Interface) {
	rt.mu.Lock()
	rt.ifaces[key] = iface
	rt.mu.Unlock()
	go func() {
		<-iface.Closed()
		rt.mu.Lock()
		delete(rt.ifaces, key)
		rt.mu.Unlock()
	}()
}

func displayKey(chatID, messageID int64) string {
	return fmt.Sprintf("%d:%d", chatID, messageID)
}
