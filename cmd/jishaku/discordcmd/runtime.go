// Package discordcmd runs the debug feature against Discord: a gateway
// websocket for ingestion, bus-backed dispatch through a worker pool, and a
// chat transport with reaction-based paginator controls.
package discordcmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dolfies/jishaku/feature"
	busruntime "github.com/dolfies/jishaku/internal/bus"
	dcadapter "github.com/dolfies/jishaku/internal/bus/adapters/discord"
	"github.com/dolfies/jishaku/internal/worker"
	"github.com/dolfies/jishaku/paginator"
)

// Options wire a Runtime.
type Options struct {
	Token   string
	BaseURL string
	// MaxConcurrency caps commands executing at once.
	MaxConcurrency int
	// PageSize bounds outbound message length.
	PageSize int
	// Owners are the user ids allowed to run debug commands; the first one
	// is also the DM target for verbose fault reports.
	Owners []string
	// AllowedChannels restricts which channels are ingested at all. Empty
	// means every channel.
	AllowedChannels []string
	UserAgent       string

	Runner     *feature.Runner
	Logger     *slog.Logger
	HTTPClient *http.Client
}

// Runtime is the Discord frontend loop.
type Runtime struct {
	api    *discordAPI
	runner *feature.Runner
	logger *slog.Logger
	opts   Options

	broker          *busruntime.Inproc
	pool            *worker.Pool[busruntime.BusMessage]
	allowedChannels map[string]bool

	mu     sync.Mutex
	ifaces map[string]*paginator.Interface // channelID:messageID -> interface
	me     *discordUser
}

// NewRuntime builds a Runtime. Run does the network work.
func NewRuntime(opts Options) (*Runtime, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, fmt.Errorf("discord bot token is required")
	}
	if opts.Runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if strings.TrimSpace(opts.BaseURL) == "" {
		opts.BaseURL = "https://discord.com/api/v10"
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 3
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 1900
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	rt := &Runtime{
		api:    newDiscordAPI(opts.HTTPClient, opts.BaseURL, opts.Token, opts.UserAgent),
		runner: opts.Runner,
		logger: opts.Logger,
		opts:   opts,
		ifaces: make(map[string]*paginator.Interface),
	}
	if len(opts.AllowedChannels) > 0 {
		rt.allowedChannels = make(map[string]bool, len(opts.AllowedChannels))
		for _, id := range opts.AllowedChannels {
			rt.allowedChannels[id] = true
		}
	}
	return rt, nil
}

// channelAllowed applies the allow-list; an empty list admits every channel.
func (rt *Runtime) channelAllowed(channelID string) bool {
	return rt.allowedChannels == nil || rt.allowedChannels[channelID]
}

// Stats contributes frontend lines to the jsk summary.
func (rt *Runtime) Stats() []string {
	rt.mu.Lock()
	me := rt.me
	open := len(rt.ifaces)
	rt.mu.Unlock()

	lines := []string{"Frontend: Discord gateway"}
	if me != nil {
		lines = append(lines, fmt.Sprintf("Logged in as %s (%s)", me.Username, me.ID))
	}
	if open > 0 {
		lines = append(lines, fmt.Sprintf("%d open paginator(s)", open))
	}
	return lines
}

// Run connects to the gateway and serves until the context ends, redialing
// with backoff when the socket drops.
func (rt *Runtime) Run(ctx context.Context) error {
	me, err := rt.api.getCurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("get current user: %w", err)
	}
	rt.mu.Lock()
	rt.me = me
	rt.mu.Unlock()
	rt.logger.Info("discord_connected", "username", me.Username, "user_id", me.ID)

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

	delivery, err := dcadapter.NewDeliveryAdapter(func(ctx context.Context, channelID, text string) error {
		_, err := rt.api.createMessage(ctx, channelID, text, "")
		return err
	})
	if err != nil {
		return err
	}
	if err := rt.broker.Subscribe(busruntime.TopicDebugOutputV1, delivery.Deliver); err != nil {
		return err
	}

	backoff := time.Second
	for {
		gatewayURL, err := rt.api.getGatewayURL(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			rt.logger.Warn("discord_gateway_url_error", "error", err.Error())
		} else {
			err = runGatewaySession(ctx, gatewayURL, rt.opts.Token, rt, rt.logger)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			rt.logger.Warn("discord_gateway_dropped", "error", err.Error())
			backoff = time.Second
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

// onMessageCreate ingests a chat message onto the debug command topic.
func (rt *Runtime) onMessageCreate(ctx context.Context, msg *discordMessage) {
	if msg.Author == nil || msg.Author.Bot {
		return
	}
	if !rt.channelAllowed(msg.ChannelID) {
		rt.logger.Debug("discord_channel_not_allowed", "channel_id", msg.ChannelID)
		return
	}
	if strings.TrimSpace(msg.Content) == "" {
		return
	}
	sentAt, _ := time.Parse(time.RFC3339, msg.Timestamp)
	in := dcadapter.InboundMessage{
		ChannelID:  msg.ChannelID,
		MessageID:  msg.ID,
		SentAt:     sentAt,
		AuthorID:   msg.Author.ID,
		AuthorName: msg.Author.Username,
		Text:       msg.Content,
	}
	if msg.ReferencedMessage != nil {
		in.ReplyToID = msg.ReferencedMessage.ID
	}
	bm, err := dcadapter.ToBusMessage(in)
	if err != nil {
		rt.logger.Warn("discord_inbound_invalid", "channel_id", msg.ChannelID, "error", err.Error())
		return
	}
	if err := rt.broker.Publish(ctx, bm); err != nil {
		rt.logger.Warn("discord_inbound_publish_error", "channel_id", msg.ChannelID, "error", err.Error())
	}
}

// onReactionAdd routes paginator control reactions to their interface.
func (rt *Runtime) onReactionAdd(ctx context.Context, ev *gatewayReactionAdd) {
	rt.mu.Lock()
	me := rt.me
	iface := rt.ifaces[ev.ChannelID+":"+ev.MessageID]
	rt.mu.Unlock()
	if iface == nil {
		return
	}
	if me != nil && ev.UserID == me.ID {
		return
	}
	event, ok := controlEvent(ev.Emoji.Name)
	if !ok {
		return
	}
	iface.Submit(event, ev.UserID)
	// keep the control reaction armed for the next press
	if err := rt.api.deleteUserReaction(ctx, ev.ChannelID, ev.MessageID, ev.Emoji.Name, ev.UserID); err != nil {
		rt.logger.Debug("discord_reaction_reset_error", "error", err.Error())
	}
}

// handleCommandMessage runs on the worker pool: unwrap the bus message and
// dispatch it through the feature runner.
func (rt *Runtime) handleCommandMessage(ctx context.Context, bm busruntime.BusMessage) {
	in, err := dcadapter.FromBusMessage(bm)
	if err != nil {
		rt.logger.Warn("discord_bus_decode_error", "message_id", bm.ID, "error", err.Error())
		return
	}
	fm := feature.Message{
		ID:         in.MessageID,
		ChannelID:  in.ChannelID,
		AuthorID:   in.AuthorID,
		AuthorName: in.AuthorName,
		Text:       in.Text,
		SentAt:     in.SentAt,
	}
	tr := &chatTransport{rt: rt, channelID: in.ChannelID, messageID: in.MessageID, authorID: in.AuthorID}
	if _, err := rt.runner.Dispatch(ctx, fm, tr); err != nil {
		// already reported to chat by the reactor
		rt.logger.Debug("discord_dispatch_error", "channel_id", in.ChannelID, "error", err.Error())
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
