package bus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Handler consumes one validated bus message.
type Handler func(ctx context.Context, msg BusMessage) error

// InprocOptions tune the in-process broker.
type InprocOptions struct {
	// MaxInFlight caps concurrent handler invocations. Zero means 8.
	MaxInFlight int
	// DedupeWindow bounds how long idempotency keys are remembered. Zero
	// means 10 minutes.
	DedupeWindow time.Duration
	Logger       *slog.Logger
}

// Inproc is a minimal topic broker for single-binary deployments: publishers
// and subscribers live in the same process, delivery is asynchronous, and
// redelivery with a seen idempotency key is dropped.
type Inproc struct {
	logger *slog.Logger
	sem    chan struct{}
	window time.Duration

	mu       sync.Mutex
	handlers map[string][]Handler
	seen     map[string]time.Time
	closed   bool
	wg       sync.WaitGroup
}

// StartInproc builds a running broker.
func StartInproc(opts InprocOptions) *Inproc {
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = 8
	}
	if opts.DedupeWindow <= 0 {
		opts.DedupeWindow = 10 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Inproc{
		logger:   opts.Logger,
		sem:      make(chan struct{}, opts.MaxInFlight),
		window:   opts.DedupeWindow,
		handlers: make(map[string][]Handler),
		seen:     make(map[string]time.Time),
	}
}

// Subscribe registers a handler for a topic. All handlers for a topic see
// every message published to it.
func (b *Inproc) Subscribe(topic string, h Handler) error {
	if !topicPattern.MatchString(topic) {
		return fmt.Errorf("topic is invalid")
	}
	if h == nil {
		return fmt.Errorf("handler is required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("bus is closed")
	}
	b.handlers[topic] = append(b.handlers[topic], h)
	return nil
}

// Publish validates and dispatches a message to the topic's handlers. A
// message whose idempotency key was seen within the dedupe window is dropped
// silently.
func (b *Inproc) Publish(ctx context.Context, msg BusMessage) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("bus is closed")
	}
	now := time.Now()
	b.pruneSeenLocked(now)
	dedupeKey := msg.Topic + "\x00" + msg.IdempotencyKey
	if _, dup := b.seen[dedupeKey]; dup {
		b.mu.Unlock()
		b.logger.Debug("bus_duplicate_dropped", "topic", msg.Topic, "idempotency_key", msg.IdempotencyKey)
		return nil
	}
	b.seen[dedupeKey] = now
	handlers := make([]Handler, len(b.handlers[msg.Topic]))
	copy(handlers, b.handlers[msg.Topic])
	b.mu.Unlock()

	if len(handlers) == 0 {
		b.logger.Warn("bus_no_subscribers", "topic", msg.Topic)
		return nil
	}

	for _, h := range handlers {
		h := h
		select {
		case b.sem <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			defer func() { <-b.sem }()
			if err := h(ctx, msg); err != nil {
				b.logger.Warn("bus_handler_error", "topic", msg.Topic, "message_id", msg.ID, "error", err.Error())
			}
		}()
	}
	return nil
}

// Close stops accepting messages and waits for in-flight handlers.
func (b *Inproc) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.wg.Wait()
}

func (b *Inproc) pruneSeenLocked(now time.Time) {
	for k, at := range b.seen {
		if now.Sub(at) > b.window {
			delete(b.seen, k)
		}
	}
}

// NewInbound wraps a chat message as an inbound debug command bus message.
func NewInbound(channel Channel, conversationKey string, env DebugEnvelope) (BusMessage, error) {
	payload, err := EncodeDebugEnvelope(env)
	if err != nil {
		return BusMessage{}, err
	}
	return BusMessage{
		ID:              uuid.NewString(),
		Direction:       DirectionInbound,
		Channel:         channel,
		Topic:           TopicDebugCommandV1,
		ConversationKey: conversationKey,
		IdempotencyKey:  fmt.Sprintf("%s:%s", conversationKey, env.MessageID),
		CorrelationID:   env.MessageID,
		ContentType:     "application/json",
		PayloadBase64:   payload,
		CreatedAt:       time.Now().UTC(),
	}, nil
}

// NewOutbound wraps rendered debug output for delivery back to a frontend.
func NewOutbound(channel Channel, conversationKey, correlationID string, env DebugEnvelope) (BusMessage, error) {
	payload, err := EncodeDebugEnvelope(env)
	if err != nil {
		return BusMessage{}, err
	}
	id := uuid.NewString()
	return BusMessage{
		ID:              id,
		Direction:       DirectionOutbound,
		Channel:         channel,
		Topic:           TopicDebugOutputV1,
		ConversationKey: conversationKey,
		IdempotencyKey:  id,
		CorrelationID:   correlationID,
		ContentType:     "application/json",
		PayloadBase64:   payload,
		CreatedAt:       time.Now().UTC(),
	}, nil
}
