package paginator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrClosed is returned when lines are appended to a closed interface.
var ErrClosed = errors.New("paginator interface is closed")

// Event is a page-control action fed in by a frontend.
type Event int

const (
	EventFirst Event = iota
	EventBack
	EventNext
	EventLast
	EventClose
)

// Transport renders pages on a chat platform. SendPage posts the initial
// display message and returns its platform message id; EditPage rewrites it
// in place. withControls=false tells the frontend to drop its paging
// controls (keyboard or reactions) because the interface is done.
type Transport interface {
	SendPage(ctx context.Context, text string, withControls bool) (string, error)
	EditPage(ctx context.Context, messageID, text string, withControls bool) error
}

// Options configure an Interface.
type Options struct {
	// OwnerID gates control events; events from other users are dropped.
	OwnerID string
	// Expiry shuts the interface down after this much idle time.
	Expiry time.Duration
	// RenderInterval is the minimum delay between display edits while
	// lines are streaming in.
	RenderInterval time.Duration
	Logger         *slog.Logger
}

// Interface is a scrollable chat view over a live Paginator. Producers feed
// lines with AddLine while a frontend feeds control events with Submit; the
// display message is edited in place as either side advances.
type Interface struct {
	pag  *Paginator
	tr   Transport
	opts Options

	events chan submittedEvent
	lines  chan string

	closeOnce sync.Once
	closed    chan struct{}

	mu        sync.Mutex
	messageID string
	pageIdx   int
	pinned    bool
}

type submittedEvent struct {
	event  Event
	userID string
}

// NewInterface wraps a paginator for display through tr.
func NewInterface(tr Transport, pag *Paginator, opts Options) *Interface {
	if opts.Expiry <= 0 {
		opts.Expiry = time.Hour
	}
	if opts.RenderInterval <= 0 {
		opts.RenderInterval = 750 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Interface{
		pag:    pag,
		tr:     tr,
		opts:   opts,
		events: make(chan submittedEvent, 16),
		lines:  make(chan string, 64),
		closed: make(chan struct{}),
		pinned: true,
	}
}

// Start sends the first page and runs the interface loop until close, expiry
// or context cancellation.
func (i *Interface) Start(ctx context.Context) error {
	id, err := i.tr.SendPage(ctx, i.render(), true)
	if err != nil {
		return fmt.Errorf("send initial page: %w", err)
	}
	i.mu.Lock()
	i.messageID = id
	i.mu.Unlock()

	go i.loop(ctx)
	return nil
}

// AddLine feeds a produced line into the display.
func (i *Interface) AddLine(ctx context.Context, line string) error {
	select {
	case <-i.closed:
		return ErrClosed
	default:
	}
	select {
	case <-i.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	case i.lines <- line:
		return nil
	}
}

// Submit feeds a control event from a frontend. Events from users other than
// the owner are ignored.
func (i *Interface) Submit(event Event, userID string) {
	if i.opts.OwnerID != "" && userID != i.opts.OwnerID {
		return
	}
	select {
	case i.events <- submittedEvent{event: event, userID: userID}:
	case <-i.closed:
	default:
		// event queue full; stale page flips are droppable
	}
}

// Closed is signalled when the interface is done; producers should stop.
func (i *Interface) Closed() <-chan struct{} {
	return i.closed
}

// IsClosed reports whether the interface has shut down.
func (i *Interface) IsClosed() bool {
	select {
	case <-i.closed:
		return true
	default:
		return false
	}
}

// Close shuts the interface down. Safe to call more than once.
func (i *Interface) Close() {
	i.closeOnce.Do(func() { close(i.closed) })
}

// MessageID reports the platform id of the display message, once sent.
func (i *Interface) MessageID() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.messageID
}

func (i *Interface) loop(ctx context.Context) {
	defer i.finish(ctx)

	expiry := time.NewTimer(i.opts.Expiry)
	defer expiry.Stop()

	render := time.NewTicker(i.opts.RenderInterval)
	defer render.Stop()

	dirty := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-i.closed:
			return
		case <-expiry.C:
			return
		case line := <-i.lines:
			if err := i.pag.AddLine(line); err != nil {
				i.opts.Logger.Warn("paginator_add_line_error", "error", err.Error())
				continue
			}
			dirty = true
		case ev := <-i.events:
			if !expiry.Stop() {
				<-expiry.C
			}
			expiry.Reset(i.opts.Expiry)
			if ev.event == EventClose {
				return
			}
			if i.applyEvent(ev.event) {
				dirty = true
			}
		case <-render.C:
			if !dirty {
				continue
			}
			dirty = false
			i.edit(ctx, true)
		}
	}
}

// applyEvent flips the page index. Next from the last page pins the view so
// freshly appended pages stay in front; any other flip unpins.
func (i *Interface) applyEvent(ev Event) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	last := i.pag.PageCount() - 1
	old := i.pageIdx
	switch ev {
	case EventFirst:
		i.pageIdx = 0
		i.pinned = false
	case EventBack:
		if i.pageIdx > 0 {
			i.pageIdx--
		}
		i.pinned = false
	case EventNext:
		if i.pageIdx < last {
			i.pageIdx++
		}
		i.pinned = i.pageIdx == last
	case EventLast:
		i.pageIdx = last
		i.pinned = true
	}
	return i.pageIdx != old || i.pinned
}

func (i *Interface) render() string {
	i.mu.Lock()
	total := i.pag.PageCount()
	if i.pinned {
		i.pageIdx = total - 1
	}
	if i.pageIdx > total-1 {
		i.pageIdx = total - 1
	}
	idx := i.pageIdx
	i.mu.Unlock()

	page := i.pag.Page(idx)
	if total <= 1 {
		return page
	}
	return fmt.Sprintf("%s\nPage %d/%d", page, idx+1, total)
}

func (i *Interface) edit(ctx context.Context, withControls bool) {
	i.mu.Lock()
	id := i.messageID
	i.mu.Unlock()
	if id == "" {
		return
	}
	if err := i.tr.EditPage(ctx, id, i.render(), withControls); err != nil {
		i.opts.Logger.Warn("paginator_edit_error", "message_id", id, "error", err.Error())
	}
}

// finish drains any buffered lines into the paginator, performs a final
// controls-free edit and marks the interface closed.
func (i *Interface) finish(ctx context.Context) {
	i.Close()
	for {
		select {
		case line := <-i.lines:
			_ = i.pag.AddLine(line)
			continue
		default:
		}
		break
	}
	// Use a fresh context so the final edit still lands on cancellation.
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	i.edit(ctx, false)
}
