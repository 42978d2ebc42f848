// Package reactor wraps the execution of one debug command against its
// triggering chat message: progress and outcome reactions on the message,
// and error reports routed to the channel or the bot owner.
package reactor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dolfies/jishaku/repl"
	"github.com/dolfies/jishaku/shell"
)

// Reaction is an abstract outcome marker; frontends map it to the emoji
// palette their platform permits.
type Reaction int

const (
	// ReactionWorking marks a command still running after the grace delay.
	ReactionWorking Reaction = iota
	// ReactionDone marks success.
	ReactionDone
	// ReactionSyntax marks unparsable input.
	ReactionSyntax
	// ReactionTimeout marks a timed-out or cancelled run.
	ReactionTimeout
	// ReactionFault marks any other failure.
	ReactionFault
)

// Destination selects where an error report goes.
type Destination int

const (
	// DestChannel replies in the channel the command came from.
	DestChannel Destination = iota
	// DestOwner delivers to the bot owner's DM, falling back to the
	// channel when no DM route exists.
	DestOwner
)

// Notifier is the platform surface the reactor talks to. React is
// best-effort; failures to attach reactions are swallowed.
type Notifier interface {
	React(ctx context.Context, r Reaction)
	SendReport(ctx context.Context, dest Destination, report string) error
}

// Options tune a Reactor.
type Options struct {
	// WorkingDelay is how long a command may run before the working
	// reaction is attached. Zero means 2s.
	WorkingDelay time.Duration
}

// Reactor runs commands under reaction/report supervision.
type Reactor struct {
	notifier Notifier
	delay    time.Duration
}

// New returns a reactor over the given notifier.
func New(notifier Notifier, opts Options) *Reactor {
	delay := opts.WorkingDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}
	return &Reactor{notifier: notifier, delay: delay}
}

// Run executes fn. The triggering message is reacted to according to the
// outcome, and failures are reported: syntax errors and timeouts briefly to
// the channel, anything else verbosely to the owner. The original error is
// returned for logging; it has already been reported to chat.
func (r *Reactor) Run(ctx context.Context, fn func(context.Context) error) error {
	stop := make(chan struct{})
	go func() {
		timer := time.NewTimer(r.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
			r.notifier.React(ctx, ReactionWorking)
		case <-stop:
		case <-ctx.Done():
		}
	}()

	err := runRecovered(ctx, fn)
	close(stop)

	if err == nil {
		r.notifier.React(ctx, ReactionDone)
		return nil
	}

	// Reports must land even when the failure was the context dying.
	reportCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		reportCtx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
	}

	switch classify(err) {
	case ReactionSyntax:
		r.notifier.React(reportCtx, ReactionSyntax)
		r.report(reportCtx, DestChannel, FormatShort(err))
	case ReactionTimeout:
		r.notifier.React(reportCtx, ReactionTimeout)
		r.report(reportCtx, DestChannel, FormatShort(err))
	default:
		r.notifier.React(reportCtx, ReactionFault)
		r.report(reportCtx, DestOwner, FormatVerbose(err))
	}
	return err
}

func (r *Reactor) report(ctx context.Context, dest Destination, report string) {
	_ = r.notifier.SendReport(ctx, dest, report)
}

func runRecovered(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &repl.PanicError{Value: rec}
		}
	}()
	return fn(ctx)
}

func classify(err error) Reaction {
	switch {
	case errors.Is(err, repl.ErrSyntax):
		return ReactionSyntax
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, shell.ErrIdleTimeout):
		return ReactionTimeout
	default:
		return ReactionFault
	}
}

// FormatShort renders the last frame only: the error message itself.
func FormatShort(err error) string {
	return err.Error()
}

// FormatVerbose renders the whole cause chain, newest first, plus the
// goroutine stack when the failure was a recovered panic.
func FormatVerbose(err error) string {
	var b strings.Builder
	depth := 0
	for e := err; e != nil; e = errors.Unwrap(e) {
		fmt.Fprintf(&b, "%*s%s\n", depth*2, "", e.Error())
		depth++
	}

	var pe *repl.PanicError
	if errors.As(err, &pe) && len(pe.Stack) > 0 {
		b.WriteString("\n")
		b.Write(pe.Stack)
	}
	return strings.TrimRight(b.String(), "\n")
}
