package reactor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dolfies/jishaku/repl"
	"github.com/dolfies/jishaku/shell"
)

type fakeNotifier struct {
	mu        sync.Mutex
	reactions []Reaction
	reports   []string
	dests     []Destination
}

func (f *fakeNotifier) React(ctx context.Context, r Reaction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reactions = append(f.reactions, r)
}

func (f *fakeNotifier) SendReport(ctx context.Context, dest Destination, report string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dests = append(f.dests, dest)
	f.reports = append(f.reports, report)
	return nil
}

func (f *fakeNotifier) lastReaction(t *testing.T) Reaction {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.reactions) == 0 {
		t.Fatal("no reactions recorded")
	}
	return f.reactions[len(f.reactions)-1]
}

func TestRunSuccess(t *testing.T) {
	n := &fakeNotifier{}
	r := New(n, Options{})
	if err := r.Run(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Fatal(err)
	}
	if got := n.lastReaction(t); got != ReactionDone {
		t.Fatalf("reaction=%v, want done", got)
	}
	if len(n.reports) != 0 {
		t.Fatalf("unexpected reports: %v", n.reports)
	}
}

func TestRunWorkingReactionAfterDelay(t *testing.T) {
	n := &fakeNotifier{}
	r := New(n, Options{WorkingDelay: 20 * time.Millisecond})
	_ = r.Run(context.Background(), func(ctx context.Context) error {
		time.Sleep(100 * time.Millisecond)
		return nil
	})
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.reactions) != 2 || n.reactions[0] != ReactionWorking || n.reactions[1] != ReactionDone {
		t.Fatalf("reactions=%v, want [working done]", n.reactions)
	}
}

func TestRunFastCommandSkipsWorkingReaction(t *testing.T) {
	n := &fakeNotifier{}
	r := New(n, Options{WorkingDelay: time.Second})
	_ = r.Run(context.Background(), func(context.Context) error { return nil })
	time.Sleep(20 * time.Millisecond)
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.reactions) != 1 || n.reactions[0] != ReactionDone {
		t.Fatalf("reactions=%v, want [done]", n.reactions)
	}
}

func TestRunSyntaxErrorReportsToChannel(t *testing.T) {
	n := &fakeNotifier{}
	r := New(n, Options{})
	wrapped := fmt.Errorf("%w: unexpected token", repl.ErrSyntax)
	err := r.Run(context.Background(), func(context.Context) error { return wrapped })
	if !errors.Is(err, repl.ErrSyntax) {
		t.Fatalf("err=%v", err)
	}
	if got := n.lastReaction(t); got != ReactionSyntax {
		t.Fatalf("reaction=%v, want syntax", got)
	}
	if len(n.dests) != 1 || n.dests[0] != DestChannel {
		t.Fatalf("dests=%v, want [channel]", n.dests)
	}
}

func TestRunTimeoutClassification(t *testing.T) {
	for _, cause := range []error{context.DeadlineExceeded, context.Canceled, shell.ErrIdleTimeout} {
		n := &fakeNotifier{}
		r := New(n, Options{})
		_ = r.Run(context.Background(), func(context.Context) error {
			return fmt.Errorf("run: %w", cause)
		})
		if got := n.lastReaction(t); got != ReactionTimeout {
			t.Fatalf("cause %v: reaction=%v, want timeout", cause, got)
		}
		if n.dests[0] != DestChannel {
			t.Fatalf("cause %v: dest=%v, want channel", cause, n.dests[0])
		}
	}
}

func TestRunFaultGoesVerboseToOwner(t *testing.T) {
	n := &fakeNotifier{}
	r := New(n, Options{})
	inner := errors.New("inner cause")
	_ = r.Run(context.Background(), func(context.Context) error {
		return fmt.Errorf("outer context: %w", inner)
	})
	if got := n.lastReaction(t); got != ReactionFault {
		t.Fatalf("reaction=%v, want fault", got)
	}
	if len(n.dests) != 1 || n.dests[0] != DestOwner {
		t.Fatalf("dests=%v, want [owner]", n.dests)
	}
	if !strings.Contains(n.reports[0], "outer context") || !strings.Contains(n.reports[0], "inner cause") {
		t.Fatalf("verbose report missing chain: %q", n.reports[0])
	}
}

func TestRunRecoversPanics(t *testing.T) {
	n := &fakeNotifier{}
	r := New(n, Options{})
	err := r.Run(context.Background(), func(context.Context) error {
		panic("kaboom")
	})
	var pe *repl.PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("err=%v, want PanicError", err)
	}
	if got := n.lastReaction(t); got != ReactionFault {
		t.Fatalf("reaction=%v, want fault", got)
	}
}

func TestFormatVerboseIncludesStack(t *testing.T) {
	err := &repl.PanicError{Value: "boom", Stack: []byte("goroutine 1 [running]:\nmain.main()")}
	out := FormatVerbose(err)
	if !strings.Contains(out, "panic: boom") || !strings.Contains(out, "goroutine 1") {
		t.Fatalf("out=%q", out)
	}
}
