package paginator

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeTransport struct {
	mu       sync.Mutex
	sent     []string
	edits    []string
	controls []bool
}

func (f *fakeTransport) SendPage(ctx context.Context, text string, withControls bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	f.controls = append(f.controls, withControls)
	return "m1", nil
}

func (f *fakeTransport) EditPage(ctx context.Context, messageID, text string, withControls bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, text)
	f.controls = append(f.controls, withControls)
	return nil
}

func (f *fakeTransport) lastEdit() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.edits) == 0 {
		return "", false
	}
	return f.edits[len(f.edits)-1], true
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func newTestInterface(t *testing.T, tr Transport, maxPageSize int) *Interface {
	t.Helper()
	pag := New("```", "```", maxPageSize)
	iface := NewInterface(tr, pag, Options{
		OwnerID:        "owner",
		Expiry:         time.Minute,
		RenderInterval: 10 * time.Millisecond,
	})
	return iface
}

func TestInterfaceStreamsAndPinsToLastPage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tr := &fakeTransport{}
	iface := newTestInterface(t, tr, 60)
	if err := iface.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer iface.Close()

	for i := 0; i < 12; i++ {
		if err := iface.AddLine(ctx, "line line line line"); err != nil {
			t.Fatal(err)
		}
	}

	waitFor(t, func() bool {
		last, ok := tr.lastEdit()
		return ok && strings.Contains(last, "Page ")
	})

	last, _ := tr.lastEdit()
	// Pinned view must be on the final page.
	if !strings.Contains(last, "Page ") {
		t.Fatalf("expected page footer, got %q", last)
	}
	parts := strings.Split(last, "Page ")
	nums := strings.Split(strings.TrimSpace(parts[len(parts)-1]), "/")
	if len(nums) != 2 || nums[0] != nums[1] {
		t.Fatalf("expected pinned last page, footer was %q", parts[len(parts)-1])
	}
}

func TestInterfaceIgnoresNonOwnerEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tr := &fakeTransport{}
	iface := newTestInterface(t, tr, 60)
	if err := iface.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer iface.Close()

	iface.Submit(EventClose, "stranger")
	time.Sleep(50 * time.Millisecond)
	if iface.IsClosed() {
		t.Fatal("close event from non-owner was applied")
	}

	iface.Submit(EventClose, "owner")
	waitFor(t, iface.IsClosed)
}

func TestInterfaceCloseRejectsNewLines(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tr := &fakeTransport{}
	iface := newTestInterface(t, tr, 60)
	if err := iface.Start(ctx); err != nil {
		t.Fatal(err)
	}

	iface.Close()
	waitFor(t, iface.IsClosed)
	if err := iface.AddLine(ctx, "late"); err != ErrClosed {
		t.Fatalf("AddLine after close: err=%v, want ErrClosed", err)
	}
}

func TestInterfaceBackUnpins(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tr := &fakeTransport{}
	iface := newTestInterface(t, tr, 60)
	if err := iface.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer iface.Close()

	for i := 0; i < 12; i++ {
		if err := iface.AddLine(ctx, "line line line line"); err != nil {
			t.Fatal(err)
		}
	}
	waitFor(t, func() bool {
		last, ok := tr.lastEdit()
		return ok && strings.Contains(last, "Page ")
	})

	iface.Submit(EventFirst, "owner")
	waitFor(t, func() bool {
		last, ok := tr.lastEdit()
		return ok && strings.Contains(last, "Page 1/")
	})

	// More lines must not move the view off page one.
	if err := iface.AddLine(ctx, "more more more more"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	last, _ := tr.lastEdit()
	if !strings.Contains(last, "Page 1/") {
		t.Fatalf("view moved off page one: %q", last)
	}
}
