package guard

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dolfies/jishaku/feature"
)

func TestGuardAllowed(t *testing.T) {
	g, err := New(Config{Owners: []string{"42", "7"}}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if !g.Allowed("42") || !g.Allowed("7") {
		t.Fatal("configured owners should be allowed")
	}
	if g.Allowed("99") {
		t.Fatal("unknown user should be denied")
	}
}

func TestGuardRecordsAuditTrail(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.jsonl")
	g, err := New(Config{Owners: []string{"42"}, Audit: AuditConfig{JSONLPath: path}}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	g.Record(context.Background(), feature.AuditEvent{
		At:        time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
		Command:   "eval",
		Args:      "`1+1`",
		ChannelID: "chan1",
		AuthorID:  "42",
		Allowed:   true,
		OK:        true,
	})
	g.Record(context.Background(), feature.AuditEvent{
		At:        time.Date(2026, 8, 30, 10, 1, 0, 0, time.UTC),
		Command:   "sh",
		ChannelID: "chan1",
		AuthorID:  "99",
		Allowed:   false,
	})
	if err := g.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open trail: %v", err)
	}
	defer f.Close()

	var events []feature.AuditEvent
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e feature.AuditEvent
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("bad jsonl line %q: %v", sc.Text(), err)
		}
		events = append(events, e)
	}
	if len(events) != 2 {
		t.Fatalf("trail has %d events, want 2", len(events))
	}
	if events[0].Command != "eval" || !events[0].Allowed {
		t.Fatalf("first event mismatch: %+v", events[0])
	}
	if events[1].AuthorID != "99" || events[1].Allowed {
		t.Fatalf("second event mismatch: %+v", events[1])
	}
}
