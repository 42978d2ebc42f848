package clifmt

import (
	"strings"
	"testing"
)

func TestPrintNameDetailTable(t *testing.T) {
	var sb strings.Builder
	PrintNameDetailTable(&sb, NameDetailTableOptions{
		Title:      "Debug commands",
		NameHeader: "COMMAND",
		Rows: []NameDetailRow{
			{Name: "eval", Detail: "Evaluate an expression"},
			{Name: "sh", Detail: "Run a shell command"},
		},
	})
	out := sb.String()
	for _, want := range []string{"Debug commands (2)", "COMMAND", "eval", "Run a shell command"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintNameDetailTableEmpty(t *testing.T) {
	var sb strings.Builder
	PrintNameDetailTable(&sb, NameDetailTableOptions{EmptyText: "No commands registered."})
	if !strings.Contains(sb.String(), "No commands registered.") {
		t.Fatalf("output = %q", sb.String())
	}
}

func TestWrapWordsSplitsLongWord(t *testing.T) {
	lines := wrapWords(strings.Repeat("a", 25), 10)
	if len(lines) != 3 {
		t.Fatalf("lines = %q", lines)
	}
	for _, l := range lines {
		if len(l) > 10 {
			t.Fatalf("line %q over width", l)
		}
	}
}
