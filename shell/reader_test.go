package shell

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func drain(t *testing.T, r *Reader) []string {
	t.Helper()
	var out []string
	deadline := time.After(15 * time.Second)
	for {
		select {
		case line, ok := <-r.Lines():
			if !ok {
				return out
			}
			out = append(out, line)
		case <-deadline:
			t.Fatal("timed out draining shell output")
		}
	}
}

func TestReaderStreamsStdout(t *testing.T) {
	r, err := Start(context.Background(), "echo one; echo two", Options{})
	if err != nil {
		t.Fatal(err)
	}
	lines := drain(t, r)
	if len(lines) != 2 || lines[0] != "one" || lines[1] != "two" {
		t.Fatalf("lines=%v", lines)
	}
	if r.ExitCode() != 0 {
		t.Fatalf("exit=%d", r.ExitCode())
	}
	if r.Err() != nil {
		t.Fatalf("err=%v", r.Err())
	}
}

func TestReaderPrefixesStderr(t *testing.T) {
	r, err := Start(context.Background(), "echo out; echo err 1>&2", Options{})
	if err != nil {
		t.Fatal(err)
	}
	lines := drain(t, r)
	var sawOut, sawErr bool
	for _, l := range lines {
		switch l {
		case "out":
			sawOut = true
		case "[stderr] err":
			sawErr = true
		}
	}
	if !sawOut || !sawErr {
		t.Fatalf("lines=%v", lines)
	}
}

func TestReaderReportsExitCode(t *testing.T) {
	r, err := Start(context.Background(), "exit 3", Options{})
	if err != nil {
		t.Fatal(err)
	}
	drain(t, r)
	if r.ExitCode() != 3 {
		t.Fatalf("exit=%d, want 3", r.ExitCode())
	}
}

func TestReaderIdleTimeout(t *testing.T) {
	r, err := Start(context.Background(), "sleep 30", Options{IdleTimeout: 100 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	drain(t, r)
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("idle timeout did not fire, took %s", elapsed)
	}
	if !errors.Is(r.Err(), ErrIdleTimeout) {
		t.Fatalf("err=%v, want ErrIdleTimeout", r.Err())
	}
}

func TestReaderOverallTimeout(t *testing.T) {
	r, err := Start(context.Background(), "while true; do echo tick; sleep 0.01; done", Options{Timeout: 200 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	drain(t, r)
	if !errors.Is(r.Err(), context.DeadlineExceeded) {
		t.Fatalf("err=%v, want deadline exceeded", r.Err())
	}
}

func TestReaderClose(t *testing.T) {
	r, err := Start(context.Background(), "sleep 30", Options{})
	if err != nil {
		t.Fatal(err)
	}
	r.Close()
	drain(t, r)
}

func TestReaderTruncatesLongLines(t *testing.T) {
	r, err := Start(context.Background(), "printf 'aaaaaaaaaaaaaaaaaaaaaaaaaaaaaa\\n'", Options{MaxLineBytes: 10})
	if err != nil {
		t.Fatal(err)
	}
	lines := drain(t, r)
	if len(lines) == 0 {
		t.Fatal("no output")
	}
	if len(lines[0]) > 10 {
		t.Fatalf("line not truncated: %q", lines[0])
	}
}

func TestReaderSurvivesOversizedLine(t *testing.T) {
	// A single line far beyond the cap must not kill the stream; the head
	// is kept and later lines still arrive.
	cmd := "head -c 100000 /dev/zero | tr '\\0' 'x'; echo; echo MARKER"
	r, err := Start(context.Background(), cmd, Options{})
	if err != nil {
		t.Fatal(err)
	}
	lines := drain(t, r)
	if r.Err() != nil {
		t.Fatalf("err=%v", r.Err())
	}
	if r.ExitCode() != 0 {
		t.Fatalf("exit=%d", r.ExitCode())
	}
	var sawHead, sawMarker bool
	for _, l := range lines {
		if strings.HasPrefix(l, "xxxx") {
			sawHead = true
			if len(l) > 4096 {
				t.Fatalf("oversized line not truncated: %d bytes", len(l))
			}
		}
		if l == "MARKER" {
			sawMarker = true
		}
	}
	if !sawHead {
		t.Fatalf("truncated head of the long line missing, lines=%d", len(lines))
	}
	if !sawMarker {
		t.Fatal("output after the oversized line was lost")
	}
}

func TestReaderRejectsEmptyCommand(t *testing.T) {
	if _, err := Start(context.Background(), "   ", Options{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestReaderPrompt(t *testing.T) {
	r, err := Start(context.Background(), "true", Options{})
	if err != nil {
		t.Fatal(err)
	}
	drain(t, r)
	if r.PS1 != "$" || !strings.HasPrefix(r.Highlight, "sh") {
		t.Fatalf("PS1=%q Highlight=%q", r.PS1, r.Highlight)
	}
}
