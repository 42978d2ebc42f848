package fsstore

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestBuildLockPath(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), ".fslocks")
	got, err := BuildLockPath(root, "audit.debug_command_jsonl")
	if err != nil {
		t.Fatalf("BuildLockPath() error = %v", err)
	}
	want := filepath.Join(root, "audit.debug_command_jsonl.lck")
	if got != want {
		t.Fatalf("BuildLockPath() = %q, want %q", got, want)
	}
}

func TestBuildLockPathInvalidKey(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), ".fslocks")
	invalid := []string{
		"",
		"Audit.main",
		"audit/main",
		".audit.main",
		"audit.main.",
		"audit main",
	}
	for _, key := range invalid {
		key := key
		t.Run(key, func(t *testing.T) {
			t.Parallel()
			_, err := BuildLockPath(root, key)
			if err == nil {
				t.Fatalf("BuildLockPath(%q) expected error", key)
			}
			if !errors.Is(err, ErrInvalidPath) {
				t.Fatalf("BuildLockPath(%q) error = %v, want ErrInvalidPath", key, err)
			}
		})
	}
}

func TestWriteTextAtomic(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	in := "telegram:\n  bot_token: x\n"
	if err := WriteTextAtomic(path, in, FileOptions{}); err != nil {
		t.Fatalf("WriteTextAtomic() error = %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != in {
		t.Fatalf("content = %q, want %q", got, in)
	}
}

func TestWriteTextAtomicLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := WriteTextAtomic(filepath.Join(dir, "config.yaml"), "a: 1\n", FileOptions{}); err != nil {
		t.Fatalf("WriteTextAtomic() error = %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one file, got %d", len(entries))
	}
}

func TestJSONLWriterAppendJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "audit.jsonl")
	w, err := NewJSONLWriter(path, JSONLOptions{FlushEachWrite: true})
	if err != nil {
		t.Fatalf("NewJSONLWriter() error = %v", err)
	}
	if err := w.AppendJSON(map[string]string{"command": "eval"}); err != nil {
		t.Fatalf("AppendJSON() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(content), `"command":"eval"`) {
		t.Fatalf("jsonl content = %q", content)
	}
}

func TestJSONLWriterRotateCollision(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := filepath.Join(root, "audit.jsonl")
	w, err := NewJSONLWriter(path, JSONLOptions{
		RotateMaxBytes: 15,
		FlushEachWrite: true,
	})
	if err != nil {
		t.Fatalf("NewJSONLWriter() error = %v", err)
	}
	defer w.Close()

	fixed := time.Date(2026, 8, 30, 8, 0, 1, 0, time.UTC)
	w.now = func() time.Time { return fixed }

	baseRotated := path + "." + fixed.Format("20060102T150405Z")
	if err := WriteTextAtomic(baseRotated, "old\n", FileOptions{}); err != nil {
		t.Fatalf("WriteTextAtomic(baseRotated) error = %v", err)
	}

	if err := w.AppendJSON(map[string]string{"n": "1"}); err != nil {
		t.Fatalf("AppendJSON(1) error = %v", err)
	}
	if err := w.AppendJSON(map[string]string{"n": "2"}); err != nil {
		t.Fatalf("AppendJSON(2) error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	content, err := os.ReadFile(baseRotated + ".1")
	if err != nil {
		t.Fatalf("ReadFile(rotated) error = %v", err)
	}
	if !strings.Contains(string(content), `"n":"1"`) {
		t.Fatalf("rotated file content = %q, want the first record", content)
	}
}
