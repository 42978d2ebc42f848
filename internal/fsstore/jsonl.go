package fsstore

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// JSONLWriter appends JSON records to a log file, rotating the file aside
// with a timestamp suffix when it would grow past RotateMaxBytes. The guard
// uses one per audit trail.
type JSONLWriter struct {
	path string
	opts JSONLOptions

	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	size   int64
	closed bool

	now func() time.Time
}

func NewJSONLWriter(path string, opts JSONLOptions) (*JSONLWriter, error) {
	dst, err := cleanPath(path)
	if err != nil {
		return nil, err
	}
	w := &JSONLWriter{
		path: dst,
		opts: opts.withDefaults(),
		now:  time.Now,
	}
	if err := w.openLocked(); err != nil {
		return nil, err
	}
	return w, nil
}

// AppendJSON marshals v and appends it as one line.
func (w *JSONLWriter) AppendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: jsonl encode %s: %v", ErrEncodeFailed, w.path, err)
	}
	data = append(data, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("jsonl writer closed")
	}
	if err := w.maybeRotateLocked(int64(len(data))); err != nil {
		return err
	}
	n, err := w.writer.Write(data)
	if err != nil {
		return err
	}
	w.size += int64(n)
	if w.opts.FlushEachWrite || w.opts.SyncEachWrite {
		if err := w.writer.Flush(); err != nil {
			return err
		}
	}
	if w.opts.SyncEachWrite {
		return w.file.Sync()
	}
	return nil
}

func (w *JSONLWriter) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.writer != nil {
		_ = w.writer.Flush()
	}
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	w.writer = nil
	w.size = 0
	return err
}

func (w *JSONLWriter) maybeRotateLocked(incoming int64) error {
	if w.opts.RotateMaxBytes <= 0 || w.size+incoming <= w.opts.RotateMaxBytes {
		return nil
	}
	if w.writer != nil {
		_ = w.writer.Flush()
	}
	if w.file != nil {
		_ = w.file.Close()
	}
	if err := w.rotateAsideLocked(); err != nil {
		return err
	}
	w.file = nil
	w.writer = nil
	w.size = 0
	return w.openLocked()
}

// rotateAsideLocked renames the current file to path.<timestamp>, appending
// a numeric suffix when a rotation within the same second already exists.
func (w *JSONLWriter) rotateAsideLocked() error {
	base := fmt.Sprintf("%s.%s", w.path, w.now().UTC().Format("20060102T150405Z"))
	rotated := base
	for i := 0; ; i++ {
		if i > 0 {
			rotated = fmt.Sprintf("%s.%d", base, i)
		}
		if _, err := os.Stat(rotated); err == nil {
			continue
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err := os.Rename(w.path, rotated); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}
}

func (w *JSONLWriter) openLocked() error {
	if err := EnsureDir(filepath.Dir(w.path), w.opts.DirPerm); err != nil {
		return err
	}
	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, w.opts.FilePerm)
	if err != nil {
		return err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return err
	}
	w.file = file
	w.writer = bufio.NewWriterSize(file, 64*1024)
	w.size = info.Size()
	return nil
}
