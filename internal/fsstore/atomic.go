// Package fsstore provides the durable file primitives the debug bot needs
// on disk: atomic config writes, the append-only audit JSONL with rotation,
// and flock-based cross-process locks around the audit file.
package fsstore

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDir creates path and any parents. A zero perm means the package
// default (owner-only).
func EnsureDir(path string, perm os.FileMode) error {
	dir, err := cleanPath(path)
	if err != nil {
		return err
	}
	if perm == 0 {
		perm = defaultDirPerm
	}
	if err := os.MkdirAll(dir, perm); err != nil {
		return fmt.Errorf("fsstore ensure dir %s: %w", dir, err)
	}
	return nil
}

// WriteTextAtomic writes content through a temp file and rename, so a crash
// mid-write never leaves a half-written config behind.
func WriteTextAtomic(path string, content string, opts FileOptions) error {
	dst, err := cleanPath(path)
	if err != nil {
		return err
	}
	opts = opts.withDefaults()

	dir := filepath.Dir(dst)
	if err := EnsureDir(dir, opts.DirPerm); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(dst)+".tmp.*")
	if err != nil {
		return fmt.Errorf("%w: create temp for %s: %v", ErrAtomicWriteFailed, dst, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.WriteString(content); err != nil {
		return fmt.Errorf("%w: write temp for %s: %v", ErrAtomicWriteFailed, dst, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("%w: sync temp for %s: %v", ErrAtomicWriteFailed, dst, err)
	}
	if err := tmp.Chmod(opts.FilePerm); err != nil {
		return fmt.Errorf("%w: chmod temp for %s: %v", ErrAtomicWriteFailed, dst, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp for %s: %v", ErrAtomicWriteFailed, dst, err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return fmt.Errorf("%w: rename temp for %s: %v", ErrAtomicWriteFailed, dst, err)
	}

	// best effort: fsync the directory so the rename survives a crash
	if dirFD, err := os.Open(dir); err == nil {
		_ = dirFD.Sync()
		_ = dirFD.Close()
	}
	return nil
}
