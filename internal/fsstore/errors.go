package fsstore

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Sentinel errors; callers match them with errors.Is.
var (
	ErrInvalidPath       = errors.New("fsstore: invalid path")
	ErrLockTimeout       = errors.New("fsstore: lock timeout")
	ErrLockUnavailable   = errors.New("fsstore: lock unavailable")
	ErrEncodeFailed      = errors.New("fsstore: encode failed")
	ErrAtomicWriteFailed = errors.New("fsstore: atomic write failed")
)

// cleanPath rejects empty paths and normalizes separators.
func cleanPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	return filepath.Clean(path), nil
}
