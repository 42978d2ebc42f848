package fsstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	lockKeyMaxLen = 120
	lockRetryWait = 25 * time.Millisecond
)

// BuildLockPath maps a lock key like "audit.debug_command_jsonl" to a .lck
// file under lockRoot. Keys are restricted to lowercase dotted names so the
// path can never escape the root.
func BuildLockPath(lockRoot string, lockKey string) (string, error) {
	root, err := cleanPath(lockRoot)
	if err != nil {
		return "", err
	}
	key, err := checkLockKey(lockKey)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, key+".lck"), nil
}

// WithLock runs fn while holding the cross-process lock at lockPath. Waiting
// for the lock respects ctx cancellation.
func WithLock(ctx context.Context, lockPath string, fn func() error) error {
	path, err := cleanPath(lockPath)
	if err != nil {
		return err
	}
	if fn == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := EnsureDir(filepath.Dir(path), defaultDirPerm); err != nil {
		return err
	}
	return withLockFile(ctx, path, fn)
}

func checkLockKey(lockKey string) (string, error) {
	key := strings.TrimSpace(lockKey)
	switch {
	case key == "":
		return "", fmt.Errorf("%w: empty lock key", ErrInvalidPath)
	case len(key) > lockKeyMaxLen:
		return "", fmt.Errorf("%w: lock key too long", ErrInvalidPath)
	case strings.ToLower(key) != key:
		return "", fmt.Errorf("%w: lock key must be lowercase", ErrInvalidPath)
	case strings.HasPrefix(key, ".") || strings.HasSuffix(key, "."):
		return "", fmt.Errorf("%w: lock key cannot start or end with dot", ErrInvalidPath)
	}
	for _, r := range key {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' || r == '_' || r == '-' {
			continue
		}
		return "", fmt.Errorf("%w: invalid lock key character %q", ErrInvalidPath, r)
	}
	return key, nil
}

// stampLockOwner leaves pid and hostname in the lock file so a stuck lock is
// diagnosable from the outside.
func stampLockOwner(file *os.File, lockPath string) {
	if file == nil {
		return
	}
	host, _ := os.Hostname()
	data, err := json.Marshal(map[string]any{
		"lock_path":   lockPath,
		"pid":         os.Getpid(),
		"hostname":    host,
		"acquired_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return
	}
	_ = file.Truncate(0)
	_, _ = file.Seek(0, 0)
	_, _ = file.Write(append(data, '\n'))
	_ = file.Sync()
}

func waitForLockRetry(ctx context.Context, lockPath string) error {
	timer := time.NewTimer(lockRetryWait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %s: %v", ErrLockTimeout, lockPath, ctx.Err())
	case <-timer.C:
		return nil
	}
}
