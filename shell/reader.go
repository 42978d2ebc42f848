// Package shell spawns system-shell commands and streams their output
// line-by-line for live pagination into chat.
package shell

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

// ErrIdleTimeout reports a command killed for producing no output.
var ErrIdleTimeout = errors.New("shell command produced no output before the idle timeout")

// Options bound a shell run.
type Options struct {
	// Timeout caps the whole run. Zero means DefaultTimeout.
	Timeout time.Duration
	// IdleTimeout kills a command that stays silent this long. Zero means
	// DefaultIdleTimeout.
	IdleTimeout time.Duration
	// MaxLineBytes truncates single output lines. Zero means 4096.
	MaxLineBytes int
}

const (
	DefaultTimeout     = 10 * time.Minute
	DefaultIdleTimeout = 2 * time.Minute
)

// Reader runs one command under the system shell and fans stdout and stderr
// into a single line channel. Stderr lines carry a "[stderr] " prefix.
type Reader struct {
	// PS1 is the prompt string to echo ahead of the command.
	PS1 string
	// Highlight is the code-fence language for the output.
	Highlight string

	lines  chan string
	cancel context.CancelFunc

	mu       sync.Mutex
	exitCode int
	runErr   error
}

// shellBin picks $SHELL, falling back to /bin/bash.
func shellBin() string {
	if sh := strings.TrimSpace(os.Getenv("SHELL")); sh != "" {
		return sh
	}
	return "/bin/bash"
}

// Start launches command and begins streaming. The returned reader's Lines
// channel closes once the process exits and all output is drained.
func Start(ctx context.Context, command string, opts Options) (*Reader, error) {
	if strings.TrimSpace(command) == "" {
		return nil, fmt.Errorf("missing shell command")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.MaxLineBytes <= 0 {
		opts.MaxLineBytes = 4096
	}

	runCtx, cancel := context.WithTimeout(ctx, opts.Timeout)

	sh := shellBin()
	cmd := exec.CommandContext(runCtx, sh, "-c", command)
	// Run in its own process group so cancellation reaps grandchildren too.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		return cmd.Process.Kill()
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start %s: %w", sh, err)
	}

	r := &Reader{
		PS1:       "$",
		Highlight: "sh",
		lines:     make(chan string, 64),
		cancel:    cancel,
	}

	activity := make(chan struct{}, 1)
	var wg sync.WaitGroup
	wg.Add(2)
	go r.scan(runCtx, stdout, "", opts.MaxLineBytes, activity, &wg)
	go r.scan(runCtx, stderr, "[stderr] ", opts.MaxLineBytes, activity, &wg)

	// Idle watchdog.
	idle := make(chan struct{})
	go func() {
		timer := time.NewTimer(opts.IdleTimeout)
		defer timer.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-idle:
				return
			case <-activity:
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(opts.IdleTimeout)
			case <-timer.C:
				r.setErr(ErrIdleTimeout)
				cancel()
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		err := cmd.Wait()
		close(idle)
		cancel()

		r.mu.Lock()
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				r.exitCode = exitErr.ExitCode()
			} else if r.runErr == nil {
				r.runErr = err
			}
			if r.runErr == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
				r.runErr = context.DeadlineExceeded
			}
		}
		r.mu.Unlock()
		close(r.lines)
	}()

	return r, nil
}

// scan streams one pipe line-by-line. Lines over the byte cap are truncated
// and the rest of the stream keeps flowing.
func (r *Reader) scan(ctx context.Context, src io.Reader, prefix string, maxLine int, activity chan<- struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	br := bufio.NewReaderSize(src, 32*1024)
	emit := func(line []byte) bool {
		select {
		case activity <- struct{}{}:
		default:
		}
		select {
		case r.lines <- prefix + sanitizeLine(line, maxLine):
			return true
		case <-ctx.Done():
			return false
		}
	}

	var buf []byte
	for {
		chunk, err := br.ReadSlice('\n')
		buf = append(buf, chunk...)
		switch {
		case err == nil:
			if !emit(bytes.TrimRight(buf, "\r\n")) {
				return
			}
			buf = buf[:0]
		case errors.Is(err, bufio.ErrBufferFull):
			if len(buf) <= maxLine {
				continue
			}
			// Oversized line: keep the head, drop the tail.
			if !emit(buf[:maxLine]) {
				return
			}
			if derr := discardToNewline(br); derr != nil {
				return
			}
			buf = buf[:0]
		default:
			if rest := bytes.TrimRight(buf, "\r\n"); len(rest) > 0 {
				emit(rest)
			}
			return
		}
	}
}

// discardToNewline eats input up to and including the next newline.
func discardToNewline(br *bufio.Reader) error {
	for {
		_, err := br.ReadSlice('\n')
		if err == nil {
			return nil
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return err
	}
}

func sanitizeLine(raw []byte, maxLine int) string {
	if len(raw) > maxLine {
		raw = raw[:maxLine]
	}
	return string(bytes.ToValidUTF8(raw, []byte("�")))
}

// Lines streams output until the process exits.
func (r *Reader) Lines() <-chan string {
	return r.lines
}

// ExitCode is valid once Lines has closed.
func (r *Reader) ExitCode() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exitCode
}

// Err reports a non-exit failure (idle timeout, overall timeout, wait error).
func (r *Reader) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runErr
}

func (r *Reader) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.runErr == nil {
		r.runErr = err
	}
}

// Close kills the command. Lines still closes normally afterwards.
func (r *Reader) Close() {
	r.cancel()
}
