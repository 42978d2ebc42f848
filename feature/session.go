package feature

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dolfies/jishaku/codeblock"
	"github.com/dolfies/jishaku/repl"
)

// sessionIdleTimeout closes a REPL session that saw no input for this long.
const sessionIdleTimeout = 10 * time.Minute

// replSession is an interactive per-channel, per-author evaluation loop.
// Messages wrapped in backticks are fed to it; everything else passes through
// normal dispatch.
type replSession struct {
	channelID string
	authorID  string
	lines     chan Message
}

func (s *replSession) feed(msg Message) {
	select {
	case s.lines <- msg:
	default:
		// The session is busy evaluating; dropping beats blocking the
		// dispatch path.
	}
}

type sessionTable struct {
	mu       sync.Mutex
	sessions map[string]*replSession
}

func newSessionTable() *sessionTable {
	return &sessionTable{sessions: make(map[string]*replSession)}
}

func sessionKey(channelID, authorID string) string {
	return channelID + "\x00" + authorID
}

func (t *sessionTable) lookup(channelID, authorID string) *replSession {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessions[sessionKey(channelID, authorID)]
}

// add registers a session unless one already exists for the key.
func (t *sessionTable) add(s *replSession) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := sessionKey(s.channelID, s.authorID)
	if _, exists := t.sessions[key]; exists {
		return false
	}
	t.sessions[key] = s
	return true
}

func (t *sessionTable) remove(s *replSession) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, sessionKey(s.channelID, s.authorID))
}

func (r *Runner) replCommand() *Command {
	return &Command{
		Name:    "repl",
		Summary: "Open an interactive evaluation session in this channel.",
		Run: func(ctx context.Context, c *Context) error {
			eng, highlight, err := r.sessionEngine(c.Args)
			if err != nil {
				return err
			}

			s := &replSession{
				channelID: c.Message.ChannelID,
				authorID:  c.Message.AuthorID,
				lines:     make(chan Message, 16),
			}
			if !r.sessions.add(s) {
				return fmt.Errorf("a session is already open in this channel")
			}

			banner := fmt.Sprintf("Entering a %s session. Send code wrapped in backticks; `exit` or `quit` leaves.", eng.Name())
			if err := c.Transport.Reply(ctx, banner); err != nil {
				r.sessions.remove(s)
				return err
			}

			sessCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
			task := r.tasks.Add(fmt.Sprintf("%s repl", r.cfg.Prefix), c.Message, cancel)
			go func() {
				defer cancel()
				defer r.tasks.Remove(task.Index)
				defer r.sessions.remove(s)
				r.runSession(sessCtx, c, s, eng, highlight)
			}()
			return nil
		},
	}
}

func (r *Runner) sessionEngine(args string) (repl.Executor, string, error) {
	switch strings.ToLower(strings.TrimSpace(args)) {
	case "", "go":
		return r.goEng, "go", nil
	case "starlark", "sl", "script":
		return r.slEng, "python", nil
	default:
		return nil, "", fmt.Errorf("unknown session engine %q, try go or starlark", strings.TrimSpace(args))
	}
}

// runSession drives one session loop. The scope is pinned at session start so
// bindings persist across messages even when global retention is off.
func (r *Runner) runSession(ctx context.Context, c *Context, s *replSession, eng repl.Executor, highlight string) {
	scope := r.state.scopeFor()
	idle := time.NewTimer(sessionIdleTimeout)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = c.Transport.Reply(context.WithoutCancel(ctx), "Session cancelled.")
			return
		case <-idle.C:
			_ = c.Transport.Reply(ctx, "Session timed out after 10 minutes of inactivity.")
			return
		case msg := <-s.lines:
			if !idle.Stop() {
				<-idle.C
			}
			idle.Reset(sessionIdleTimeout)

			code := strings.TrimSpace(codeblock.Parse(msg.Text).Content)
			switch code {
			case "exit", "quit", "exit()", "quit()":
				_ = c.Transport.Reply(ctx, "Leaving the session.")
				return
			case "":
				continue
			}

			lineCtx := &Context{Message: msg, Args: msg.Text, Transport: c.Transport, Logger: c.Logger}
			if err := r.streamResults(ctx, lineCtx, eng, scope, code, highlight); err != nil {
				// Session errors report inline and keep the loop alive.
				_ = c.Transport.Reply(ctx, fmt.Sprintf("```\n%s\n```", err.Error()))
			}
		}
	}
}
