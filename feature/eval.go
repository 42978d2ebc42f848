package feature

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dolfies/jishaku/codeblock"
	"github.com/dolfies/jishaku/repl"
)

const rootCommandName = "jsk"

// evalState holds the shared evaluation scope, the retention switch and the
// last produced value.
type evalState struct {
	mu     sync.Mutex
	retain bool
	scope  *repl.Scope
	last   any
}

func newEvalState(retain bool) *evalState {
	return &evalState{retain: retain, scope: repl.NewScope()}
}

// scopeFor returns the shared scope when retention is on, otherwise a fresh
// throwaway scope.
func (s *evalState) scopeFor() *repl.Scope {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.retain {
		return s.scope
	}
	return repl.NewScope()
}

func (s *evalState) setRetain(on bool) (changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.retain == on {
		return false
	}
	s.retain = on
	if on {
		// A fresh scope so stale results from previous retained runs do
		// not leak into the new retention window.
		s.scope = repl.NewScope()
	}
	return true
}

func (s *evalState) retained() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retain
}

func (s *evalState) setLast(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = v
}

func (s *evalState) lastValue() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// buildEnv assembles the convenience bindings every evaluation sees.
func (r *Runner) buildEnv(c *Context) map[string]any {
	return map[string]any{
		"_msg":     c.Message.Text,
		"_msg_id":  c.Message.ID,
		"_author":  c.Message.AuthorID,
		"_channel": c.Message.ChannelID,
		"_":        r.state.lastValue(),
	}
}

// streamResults runs code on an executor against the given scope and sends
// every intermediate value back to chat as it arrives. Errors abort the run
// and surface through the reactor.
func (r *Runner) streamResults(ctx context.Context, c *Context, eng repl.Executor, scope *repl.Scope, code, highlight string) error {
	results, err := eng.Eval(ctx, code, scope, r.buildEnv(c))
	if err != nil {
		return err
	}
	for res := range results {
		if res.Err != nil {
			return res.Err
		}
		if !res.HasValue {
			continue
		}
		r.state.setLast(res.Value)
		if err := r.sendRepr(ctx, c, res.Repr, highlight); err != nil {
			return err
		}
	}
	return nil
}

// sendRepr delivers one rendered value, paginating when it exceeds the
// platform message limit.
func (r *Runner) sendRepr(ctx context.Context, c *Context, repr, highlight string) error {
	fenced := fmt.Sprintf("```%s\n%s\n```", highlight, repr)
	if len(fenced) <= c.Transport.MaxMessageSize() {
		return c.Transport.Reply(ctx, fenced)
	}
	iface, err := c.Transport.OpenInterface(ctx, "```"+highlight, "```")
	if err != nil {
		return err
	}
	return iface.AddLine(ctx, repr)
}

func (r *Runner) evalCommand() *Command {
	return &Command{
		Name:    "eval",
		Aliases: []string{"e"},
		Summary: "Evaluate Go code and stream each expression value back.",
		Run: func(ctx context.Context, c *Context) error {
			code := codeblock.Parse(c.Args).Content
			if strings.TrimSpace(code) == "" {
				return fmt.Errorf("nothing to evaluate")
			}
			return r.streamResults(ctx, c, r.goEng, r.state.scopeFor(), code, "go")
		},
	}
}

func (r *Runner) scriptCommand() *Command {
	return &Command{
		Name:    "script",
		Aliases: []string{"sl", "starlark"},
		Summary: "Evaluate a Starlark script and stream each value back.",
		Run: func(ctx context.Context, c *Context) error {
			code := codeblock.Parse(c.Args).Content
			if strings.TrimSpace(code) == "" {
				return fmt.Errorf("nothing to evaluate")
			}
			return r.streamResults(ctx, c, r.slEng, r.state.scopeFor(), code, "python")
		},
	}
}

func (r *Runner) inspectCommand() *Command {
	return &Command{
		Name:    "inspect",
		Aliases: []string{"i"},
		Summary: "Evaluate Go code and report reflection facts about each value.",
		Run: func(ctx context.Context, c *Context) error {
			code := codeblock.Parse(c.Args).Content
			if strings.TrimSpace(code) == "" {
				return fmt.Errorf("nothing to inspect")
			}
			results, err := r.goEng.Eval(ctx, code, r.state.scopeFor(), r.buildEnv(c))
			if err != nil {
				return err
			}
			for res := range results {
				if res.Err != nil {
					return res.Err
				}
				if !res.HasValue {
					continue
				}
				r.state.setLast(res.Value)
				report := repl.FormatInspections(res.Repr, repl.Inspect(res.Value))
				if err := r.sendRepr(ctx, c, report, ""); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func (r *Runner) retainCommand() *Command {
	return &Command{
		Name:    "retain",
		Summary: "Show or toggle variable retention across evaluations.",
		Run: func(ctx context.Context, c *Context) error {
			arg := strings.ToLower(strings.TrimSpace(c.Args))
			switch arg {
			case "":
				state := "OFF"
				if r.state.retained() {
					state = "ON"
				}
				return c.Transport.Reply(ctx, fmt.Sprintf("Variable retention is %s.", state))
			case "on", "true", "1":
				if !r.state.setRetain(true) {
					return c.Transport.Reply(ctx, "Variable retention is already on.")
				}
				return c.Transport.Reply(ctx, "Variable retention is on. A fresh scope will persist across evaluations.")
			case "off", "false", "0":
				if !r.state.setRetain(false) {
					return c.Transport.Reply(ctx, "Variable retention is already off.")
				}
				return c.Transport.Reply(ctx, "Variable retention is off. Each evaluation now gets a throwaway scope.")
			default:
				return fmt.Errorf("retain takes on or off, got %q", arg)
			}
		},
	}
}
