// Package feature implements the jsk debug command group: REPL evaluation,
// shell execution, task management and bot introspection, dispatched from
// chat messages and rendered back through paginated chat output.
package feature

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/dolfies/jishaku/paginator"
	"github.com/dolfies/jishaku/reactor"
	"github.com/dolfies/jishaku/repl"
)

// Message is a platform-neutral inbound chat message.
type Message struct {
	ID         string
	ChannelID  string
	AuthorID   string
	AuthorName string
	Text       string
	SentAt     time.Time
}

// Transport is what a frontend provides for one triggering message: replies
// into its channel, owner DMs, reactions on the message, and scrollable
// paginator interfaces.
type Transport interface {
	// Reply sends text to the message's channel.
	Reply(ctx context.Context, text string) error
	// OwnerDM delivers to the configured owner's DM. ok=false means the
	// platform has no DM route and the caller should fall back.
	OwnerDM(ctx context.Context, text string) (bool, error)
	// React attaches an outcome reaction to the triggering message.
	React(ctx context.Context, r reactor.Reaction)
	// MaxMessageSize is the platform's message length limit.
	MaxMessageSize() int
	// OpenInterface starts a scrollable paginated view in the channel,
	// owned by the triggering author.
	OpenInterface(ctx context.Context, prefix, suffix string) (*paginator.Interface, error)
}

// Context carries one command invocation.
type Context struct {
	Message   Message
	Args      string
	Transport Transport
	Logger    *slog.Logger
}

// Command is one jsk subcommand.
type Command struct {
	Name    string
	Aliases []string
	Summary string
	// Untracked keeps the invocation out of the running task list, so
	// bookkeeping commands like cancel never resolve as their own target.
	Untracked bool
	Run       func(ctx context.Context, c *Context) error
}

// Auditor records command invocations and denied access.
type Auditor interface {
	Record(ctx context.Context, e AuditEvent)
}

// AuditEvent is one audit record.
type AuditEvent struct {
	At        time.Time     `json:"at"`
	Command   string        `json:"command"`
	Args      string        `json:"args,omitempty"`
	ChannelID string        `json:"channel_id"`
	AuthorID  string        `json:"author_id"`
	Allowed   bool          `json:"allowed"`
	OK        bool          `json:"ok"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
}

// Config wires a Runner.
type Config struct {
	// Prefix is the chat command namespace, normally "jsk".
	Prefix string
	// Owners are the user ids allowed to invoke debug commands.
	Owners []string
	// Allow, when set, decides access instead of the Owners list. The guard
	// package supplies this so gating and auditing share one policy.
	Allow func(userID string) bool
	// Retain is the initial scope retention setting.
	Retain bool
	// ShellTimeout caps jsk sh runs.
	ShellTimeout time.Duration
	// CommandTimeout caps evaluations. Zero means no deadline.
	CommandTimeout time.Duration
	// Stats, when set, contributes frontend summary lines to jsk.
	Stats func() []string
	// Auditor, when set, receives an event per dispatch.
	Auditor Auditor
	Logger  *slog.Logger
}

// Runner is the loaded debug feature: command table, REPL scope, shell
// settings and the running task list.
type Runner struct {
	cfg    Config
	logger *slog.Logger

	commands map[string]*Command
	names    []string

	tasks    *TaskList
	sessions *sessionTable

	goEng *repl.GoExecutor
	slEng *repl.StarlarkExecutor

	state *evalState

	loadedAt time.Time
}

// New builds a Runner with the full jsk command set registered.
func New(cfg Config) *Runner {
	if strings.TrimSpace(cfg.Prefix) == "" {
		cfg.Prefix = "jsk"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ShellTimeout <= 0 {
		cfg.ShellTimeout = 10 * time.Minute
	}

	r := &Runner{
		cfg:      cfg,
		logger:   cfg.Logger,
		commands: make(map[string]*Command),
		tasks:    NewTaskList(),
		sessions: newSessionTable(),
		goEng:    repl.NewGoExecutor(),
		slEng:    repl.NewStarlarkExecutor(),
		state:    newEvalState(cfg.Retain),
		loadedAt: time.Now(),
	}

	r.register(r.rootCommand())
	r.register(r.evalCommand())
	r.register(r.scriptCommand())
	r.register(r.inspectCommand())
	r.register(r.retainCommand())
	r.register(r.replCommand())
	r.register(r.shellCommand())
	r.register(r.gitCommand())
	r.register(r.goModCommand())
	r.register(r.tasksCommand())
	r.register(r.cancelCommand())
	r.register(r.helpCommand())
	return r
}

func (r *Runner) register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	r.names = append(r.names, cmd.Name)
	for _, a := range cmd.Aliases {
		r.commands[a] = cmd
	}
	sort.Strings(r.names)
}

// Commands lists registered commands once each, sorted by name.
func (r *Runner) Commands() []*Command {
	out := make([]*Command, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.commands[name])
	}
	return out
}

// Prefix reports the configured command namespace.
func (r *Runner) Prefix() string { return r.cfg.Prefix }

// IsOwner reports whether a user id may invoke debug commands.
func (r *Runner) IsOwner(userID string) bool {
	if r.cfg.Allow != nil {
		return r.cfg.Allow(userID)
	}
	for _, o := range r.cfg.Owners {
		if o == userID {
			return true
		}
	}
	return false
}

// Dispatch routes one inbound message. The returned bool reports whether the
// message was consumed by the feature (as a command or a REPL session line).
// Errors have already been reported to chat by the reactor; they come back
// for logging only.
func (r *Runner) Dispatch(ctx context.Context, msg Message, tr Transport) (bool, error) {
	// Active REPL session lines take priority over command parsing.
	if s := r.sessions.lookup(msg.ChannelID, msg.AuthorID); s != nil && strings.HasPrefix(strings.TrimSpace(msg.Text), "`") {
		s.feed(msg)
		return true, nil
	}

	name, args, ok := r.parseInvocation(msg.Text)
	if !ok {
		return false, nil
	}

	if !r.IsOwner(msg.AuthorID) {
		r.audit(ctx, msg, name, args, false, 0, nil)
		r.logger.Warn("jsk_denied", "author_id", msg.AuthorID, "channel_id", msg.ChannelID, "command", name)
		return false, nil
	}

	cmd, found := r.commands[name]
	if !found {
		_ = tr.Reply(ctx, fmt.Sprintf("Unknown command %q. Try `%s help`.", name, r.cfg.Prefix))
		return true, nil
	}

	c := &Context{Message: msg, Args: args, Transport: tr, Logger: r.logger}

	runCtx := ctx
	var cancel context.CancelFunc
	if r.cfg.CommandTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, r.cfg.CommandTimeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	if !cmd.Untracked {
		task := r.tasks.Add(fmt.Sprintf("%s %s", r.cfg.Prefix, cmd.Name), msg, cancel)
		defer r.tasks.Remove(task.Index)
	}

	started := time.Now()
	rx := reactor.New(&transportNotifier{runner: r, ctx: c}, reactor.Options{})
	err := rx.Run(runCtx, func(ctx context.Context) error {
		return cmd.Run(ctx, c)
	})
	r.audit(ctx, msg, cmd.Name, args, true, time.Since(started), err)
	if err != nil {
		r.logger.Warn("jsk_command_error", "command", cmd.Name, "channel_id", msg.ChannelID, "error", err.Error())
	} else {
		r.logger.Info("jsk_command_done", "command", cmd.Name, "channel_id", msg.ChannelID, "duration", time.Since(started).String())
	}
	return true, err
}

// parseInvocation extracts the subcommand and arguments from text. Accepts
// "jsk", "/jsk" and "jsk@BotName" forms; a bare prefix falls through to the
// root command.
func (r *Runner) parseInvocation(text string) (name, args string, ok bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", "", false
	}
	head := trimmed
	rest := ""
	if i := strings.IndexAny(trimmed, " \n"); i >= 0 {
		head, rest = trimmed[:i], strings.TrimSpace(trimmed[i+1:])
	}
	head = strings.TrimPrefix(head, "/")
	if i := strings.IndexByte(head, '@'); i >= 0 {
		head = head[:i]
	}
	if !strings.EqualFold(head, r.cfg.Prefix) {
		return "", "", false
	}
	if rest == "" {
		return rootCommandName, "", true
	}
	sub := rest
	subArgs := ""
	if i := strings.IndexAny(rest, " \n"); i >= 0 {
		sub, subArgs = rest[:i], strings.TrimLeft(rest[i+1:], " ")
	}
	return strings.ToLower(sub), subArgs, true
}

func (r *Runner) audit(ctx context.Context, msg Message, name, args string, allowed bool, d time.Duration, err error) {
	if r.cfg.Auditor == nil {
		return
	}
	e := AuditEvent{
		At:        time.Now().UTC(),
		Command:   name,
		Args:      args,
		ChannelID: msg.ChannelID,
		AuthorID:  msg.AuthorID,
		Allowed:   allowed,
		OK:        allowed && err == nil,
		Duration:  d,
	}
	if err != nil {
		e.Error = err.Error()
	}
	r.cfg.Auditor.Record(ctx, e)
}
