package feature

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dolfies/jishaku/internal/procinfo"
	"github.com/dolfies/jishaku/internal/version"
)

func (r *Runner) rootCommand() *Command {
	return &Command{
		Name:      rootCommandName,
		Summary:   "Show a summary of the running process and loaded feature.",
		Untracked: true,
		Run: func(ctx context.Context, c *Context) error {
			var b strings.Builder
			fmt.Fprintf(&b, "jishaku %s, loaded %s ago\n", version.String(), time.Since(r.loadedAt).Round(time.Second))
			for _, line := range procinfo.Summary() {
				b.WriteString(line)
				b.WriteByte('\n')
			}
			if r.cfg.Stats != nil {
				for _, line := range r.cfg.Stats() {
					b.WriteString(line)
					b.WriteByte('\n')
				}
			}
			retention := "off"
			if r.state.retained() {
				retention = "on"
			}
			fmt.Fprintf(&b, "Variable retention %s, %d task(s) running.", retention, r.tasks.Len())
			return c.Transport.Reply(ctx, b.String())
		},
	}
}

func (r *Runner) tasksCommand() *Command {
	return &Command{
		Name:      "tasks",
		Summary:   "List currently running debug invocations.",
		Untracked: true,
		Run: func(ctx context.Context, c *Context) error {
			tasks := r.tasks.Snapshot()
			if len(tasks) == 0 {
				return c.Transport.Reply(ctx, "No currently running tasks.")
			}
			lines := make([]string, 0, len(tasks))
			for _, t := range tasks {
				lines = append(lines, describeTask(t))
			}
			return c.Transport.Reply(ctx, strings.Join(lines, "\n"))
		},
	}
}

func (r *Runner) cancelCommand() *Command {
	return &Command{
		Name:      "cancel",
		Summary:   "Cancel a running task by index, -1 or ~ for all.",
		Untracked: true,
		Run: func(ctx context.Context, c *Context) error {
			arg := strings.TrimSpace(c.Args)
			if arg == "" {
				return fmt.Errorf("cancel takes a task index, -1 for the newest, or ~ for all")
			}
			if arg == "~" {
				n := r.tasks.CancelAll()
				return c.Transport.Reply(ctx, fmt.Sprintf("Cancelled %d task(s).", n))
			}
			index, err := strconv.Atoi(arg)
			if err != nil {
				return fmt.Errorf("bad task index %q", arg)
			}
			t, ok := r.tasks.Lookup(index)
			if !ok {
				return fmt.Errorf("no task at index %d", index)
			}
			t.Cancel()
			return c.Transport.Reply(ctx, fmt.Sprintf("Cancelled task %d: `%s`.", t.Index, t.Command))
		},
	}
}

func (r *Runner) helpCommand() *Command {
	return &Command{
		Name:      "help",
		Summary:   "List available debug commands.",
		Untracked: true,
		Run: func(ctx context.Context, c *Context) error {
			var b strings.Builder
			for _, cmd := range r.Commands() {
				name := cmd.Name
				if len(cmd.Aliases) > 0 {
					name += " (" + strings.Join(cmd.Aliases, ", ") + ")"
				}
				fmt.Fprintf(&b, "%s %s\n    %s\n", r.cfg.Prefix, name, cmd.Summary)
			}
			return c.Transport.Reply(ctx, strings.TrimRight(b.String(), "\n"))
		},
	}
}
