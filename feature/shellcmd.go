package feature

import (
	"context"
	"fmt"
	"strings"

	"github.com/dolfies/jishaku/codeblock"
	"github.com/dolfies/jishaku/shell"
)

// runShell executes one shell command and streams its output through a
// scrollable interface, closing with the return code.
func (r *Runner) runShell(ctx context.Context, c *Context, command string) error {
	command = strings.TrimSpace(codeblock.Parse(command).Content)
	if command == "" {
		return fmt.Errorf("missing shell command")
	}

	reader, err := shell.Start(ctx, command, shell.Options{Timeout: r.cfg.ShellTimeout})
	if err != nil {
		return err
	}
	defer reader.Close()

	// The interface outlives the command so the owner can keep paging;
	// it goes away on EventClose or its own expiry.
	iface, err := c.Transport.OpenInterface(ctx, "```"+reader.Highlight, "```")
	if err != nil {
		return err
	}

	if err := iface.AddLine(ctx, reader.PS1+" "+command); err != nil {
		return err
	}

	for {
		select {
		case <-iface.Closed():
			// The owner dismissed the view; the process goes with it.
			return nil
		case line, ok := <-reader.Lines():
			if !ok {
				status := fmt.Sprintf("[status] Return code %d", reader.ExitCode())
				_ = iface.AddLine(ctx, status)
				return reader.Err()
			}
			if err := iface.AddLine(ctx, line); err != nil {
				return err
			}
		}
	}
}

func (r *Runner) shellCommand() *Command {
	return &Command{
		Name:    "sh",
		Aliases: []string{"shell", "bash"},
		Summary: "Run a command under the system shell, streaming output.",
		Run: func(ctx context.Context, c *Context) error {
			return r.runShell(ctx, c, c.Args)
		},
	}
}

func (r *Runner) gitCommand() *Command {
	return &Command{
		Name:    "git",
		Summary: "Shortcut for jsk sh git <args>.",
		Run: func(ctx context.Context, c *Context) error {
			return r.runShell(ctx, c, "git "+strings.TrimSpace(codeblock.Parse(c.Args).Content))
		},
	}
}

func (r *Runner) goModCommand() *Command {
	return &Command{
		Name:    "go",
		Summary: "Shortcut for jsk sh go <args>.",
		Run: func(ctx context.Context, c *Context) error {
			return r.runShell(ctx, c, "go "+strings.TrimSpace(codeblock.Parse(c.Args).Content))
		},
	}
}
