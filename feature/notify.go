package feature

import (
	"context"

	"github.com/dolfies/jishaku/internal/outputfmt"
	"github.com/dolfies/jishaku/paginator"
	"github.com/dolfies/jishaku/reactor"
)

// transportNotifier adapts a command Context to the reactor's reporting
// surface. Channel reports go back where the command ran; owner reports try
// the DM route first and fall back to the channel.
type transportNotifier struct {
	runner *Runner
	ctx    *Context
}

func (n *transportNotifier) React(ctx context.Context, r reactor.Reaction) {
	n.ctx.Transport.React(ctx, r)
}

func (n *transportNotifier) SendReport(ctx context.Context, dest reactor.Destination, report string) error {
	tr := n.ctx.Transport
	// error text may quote URLs with hosts or credentials
	report = outputfmt.SanitizeErrorText(report)
	fenced := "```\n" + report + "\n```"

	if dest == reactor.DestOwner {
		for _, page := range splitReport(report, tr.MaxMessageSize()) {
			ok, err := tr.OwnerDM(ctx, page)
			if err != nil {
				return err
			}
			if !ok {
				// No DM route on this platform; the channel gets the
				// full report instead.
				return n.SendReport(ctx, reactor.DestChannel, report)
			}
		}
		return nil
	}

	if len(fenced) <= tr.MaxMessageSize() {
		return tr.Reply(ctx, fenced)
	}
	iface, err := tr.OpenInterface(ctx, "```", "```")
	if err != nil {
		return err
	}
	return iface.AddLine(ctx, report)
}

// splitReport chunks a report into fenced pages bounded by the platform
// message limit.
func splitReport(report string, maxSize int) []string {
	p := paginator.New("```", "```", maxSize)
	_ = p.AddLine(report)
	pages := make([]string, 0, p.PageCount())
	for i := 0; i < p.PageCount(); i++ {
		pages = append(pages, p.Page(i))
	}
	return pages
}
