// Package guard gates debug command access to configured owners and keeps a
// durable audit trail of every invocation.
package guard

import (
	"context"
	"log/slog"

	"github.com/dolfies/jishaku/feature"
)

// Config wires a Guard.
type Config struct {
	// Owners are user ids allowed to run debug commands.
	Owners []string
	// Audit configures the JSONL trail. An empty path disables it.
	Audit AuditConfig
}

type AuditConfig struct {
	JSONLPath      string
	RotateMaxBytes int64
}

// Guard is the access and audit layer in front of the debug feature.
type Guard struct {
	owners map[string]bool
	sink   *JSONLAuditSink
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) (*Guard, error) {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Guard{owners: make(map[string]bool, len(cfg.Owners)), logger: logger}
	for _, o := range cfg.Owners {
		g.owners[o] = true
	}
	if cfg.Audit.JSONLPath != "" {
		sink, err := NewJSONLAuditSink(cfg.Audit.JSONLPath, cfg.Audit.RotateMaxBytes, "")
		if err != nil {
			return nil, err
		}
		g.sink = sink
	}
	return g, nil
}

// Allowed reports whether a user may invoke debug commands.
func (g *Guard) Allowed(userID string) bool {
	return g != nil && g.owners[userID]
}

// Record implements feature.Auditor, appending the event to the JSONL trail.
func (g *Guard) Record(ctx context.Context, e feature.AuditEvent) {
	if g == nil || g.sink == nil {
		return
	}
	if err := g.sink.Emit(ctx, e); err != nil {
		g.logger.Warn("guard_audit_write_error", "error", err.Error())
	}
}

// Close flushes and closes the audit trail.
func (g *Guard) Close() error {
	if g == nil || g.sink == nil {
		return nil
	}
	return g.sink.Close()
}
