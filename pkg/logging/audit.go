package logging

import (
	"context"
	"log/slog"
)

// AuditEvent describes a security relevant change to session state.
// Token values must never be placed in any field.
type AuditEvent struct {
	// Action is what happened, e.g. "token_stored" or "state_mismatch".
	Action string
	// Outcome is "success", "failure" or "discarded".
	Outcome string
	// Tab is the browsing context the event belongs to.
	Tab string
	// BootID correlates all events of one bootstrap run.
	BootID string
	// Detail is free form, non-sensitive context.
	Detail string
}

// Audit logs a security audit event at INFO level with an [AUDIT] prefix.
// Events are dropped when the logger is configured above INFO.
func Audit(event AuditEvent) {
	l := logger()
	if l == nil || !l.Enabled(context.Background(), slog.LevelInfo) {
		return
	}

	attrs := []slog.Attr{
		slog.String("subsystem", "Audit"),
		slog.String("action", event.Action),
		slog.String("outcome", event.Outcome),
	}
	if event.Tab != "" {
		attrs = append(attrs, slog.String("tab", event.Tab))
	}
	if event.BootID != "" {
		attrs = append(attrs, slog.String("boot_id", event.BootID))
	}
	if event.Detail != "" {
		attrs = append(attrs, slog.String("detail", event.Detail))
	}

	l.LogAttrs(context.Background(), slog.LevelInfo, "[AUDIT] "+event.Action, attrs...)
}
