// Package logging provides the structured logger used across sessionkeeper.
//
// It is a thin layer over log/slog that tags every entry with a subsystem
// name and keeps a printf-style call site:
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//	logging.Info("Bootstrap", "Adopted handoff for tab %s", tab)
//	logging.Error("Flow", err, "Token exchange failed")
//
// The agent uses InitForAgent, which emits JSON lines instead of text.
//
// # Audit Logging
//
// Security relevant transitions (token stored or cleared, state mismatch,
// handoff adopted or discarded) are logged with Audit:
//
//	logging.Audit(logging.AuditEvent{
//	    Action:  "handoff_adopted",
//	    Outcome: "success",
//	    Tab:     "default",
//	})
//
// Audit events carry an [AUDIT] message prefix for filtering. Token values
// are never logged.
package logging
