package cmd

import (
	"errors"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"sessionkeeper/internal/agent"
	"sessionkeeper/internal/session"
	"sessionkeeper/internal/storage"
)

func newStatusCmd() *cobra.Command {
	var withAgent bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the tab's session state",
		Long: `Show the tab's session state from local storage without contacting the
identity provider.

Examples:
  sessionkeeper status
  sessionkeeper status --tab work
  sessionkeeper status --agent     # Also show the running agent`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ts, err := openTab(ctx, cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}
			defer ts.Close()

			rec, err := ts.manager.Record(ctx)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleRounded)
			t.AppendRow(table.Row{"Tab", ts.manager.Tab()})
			t.AppendRow(table.Row{"Status", formatSessionState(rec, time.Now())})
			if rec != nil {
				t.AppendRow(table.Row{"Expires", rec.ExpiresAt.Local().Format(time.RFC3339)})
				t.AppendRow(table.Row{"Remaining", formatRemaining(rec, time.Now())})
			}

			handoff := text.FgHiBlack.Sprint("none")
			if _, err := ts.stores.Shared.Get(ctx, session.HandoffKey); err == nil {
				handoff = text.FgCyan.Sprint("waiting")
			} else if !errors.Is(err, storage.ErrNotFound) {
				handoff = text.FgRed.Sprint("unavailable")
			}
			t.AppendRow(table.Row{"Handoff", handoff})

			if withAgent {
				t.AppendSeparator()
				info, err := agent.NewClient(ts.cfg.Agent.ListenAddress).Session(ctx)
				if err != nil {
					t.AppendRow(table.Row{"Agent", text.FgHiBlack.Sprint("not running")})
				} else {
					t.AppendRow(table.Row{"Agent", info.AgentID})
					t.AppendRow(table.Row{"Agent state", formatAgentState(info.State)})
					if info.Identity != nil {
						t.AppendRow(table.Row{"Agent identity", info.Identity.Name()})
					}
				}
			}

			t.Render()
			return nil
		},
	}

	cmd.Flags().BoolVar(&withAgent, "agent", false, "Include the state of the running agent")
	return cmd
}

func formatSessionState(rec *session.SessionRecord, now time.Time) string {
	switch {
	case rec == nil:
		return text.FgYellow.Sprint("Not logged in")
	case !rec.UsableAt(now):
		return text.FgRed.Sprint("Expired")
	case rec.ExpiresAt.Sub(now) <= session.WarningWindow:
		return text.FgYellow.Sprint("Expiring soon")
	default:
		return text.FgGreen.Sprint("Valid")
	}
}

func formatRemaining(rec *session.SessionRecord, now time.Time) string {
	left := rec.ExpiresAt.Sub(now).Round(time.Second)
	if left <= 0 {
		return text.FgRed.Sprint("0s")
	}
	return left.String()
}

func formatAgentState(state agent.State) string {
	switch state {
	case agent.StateAuthenticated:
		return text.FgGreen.Sprint(string(state))
	case agent.StateExpiring, agent.StateRedirecting:
		return text.FgYellow.Sprint(string(state))
	case agent.StateFailed:
		return text.FgRed.Sprint(string(state))
	default:
		return text.FgHiBlack.Sprint(string(state))
	}
}
