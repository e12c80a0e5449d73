package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"sessionkeeper/internal/session"
)

func newHandoffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "handoff",
		Short: "Hand the session over to another tab",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "publish",
		Short: "Offer the tab's session to the next tab that logs in",
		Long: `Publish the tab's session to the shared handoff slot.

The next tab to boot without a session of its own adopts it, as long as it
does so within 30 seconds. The slot holds one session and is emptied by its
first reader.

Examples:
  sessionkeeper handoff publish --tab default
  sessionkeeper login --tab work`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := openTab(cmd.Context(), cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}
			defer ts.Close()

			err = ts.manager.PublishHandoff(cmd.Context())
			if errors.Is(err, session.ErrNoSession) {
				return &AuthRequiredError{Tab: ts.manager.Tab()}
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session of tab %s published for handoff (valid for %s)\n", ts.manager.Tab(), session.HandoffMaxAge)
			return nil
		},
	})
	return cmd
}
