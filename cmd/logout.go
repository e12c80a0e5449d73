package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the tab's session",
		Long: `Remove the tab's access token and any pending authorization.

The identity provider session in the browser is not touched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := openTab(cmd.Context(), cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}
			defer ts.Close()

			if err := ts.manager.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged out of tab %s\n", ts.manager.Tab())
			return nil
		},
	}
}
