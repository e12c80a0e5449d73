package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"sessionkeeper/internal/callback"
)

func newRefreshCmd() *cobra.Command {
	var (
		noBrowser bool
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Discard the session and log in again",
		Long: `Discard the tab's session and start a new login.

There is no refresh token: refreshing means a new authorization code flow.
If the identity provider still has a browser session this usually completes
without user interaction.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ts, err := openTab(ctx, cmd.ErrOrStderr(), noBrowser)
			if err != nil {
				return err
			}
			defer ts.Close()

			srv, err := startCallback(ctx, ts)
			if err != nil {
				return err
			}
			defer srv.Stop()

			if err := ts.manager.RefreshSession(ctx); err != nil {
				return loginError(err)
			}
			res, err := awaitLogin(cmd, ts, srv, timeout)
			if err != nil {
				return err
			}
			printLoggedIn(cmd, ts, res)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Print the authorization URL instead of opening a browser")
	cmd.Flags().DurationVar(&timeout, "timeout", callback.Timeout, "How long to wait for the browser to return")
	return cmd
}
