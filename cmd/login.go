package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"sessionkeeper/internal/callback"
	"sessionkeeper/internal/session"
)

// maxLoginAttempts bounds how often a failed return leg restarts the login
// before the command gives up.
const maxLoginAttempts = 3

func newLoginCmd() *cobra.Command {
	var (
		noBrowser    bool
		awaitHandoff time.Duration
		timeout      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log the tab in",
		Long: `Log the tab in with the authorization code flow.

If the tab already holds a valid session it is confirmed against the identity
endpoint and nothing else happens. Otherwise a session published by another
tab is adopted when one is waiting, and failing that the browser is sent to
the authorization endpoint.

Examples:
  sessionkeeper login                       # Log in the default tab
  sessionkeeper login --tab work            # Log in the "work" tab
  sessionkeeper login --no-browser          # Print the URL instead of opening it
  sessionkeeper login --await-handoff 30s   # Wait for another tab to hand over`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ts, err := openTab(ctx, cmd.ErrOrStderr(), noBrowser)
			if err != nil {
				return err
			}
			defer ts.Close()

			if awaitHandoff > 0 {
				if _, ok := ts.manager.GetValidAccessToken(ctx); !ok {
					adopted, err := waitWithSpinner(cmd, " Waiting for another tab to hand over its session...", func() (bool, error) {
						return ts.manager.AwaitHandoff(ctx, awaitHandoff)
					})
					if err != nil {
						return err
					}
					if !adopted {
						printf(cmd, "%s\n", text.FgYellow.Sprint("No handoff received, logging in"))
					}
				}
			}

			srv, err := startCallback(ctx, ts)
			if err != nil {
				return err
			}
			defer srv.Stop()

			res, err := ts.manager.EnsureAuthenticatedWithMe(ctx)
			if err != nil {
				return loginError(err)
			}
			if res.Status == session.StatusRedirecting {
				res, err = awaitLogin(cmd, ts, srv, timeout)
				if err != nil {
					return err
				}
			}

			printLoggedIn(cmd, ts, res)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Print the authorization URL instead of opening a browser")
	cmd.Flags().DurationVar(&awaitHandoff, "await-handoff", 0, "Wait this long for another tab to hand over its session")
	cmd.Flags().DurationVar(&timeout, "timeout", callback.Timeout, "How long to wait for the browser to return")
	return cmd
}

func startCallback(ctx context.Context, ts *tabSession) (*callback.Server, error) {
	srv, err := callback.New(ts.cfg.RedirectURI, callback.Persistent(), callback.WithAppName("sessionkeeper"))
	if err != nil {
		return nil, err
	}
	if err := srv.Start(ctx); err != nil {
		return nil, err
	}
	return srv, nil
}

// awaitLogin waits for the browser to return after a redirect and completes
// the login. A failed return leg sends the browser back to the provider, up
// to maxLoginAttempts times.
func awaitLogin(cmd *cobra.Command, ts *tabSession, srv *callback.Server, timeout time.Duration) (*session.BootResult, error) {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	for attempt := 1; ; attempt++ {
		result, err := waitWithSpinner(cmd, " Waiting for the browser to complete login...", func() (*callback.Result, error) {
			return srv.Wait(ctx)
		})
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, &AuthFailedError{Tab: ts.manager.Tab(), Reason: fmt.Errorf("no response from the browser within %s", timeout)}
			}
			return nil, err
		}

		ts.location.Load(result.URL)
		res, err := ts.manager.EnsureAuthenticatedWithMe(ctx)
		if err != nil {
			return nil, loginError(err)
		}
		if res.Status == session.StatusAuthenticated {
			return res, nil
		}

		if attempt >= maxLoginAttempts {
			return nil, &AuthFailedError{Tab: ts.manager.Tab(), Reason: fmt.Errorf("gave up after %d attempts", attempt)}
		}
		printf(cmd, "%s\n", text.FgYellow.Sprint("Login did not complete, retrying in the browser"))
	}
}

// loginError maps boot errors to CLI errors.
func loginError(err error) error {
	if errors.Is(err, &session.AuthorizationError{}) {
		return &AuthFailedError{Tab: tabName, Reason: err}
	}
	return err
}

func waitWithSpinner[T any](cmd *cobra.Command, suffix string, wait func() (T, error)) (T, error) {
	if quiet {
		return wait()
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
	s.Suffix = suffix
	s.Start()
	defer s.Stop()
	return wait()
}

func printLoggedIn(cmd *cobra.Command, ts *tabSession, res *session.BootResult) {
	out := cmd.OutOrStdout()
	name := res.Identity.Name()
	if name == "" {
		name = "unknown user"
	}
	fmt.Fprintf(out, "%s as %s (tab %s)\n", text.FgGreen.Sprint("Logged in"), text.Bold.Sprint(name), ts.manager.Tab())

	if rec, err := ts.manager.Record(cmd.Context()); err == nil && rec != nil {
		printExpiry(out, rec)
	}
}

func printExpiry(out io.Writer, rec *session.SessionRecord) {
	remaining := time.Until(rec.ExpiresAt).Round(time.Second)
	fmt.Fprintf(out, "Session expires at %s (in %s)\n", rec.ExpiresAt.Local().Format(time.RFC3339), remaining)
}
