package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sessionkeeper/internal/agent"
	"sessionkeeper/pkg/logging"
)

func newAgentCmd() *cobra.Command {
	var (
		noBrowser  bool
		listenAddr string
		jsonLogs   bool
	)

	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Keep the tab logged in in the background",
		Long: `Run a long-lived agent for the tab.

The agent logs the tab in, warns before the session expires and starts a new
login once it has. Local programs fetch the current access token from its
HTTP API instead of reading the token store:

  GET  /v1/token     current access token (401 when there is none)
  GET  /v1/session   agent and session state
  POST /v1/handoff   publish the session for another tab
  POST /v1/refresh   discard the session and log in again

POST requests must carry "X-Sessionkeeper-Request: 1". Requests with an
Origin header are refused, so web pages cannot drive the API.

Under systemd the agent reports readiness with sd_notify (Type=notify).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonLogs {
				level, err := logging.ParseLevel(logLevel)
				if err != nil {
					return err
				}
				logging.InitForAgent(level, cmd.ErrOrStderr())
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

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

			if listenAddr == "" {
				listenAddr = ts.cfg.Agent.ListenAddress
			}
			a := agent.New(agent.Options{
				Session:       ts.manager,
				Location:      ts.location,
				Returns:       srv,
				ListenAddress: listenAddr,
			})
			printf(cmd, "Agent %s keeping tab %s logged in, API on http://%s\n", a.ID(), ts.manager.Tab(), listenAddr)
			return a.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Print authorization URLs instead of opening a browser")
	cmd.Flags().StringVar(&listenAddr, "listen", "", "API listen address (defaults to agent.listenAddress from the configuration)")
	cmd.Flags().BoolVar(&jsonLogs, "json-logs", true, "Log as JSON")
	return cmd
}
