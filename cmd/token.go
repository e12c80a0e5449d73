package cmd

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"sessionkeeper/internal/agent"
)

func newTokenCmd() *cobra.Command {
	var fromAgent bool

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print the tab's access token",
		Long: `Print the tab's access token if it is still usable.

A token is usable until 60 seconds before it expires. Exits with status 2
when there is no usable token.

Examples:
  curl -H "Authorization: Bearer $(sessionkeeper token)" https://api.example.com/v1/me
  sessionkeeper token --from-agent`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if fromAgent {
				return printAgentToken(cmd)
			}

			ts, err := openTab(cmd.Context(), cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}
			defer ts.Close()

			token, ok := ts.manager.GetValidAccessToken(cmd.Context())
			if !ok {
				return &AuthRequiredError{Tab: ts.manager.Tab()}
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().BoolVar(&fromAgent, "from-agent", false, "Ask the running agent instead of reading local storage")
	return cmd
}

func printAgentToken(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	resp, err := agent.NewClient(cfg.Agent.ListenAddress).Token(cmd.Context())
	var apiErr *agent.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		return &AuthRequiredError{Tab: tabName}
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), resp.AccessToken)
	return nil
}
