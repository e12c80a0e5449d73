package cmd

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the identity behind the tab's session",
		Long: `Query the identity endpoint with the tab's access token and print the
result. Unlike login, a rejected token is reported and left in place.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ts, err := openTab(ctx, cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}
			defer ts.Close()

			token, ok := ts.manager.GetValidAccessToken(ctx)
			if !ok {
				return &AuthRequiredError{Tab: ts.manager.Tab()}
			}

			identity, err := ts.manager.Identity().FetchIdentity(ctx, token)
			if err != nil {
				return &AuthFailedError{Tab: ts.manager.Tab(), Reason: err}
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleRounded)
			t.AppendRow(table.Row{"Name", identity.Name()})
			if identity.ID != "" {
				t.AppendRow(table.Row{"ID", identity.ID})
			}
			if identity.Email != "" {
				t.AppendRow(table.Row{"Email", identity.Email})
			}
			if identity.Country != "" {
				t.AppendRow(table.Row{"Country", identity.Country})
			}
			if identity.Product != "" {
				t.AppendRow(table.Row{"Product", identity.Product})
			}
			t.Render()
			return nil
		},
	}
}
