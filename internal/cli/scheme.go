package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/idmap-backend/internal/app"
)

func NewSchemeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scheme",
		Short: "Manage identifier schemes",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: "Create a scheme",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), rootOpts, func(a *app.App) error {
				s, err := a.Services.Scheme.Create(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", s.ID, s.Name)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List schemes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), rootOpts, func(a *app.App) error {
				rows, err := a.Services.Scheme.List(cmd.Context())
				if err != nil {
					return err
				}
				for _, s := range rows {
					fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", s.ID, s.Name)
				}
				return nil
			})
		},
	})

	return cmd
}
