package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/idmap-backend/internal/app"
)

func NewAPIKeyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage write API keys",
	}

	var key, notes string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an API key, generating one unless --key is given",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), rootOpts, func(a *app.App) error {
				k, err := a.Services.APIKey.Create(cmd.Context(), key, notes)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), k.Key)
				return nil
			})
		},
	}
	create.Flags().StringVar(&key, "key", "", "key to store (16 to 128 characters)")
	create.Flags().StringVar(&notes, "notes", "", "who the key was issued to")
	cmd.AddCommand(create)

	return cmd
}
