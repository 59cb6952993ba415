package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/idmap-backend/internal/app"
)

func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	var seed string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Long: `Create or update the database schema.

With --seed, schemes listed in the YAML file that do not exist yet are
created afterwards:

  schemes:
    - name: uk-area_id
    - name: wikidata-district-item`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), rootOpts, func(a *app.App) error {
				if seed == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "migrated")
					return nil
				}
				created, err := a.Services.Scheme.SeedFile(cmd.Context(), seed)
				if err != nil {
					return err
				}
				for _, s := range created {
					fmt.Fprintf(cmd.OutOrStdout(), "created scheme %d %s\n", s.ID, s.Name)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "migrated, %d scheme(s) seeded\n", len(created))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&seed, "seed", "", "YAML file of schemes to create")
	return cmd
}
