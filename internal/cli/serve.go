package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/idmap-backend/internal/app"
)

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var port int
	var seed string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Migrate the database and serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port > 0 {
				rootOpts.cfg.Port = port
			}
			return withApp(cmd.Context(), rootOpts, func(a *app.App) error {
				if seed != "" {
					if _, err := a.Services.Scheme.SeedFile(cmd.Context(), seed); err != nil {
						return err
					}
				}
				return a.Run(cmd.Context(), fmt.Sprintf(":%d", a.Cfg.Port))
			})
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port, overrides PORT")
	cmd.Flags().StringVar(&seed, "seed", "", "YAML file of schemes to create before serving")
	return cmd
}
