package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/idmap-backend/internal/app"
	"github.com/yungbote/idmap-backend/internal/platform/envutil"
	"github.com/yungbote/idmap-backend/internal/platform/logger"
)

// RootOptions holds global flags and the state built from them before any
// subcommand runs.
type RootOptions struct {
	LogMode  string
	DBDriver string

	log *logger.Logger
	cfg app.Config
}

// NewRootCommand creates the idmap command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "idmap",
		Short:         "Identifier equivalence service",
		Long:          "Records equivalence claims between identifiers in different schemes and resolves their current equivalents.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log, err := logger.New(opts.LogMode)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			opts.log = log
			opts.cfg = app.LoadConfig(log)
			if opts.DBDriver != "" {
				opts.cfg.DBDriver = opts.DBDriver
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.log != nil {
				opts.log.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.LogMode, "log-mode", envutil.String("LOG_MODE", "development"), "logger mode (development|production|test)")
	cmd.PersistentFlags().StringVar(&opts.DBDriver, "db-driver", "", "database driver (postgres|sqlite), overrides DB_DRIVER")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSchemeCommand(opts))
	cmd.AddCommand(NewAPIKeyCommand(opts))
	cmd.AddCommand(NewClaimsCommand(opts))

	return cmd
}

// Execute runs the command tree against ctx.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// withApp builds the application for one command and tears it down after.
func withApp(ctx context.Context, opts *RootOptions, fn func(a *app.App) error) error {
	a, err := app.New(ctx, opts.log, opts.cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
