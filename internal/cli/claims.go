package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/idmap-backend/internal/clients/redis"
)

func NewClaimsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claims",
		Short: "Inspect equivalence claims",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "watch",
		Short: "Print claim events from Redis as JSON lines until interrupted; malformed events go to stderr",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rootOpts.cfg
			if cfg.RedisAddr == "" {
				return fmt.Errorf("claims watch needs REDIS_ADDR")
			}
			bus, err := redis.NewClaimBus(rootOpts.log, redis.ClaimBusConfig{
				Addr:    cfg.RedisAddr,
				Channel: cfg.RedisClaimChannel,
			})
			if err != nil {
				return err
			}
			defer bus.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			errOut := cmd.ErrOrStderr()
			return bus.Watch(cmd.Context(), redis.ClaimWatcher{
				OnEvent: func(evt redis.ClaimEvent) {
					_ = enc.Encode(evt)
				},
				OnMalformed: func(err error) {
					fmt.Fprintf(errOut, "skipped: %v\n", err)
				},
			})
		},
	})

	return cmd
}
