package app

import (
	"fmt"

	"github.com/yungbote/idmap-backend/internal/clients/redis"
	"github.com/yungbote/idmap-backend/internal/platform/logger"
)

type Clients struct {
	ClaimBus redis.ClaimBus
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	// Redis
	var bus redis.ClaimBus = redis.NopClaimBus{}
	if cfg.RedisAddr != "" {
		b, err := redis.NewClaimBus(log, redis.ClaimBusConfig{
			Addr:    cfg.RedisAddr,
			Channel: cfg.RedisClaimChannel,
		})
		if err != nil {
			return Clients{}, fmt.Errorf("init redis claim bus: %w", err)
		}
		bus = b
	}
	return Clients{ClaimBus: bus}, nil
}

func (c Clients) Close() {
	if c.ClaimBus != nil {
		_ = c.ClaimBus.Close()
	}
}
