package app

import (
	"time"

	"github.com/yungbote/idmap-backend/internal/clients/redis"
	"github.com/yungbote/idmap-backend/internal/data/db"
	"github.com/yungbote/idmap-backend/internal/observability"
	"github.com/yungbote/idmap-backend/internal/platform/envutil"
	"github.com/yungbote/idmap-backend/internal/platform/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Port    int
	LogMode string

	DBDriver   string
	Postgres   db.PostgresConfig
	SQLitePath string

	RedisAddr         string
	RedisClaimChannel string

	MetricsEnabled bool
	MetricsAddr    string
	Otel           observability.OtelConfig

	CORSOrigins     []string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:    envutil.Int("PORT", 8080),
		LogMode: envutil.String("LOG_MODE", "development"),

		DBDriver: envutil.String("DB_DRIVER", DriverPostgres),
		Postgres: db.PostgresConfig{
			Host:     envutil.String("POSTGRES_HOST", "localhost"),
			Port:     envutil.String("POSTGRES_PORT", "5432"),
			User:     envutil.String("POSTGRES_USER", "postgres"),
			Password: envutil.String("POSTGRES_PASSWORD", ""),
			Name:     envutil.String("POSTGRES_NAME", "idmap"),
			SSLMode:  envutil.String("POSTGRES_SSLMODE", "disable"),
		},
		SQLitePath: envutil.String("SQLITE_PATH", "idmap.db"),

		RedisAddr:         envutil.String("REDIS_ADDR", ""),
		RedisClaimChannel: envutil.String("REDIS_CLAIM_CHANNEL", redis.DefaultClaimChannel),

		MetricsEnabled: observability.Enabled(),
		MetricsAddr:    envutil.String("METRICS_ADDR", ":9090"),
		Otel:           observability.LoadOtelConfig(),

		CORSOrigins:     envutil.List("CORS_ALLOW_ORIGINS", nil),
		RequestTimeout:  time.Duration(envutil.Int("REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,
		ShutdownTimeout: time.Duration(envutil.Int("SHUTDOWN_TIMEOUT_SECONDS", 15)) * time.Second,
	}
	if log != nil {
		log.Info("Configuration loaded",
			"port", cfg.Port,
			"db_driver", cfg.DBDriver,
			"redis_enabled", cfg.RedisAddr != "",
			"metrics_enabled", cfg.MetricsEnabled,
			"otel_enabled", cfg.Otel.Enabled,
		)
	}
	return cfg
}
