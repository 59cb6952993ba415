package app

import (
	"github.com/yungbote/idmap-backend/internal/http"
	"github.com/yungbote/idmap-backend/internal/observability"
	"github.com/yungbote/idmap-backend/internal/platform/logger"
)

func wireServer(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *http.Server {
	return http.NewServer(http.RouterConfig{
		Log:            log,
		Metrics:        metrics,
		CORSOrigins:    cfg.CORSOrigins,
		TracingEnabled: cfg.Otel.Enabled,
		ServiceName:    cfg.Otel.ServiceName,
		RequestTimeout: cfg.RequestTimeout,

		RequireAPIKey: middleware.RequireAPIKey,

		HealthHandler:     handlers.Health,
		IdentifierHandler: handlers.Identifier,
		ClaimHandler:      handlers.Claim,
		SchemeHandler:     handlers.Scheme,
	})
}
