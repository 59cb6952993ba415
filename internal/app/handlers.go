package app

import (
	"context"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	httpH "github.com/yungbote/idmap-backend/internal/http/handlers"
	httpMW "github.com/yungbote/idmap-backend/internal/http/middleware"
	"github.com/yungbote/idmap-backend/internal/platform/logger"
)

type Middleware struct {
	RequireAPIKey gin.HandlerFunc
}

type Handlers struct {
	Health     *httpH.HealthHandler
	Identifier *httpH.IdentifierHandler
	Claim      *httpH.ClaimHandler
	Scheme     *httpH.SchemeHandler
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		RequireAPIKey: httpMW.RequireAPIKey(log, services.APIKey.Validate),
	}
}

func wireHandlers(log *logger.Logger, db *gorm.DB, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:     httpH.NewHealthHandler(pingDB(db)),
		Identifier: httpH.NewIdentifierHandler(services.Identifier),
		Claim:      httpH.NewClaimHandler(services.Claim),
		Scheme:     httpH.NewSchemeHandler(services.Scheme),
	}
}

func pingDB(db *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
