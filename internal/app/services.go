package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/idmap-backend/internal/observability"
	"github.com/yungbote/idmap-backend/internal/platform/logger"
	"github.com/yungbote/idmap-backend/internal/services"
)

type Services struct {
	APIKey     services.APIKeyService
	Scheme     services.SchemeService
	Identifier services.IdentifierService
	Claim      services.ClaimService
}

func wireServices(db *gorm.DB, log *logger.Logger, repos Repos, clients Clients, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")
	return Services{
		APIKey:     services.NewAPIKeyService(log, repos.APIKey, metrics),
		Scheme:     services.NewSchemeService(db, log, repos.Scheme, repos.EquivalenceClaim, metrics),
		Identifier: services.NewIdentifierService(log, repos.Scheme, repos.Identifier, repos.EquivalenceClaim, metrics),
		Claim: services.NewClaimService(
			db,
			log,
			repos.Scheme,
			repos.Identifier,
			repos.EquivalenceClaim,
			clients.ClaimBus,
			metrics,
		),
	}
}
