package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/idmap-backend/internal/data/repos"
	"github.com/yungbote/idmap-backend/internal/platform/logger"
)

type Repos struct {
	Scheme           repos.SchemeRepo
	Identifier       repos.IdentifierRepo
	EquivalenceClaim repos.EquivalenceClaimRepo
	APIKey           repos.APIKeyRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Scheme:           repos.NewSchemeRepo(db, log),
		Identifier:       repos.NewIdentifierRepo(db, log),
		EquivalenceClaim: repos.NewEquivalenceClaimRepo(db, log),
		APIKey:           repos.NewAPIKeyRepo(db, log),
	}
}
