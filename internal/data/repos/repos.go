package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/idmap-backend/internal/data/repos/idmap"
	"github.com/yungbote/idmap-backend/internal/platform/logger"
)

type SchemeRepo = idmap.SchemeRepo
type IdentifierRepo = idmap.IdentifierRepo
type EquivalenceClaimRepo = idmap.EquivalenceClaimRepo
type APIKeyRepo = idmap.APIKeyRepo

var IsUniqueViolation = idmap.IsUniqueViolation

func NewSchemeRepo(db *gorm.DB, baseLog *logger.Logger) SchemeRepo {
	return idmap.NewSchemeRepo(db, baseLog)
}
func NewIdentifierRepo(db *gorm.DB, baseLog *logger.Logger) IdentifierRepo {
	return idmap.NewIdentifierRepo(db, baseLog)
}
func NewEquivalenceClaimRepo(db *gorm.DB, baseLog *logger.Logger) EquivalenceClaimRepo {
	return idmap.NewEquivalenceClaimRepo(db, baseLog)
}
func NewAPIKeyRepo(db *gorm.DB, baseLog *logger.Logger) APIKeyRepo {
	return idmap.NewAPIKeyRepo(db, baseLog)
}
