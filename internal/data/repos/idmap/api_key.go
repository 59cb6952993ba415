package idmap

import (
	"errors"

	"gorm.io/gorm"

	types "github.com/yungbote/idmap-backend/internal/domain"
	"github.com/yungbote/idmap-backend/internal/pkg/dbctx"
	"github.com/yungbote/idmap-backend/internal/platform/logger"
)

type APIKeyRepo interface {
	Create(dbc dbctx.Context, key *types.APIKey) (*types.APIKey, error)
	GetByKey(dbc dbctx.Context, key string) (*types.APIKey, error)
}

type apiKeyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAPIKeyRepo(db *gorm.DB, baseLog *logger.Logger) APIKeyRepo {
	repoLog := baseLog.With("repo", "APIKeyRepo")
	return &apiKeyRepo{db: db, log: repoLog}
}

func (r *apiKeyRepo) Create(dbc dbctx.Context, key *types.APIKey) (*types.APIKey, error) {
	if key == nil {
		return nil, errors.New("nil api key")
	}
	if err := dbc.DB(r.db).Create(key).Error; err != nil {
		return nil, err
	}
	return key, nil
}

// GetByKey returns the matching key, or nil when there is none.
func (r *apiKeyRepo) GetByKey(dbc dbctx.Context, key string) (*types.APIKey, error) {
	if key == "" {
		return nil, nil
	}
	var row types.APIKey
	err := dbc.DB(r.db).Where("key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
