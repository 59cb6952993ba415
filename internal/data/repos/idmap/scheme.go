package idmap

import (
	"gorm.io/gorm"

	types "github.com/yungbote/idmap-backend/internal/domain"
	"github.com/yungbote/idmap-backend/internal/pkg/dbctx"
	"github.com/yungbote/idmap-backend/internal/platform/logger"
)

type SchemeRepo interface {
	Create(dbc dbctx.Context, schemes []*types.Scheme) ([]*types.Scheme, error)
	GetByIDs(dbc dbctx.Context, schemeIDs []uint) ([]*types.Scheme, error)
	GetByNames(dbc dbctx.Context, names []string) ([]*types.Scheme, error)
	GetByName(dbc dbctx.Context, name string) (*types.Scheme, error)
	List(dbc dbctx.Context) ([]*types.Scheme, error)
}

type schemeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSchemeRepo(db *gorm.DB, baseLog *logger.Logger) SchemeRepo {
	repoLog := baseLog.With("repo", "SchemeRepo")
	return &schemeRepo{db: db, log: repoLog}
}

func (r *schemeRepo) Create(dbc dbctx.Context, schemes []*types.Scheme) ([]*types.Scheme, error) {
	if len(schemes) == 0 {
		return []*types.Scheme{}, nil
	}
	if err := dbc.DB(r.db).Create(&schemes).Error; err != nil {
		return nil, err
	}
	return schemes, nil
}

func (r *schemeRepo) GetByIDs(dbc dbctx.Context, schemeIDs []uint) ([]*types.Scheme, error) {
	var results []*types.Scheme
	if len(schemeIDs) == 0 {
		return results, nil
	}
	if err := dbc.DB(r.db).
		Where("id IN ?", schemeIDs).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *schemeRepo) GetByNames(dbc dbctx.Context, names []string) ([]*types.Scheme, error) {
	var results []*types.Scheme
	if len(names) == 0 {
		return results, nil
	}
	if err := dbc.DB(r.db).
		Where("name IN ?", names).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetByName returns the lowest-id scheme called exactly name, or nil.
func (r *schemeRepo) GetByName(dbc dbctx.Context, name string) (*types.Scheme, error) {
	if name == "" {
		return nil, nil
	}
	rows, err := r.GetByNames(dbc, []string{name})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *schemeRepo) List(dbc dbctx.Context) ([]*types.Scheme, error) {
	var results []*types.Scheme
	if err := dbc.DB(r.db).Order("id ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
