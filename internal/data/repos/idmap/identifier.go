package idmap

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/idmap-backend/internal/domain"
	"github.com/yungbote/idmap-backend/internal/pkg/dbctx"
	"github.com/yungbote/idmap-backend/internal/platform/logger"
)

type IdentifierRepo interface {
	// GetOrCreate inserts (schemeID, value) unless it exists and returns the
	// stored row with its Scheme loaded. created is true only for the caller
	// whose insert won.
	GetOrCreate(dbc dbctx.Context, schemeID uint, value string) (*types.Identifier, bool, error)
	GetBySchemeAndValue(dbc dbctx.Context, schemeID uint, value string) (*types.Identifier, error)
	GetByIDs(dbc dbctx.Context, identifierIDs []uint) ([]*types.Identifier, error)
	ListByScheme(dbc dbctx.Context, schemeID uint) ([]*types.Identifier, error)
}

type identifierRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIdentifierRepo(db *gorm.DB, baseLog *logger.Logger) IdentifierRepo {
	repoLog := baseLog.With("repo", "IdentifierRepo")
	return &identifierRepo{db: db, log: repoLog}
}

func (r *identifierRepo) GetOrCreate(dbc dbctx.Context, schemeID uint, value string) (*types.Identifier, bool, error) {
	row := &types.Identifier{SchemeID: schemeID, Value: value}
	res := dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "scheme_id"}, {Name: "value"}},
			DoNothing: true,
		}).
		Omit(clause.Associations).
		Create(row)
	if res.Error != nil {
		return nil, false, res.Error
	}
	created := res.RowsAffected == 1

	stored, err := r.GetBySchemeAndValue(dbc, schemeID, value)
	if err != nil {
		return nil, false, err
	}
	if stored == nil {
		return nil, false, gorm.ErrRecordNotFound
	}
	if created {
		r.log.Debug("Identifier created", "scheme_id", schemeID, "identifier_id", stored.ID)
	}
	return stored, created, nil
}

func (r *identifierRepo) GetBySchemeAndValue(dbc dbctx.Context, schemeID uint, value string) (*types.Identifier, error) {
	var row types.Identifier
	err := dbc.DB(r.db).
		Preload("Scheme").
		Where("scheme_id = ? AND value = ?", schemeID, value).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *identifierRepo) GetByIDs(dbc dbctx.Context, identifierIDs []uint) ([]*types.Identifier, error) {
	var results []*types.Identifier
	if len(identifierIDs) == 0 {
		return results, nil
	}
	if err := dbc.DB(r.db).
		Preload("Scheme").
		Where("id IN ?", identifierIDs).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *identifierRepo) ListByScheme(dbc dbctx.Context, schemeID uint) ([]*types.Identifier, error) {
	var results []*types.Identifier
	if err := dbc.DB(r.db).
		Preload("Scheme").
		Where("scheme_id = ?", schemeID).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
