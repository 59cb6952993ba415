package idmap

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/idmap-backend/internal/domain"
	"github.com/yungbote/idmap-backend/internal/pkg/dbctx"
	"github.com/yungbote/idmap-backend/internal/platform/logger"
)

// EquivalenceClaimRepo is append-only: there is no update or delete path.
// List methods return claims in history order (created, then id) with both
// identifiers and their schemes loaded, using three statements whose bind
// count does not grow with the number of rows.
type EquivalenceClaimRepo interface {
	Create(dbc dbctx.Context, claims []*types.EquivalenceClaim) ([]*types.EquivalenceClaim, error)
	ListForIdentifier(dbc dbctx.Context, identifierID uint) ([]*types.EquivalenceClaim, error)
	ListForScheme(dbc dbctx.Context, schemeID uint) ([]*types.EquivalenceClaim, error)
}

type equivalenceClaimRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEquivalenceClaimRepo(db *gorm.DB, baseLog *logger.Logger) EquivalenceClaimRepo {
	repoLog := baseLog.With("repo", "EquivalenceClaimRepo")
	return &equivalenceClaimRepo{db: db, log: repoLog}
}

func (r *equivalenceClaimRepo) Create(dbc dbctx.Context, claims []*types.EquivalenceClaim) ([]*types.EquivalenceClaim, error) {
	if len(claims) == 0 {
		return []*types.EquivalenceClaim{}, nil
	}
	if err := dbc.DB(r.db).Omit(clause.Associations).Create(&claims).Error; err != nil {
		return nil, err
	}
	return claims, nil
}

func (r *equivalenceClaimRepo) ListForIdentifier(dbc dbctx.Context, identifierID uint) ([]*types.EquivalenceClaim, error) {
	return r.listWithSides(dbc, func(q *gorm.DB) *gorm.DB {
		return q.Where("identifier_a_id = ? OR identifier_b_id = ?", identifierID, identifierID)
	})
}

func (r *equivalenceClaimRepo) ListForScheme(dbc dbctx.Context, schemeID uint) ([]*types.EquivalenceClaim, error) {
	return r.listWithSides(dbc, func(q *gorm.DB) *gorm.DB {
		inScheme := q.Session(&gorm.Session{NewDB: true}).
			Model(&types.Identifier{}).
			Select("id").
			Where("scheme_id = ?", schemeID)
		return q.Where("identifier_a_id IN (?) OR identifier_b_id IN (?)", inScheme, inScheme)
	})
}

// listWithSides runs three statements: the claims, the identifiers on either
// side and their schemes. The side queries repeat filter as a subquery, so
// the bind count stays constant however many claims match.
func (r *equivalenceClaimRepo) listWithSides(dbc dbctx.Context, filter func(*gorm.DB) *gorm.DB) ([]*types.EquivalenceClaim, error) {
	q := dbc.DB(r.db)
	fresh := func() *gorm.DB { return q.Session(&gorm.Session{NewDB: true}) }
	claimsWhere := func() *gorm.DB { return filter(fresh().Model(&types.EquivalenceClaim{})) }

	var results []*types.EquivalenceClaim
	if err := historyOrder(claimsWhere()).Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return results, nil
	}

	sideIDs := func() *gorm.DB {
		return fresh().Model(&types.Identifier{}).
			Where("id IN (?) OR id IN (?)",
				claimsWhere().Select("identifier_a_id"),
				claimsWhere().Select("identifier_b_id"))
	}
	var idents []*types.Identifier
	if err := sideIDs().Find(&idents).Error; err != nil {
		return nil, err
	}
	var schemes []*types.Scheme
	if err := fresh().
		Where("id IN (?)", sideIDs().Select("scheme_id")).
		Find(&schemes).Error; err != nil {
		return nil, err
	}

	schemeByID := make(map[uint]*types.Scheme, len(schemes))
	for _, sc := range schemes {
		schemeByID[sc.ID] = sc
	}
	identByID := make(map[uint]*types.Identifier, len(idents))
	for _, ident := range idents {
		if ident.Scheme = schemeByID[ident.SchemeID]; ident.Scheme == nil {
			return nil, fmt.Errorf("identifier %d: scheme %d not loaded", ident.ID, ident.SchemeID)
		}
		identByID[ident.ID] = ident
	}
	for _, c := range results {
		c.IdentifierA, c.IdentifierB = identByID[c.IdentifierAID], identByID[c.IdentifierBID]
		if c.IdentifierA == nil || c.IdentifierB == nil {
			return nil, fmt.Errorf("claim %d: identifiers %d/%d not loaded", c.ID, c.IdentifierAID, c.IdentifierBID)
		}
	}
	return results, nil
}

func historyOrder(q *gorm.DB) *gorm.DB {
	return q.Order("created ASC").Order("id ASC")
}
