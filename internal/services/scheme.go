package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/yungbote/idmap-backend/internal/data/repos"
	types "github.com/yungbote/idmap-backend/internal/domain"
	"github.com/yungbote/idmap-backend/internal/modules/equivalence"
	"github.com/yungbote/idmap-backend/internal/observability"
	"github.com/yungbote/idmap-backend/internal/pkg/dbctx"
	"github.com/yungbote/idmap-backend/internal/platform/apierr"
	"github.com/yungbote/idmap-backend/internal/platform/logger"
)

const schemeNameMaxLength = 512

type SchemeService interface {
	List(ctx context.Context) ([]*types.Scheme, error)
	// Get resolves a numeric id or a scheme name.
	Get(ctx context.Context, ref string) (*types.Scheme, error)
	Create(ctx context.Context, name string) (*types.Scheme, error)
	// Seed creates every scheme named in a YAML seed document that does not
	// exist yet and returns the created rows.
	Seed(ctx context.Context, r io.Reader) ([]*types.Scheme, error)
	SeedFile(ctx context.Context, path string) ([]*types.Scheme, error)
	ResolveScheme(ctx context.Context, schemeID uint) (*equivalence.SchemeResolution, error)
}

// SchemeSeed is the document read by Seed:
//
//	schemes:
//	  - name: uk-area_id
//	  - name: wikidata-district-item
type SchemeSeed struct {
	Schemes []SchemeSeedEntry `yaml:"schemes"`
}

type SchemeSeedEntry struct {
	Name string `yaml:"name"`
}

type schemeService struct {
	db      *gorm.DB
	log     *logger.Logger
	schemes repos.SchemeRepo
	claims  repos.EquivalenceClaimRepo
	metrics *observability.Metrics
}

func NewSchemeService(db *gorm.DB, baseLog *logger.Logger, schemes repos.SchemeRepo, claims repos.EquivalenceClaimRepo, metrics *observability.Metrics) SchemeService {
	return &schemeService{
		db:      db,
		log:     baseLog.With("service", "SchemeService"),
		schemes: schemes,
		claims:  claims,
		metrics: metrics,
	}
}

func (s *schemeService) List(ctx context.Context) ([]*types.Scheme, error) {
	rows, err := s.schemes.List(dbctx.New(ctx))
	if err != nil {
		s.log.Warn("Scheme list failed", "error", err)
		return nil, fmt.Errorf("list schemes: %w", err)
	}
	return rows, nil
}

func (s *schemeService) Get(ctx context.Context, ref string) (*types.Scheme, error) {
	return resolveSchemeRef(dbctx.New(ctx), s.schemes, ref)
}

func (s *schemeService) Create(ctx context.Context, name string) (*types.Scheme, error) {
	name, err := normalizeSchemeName(name)
	if err != nil {
		return nil, err
	}
	created, err := s.schemes.Create(dbctx.New(ctx), []*types.Scheme{{Name: name}})
	if err != nil {
		s.log.Warn("Scheme create failed", "error", err, "name", name)
		return nil, fmt.Errorf("create scheme: %w", err)
	}
	s.log.Info("Scheme created", "scheme_id", created[0].ID, "name", name)
	return created[0], nil
}

func (s *schemeService) SeedFile(ctx context.Context, path string) ([]*types.Scheme, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return s.Seed(ctx, f)
}

func (s *schemeService) Seed(ctx context.Context, r io.Reader) ([]*types.Scheme, error) {
	var doc SchemeSeed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, apierr.BadRequest(apierr.CodeMalformedRequest, "parse scheme seed: %v", err)
	}

	var names []string
	seen := map[string]bool{}
	for _, entry := range doc.Schemes {
		name, err := normalizeSchemeName(entry.Name)
		if err != nil {
			return nil, err
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	if len(names) == 0 {
		return []*types.Scheme{}, nil
	}

	var created []*types.Scheme
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		existing, err := s.schemes.GetByNames(inner, names)
		if err != nil {
			return err
		}
		have := map[string]bool{}
		for _, sc := range existing {
			have[sc.Name] = true
		}
		var missing []*types.Scheme
		for _, name := range names {
			if !have[name] {
				missing = append(missing, &types.Scheme{Name: name})
			}
		}
		rows, err := s.schemes.Create(inner, missing)
		if err != nil {
			return err
		}
		created = rows
		return nil
	})
	if err != nil {
		s.log.Warn("Scheme seed failed", "error", err)
		return nil, fmt.Errorf("seed schemes: %w", err)
	}
	s.log.Info("Schemes seeded", "requested", len(names), "created", len(created))
	return created, nil
}

func (s *schemeService) ResolveScheme(ctx context.Context, schemeID uint) (*equivalence.SchemeResolution, error) {
	ctx, span := observability.Tracer().Start(ctx, "SchemeService.ResolveScheme")
	defer span.End()
	span.SetAttributes(attribute.Int64("idmap.scheme_id", int64(schemeID)))

	start := time.Now()
	dbc := dbctx.New(ctx)
	if _, err := schemeByID(dbc, s.schemes, schemeID); err != nil {
		return nil, traceError(span, err)
	}
	claims, err := s.claims.ListForScheme(dbc, schemeID)
	if err != nil {
		s.log.Warn("Scheme claim history query failed", "error", err, "scheme_id", schemeID)
		return nil, traceError(span, fmt.Errorf("load scheme claims: %w", err))
	}
	res, err := equivalence.ResolveScheme(schemeID, claims)
	if err != nil {
		s.log.Error("Scheme resolution inconsistent", "error", err, "scheme_id", schemeID)
		return nil, traceError(span, consistencyError(err))
	}
	span.SetAttributes(attribute.Int("idmap.claims", len(claims)), attribute.Int("idmap.values", len(res.Values)))
	s.metrics.ObserveResolution("scheme", len(claims), time.Since(start))
	return res, nil
}

func normalizeSchemeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apierr.BadRequest(apierr.CodeMalformedRequest, "scheme name is required")
	}
	if utf8.RuneCountInString(name) > schemeNameMaxLength {
		return "", apierr.BadRequest(apierr.CodeMalformedRequest, "scheme name must be at most %d characters", schemeNameMaxLength)
	}
	if isDigits(name) {
		return "", apierr.BadRequest(apierr.CodeMalformedRequest, "scheme name must not be all digits")
	}
	return name, nil
}
