package services

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/idmap-backend/internal/data/repos"
	"github.com/yungbote/idmap-backend/internal/modules/equivalence"
	"github.com/yungbote/idmap-backend/internal/observability"
	"github.com/yungbote/idmap-backend/internal/pkg/dbctx"
	"github.com/yungbote/idmap-backend/internal/platform/apierr"
	"github.com/yungbote/idmap-backend/internal/platform/logger"
)

type IdentifierService interface {
	// Lookup resolves the identifier (schemeRef, value) against its full claim
	// history. schemeRef is a numeric scheme id or a scheme name.
	Lookup(ctx context.Context, schemeRef, value string) (*equivalence.Resolution, error)
}

type identifierService struct {
	log         *logger.Logger
	schemes     repos.SchemeRepo
	identifiers repos.IdentifierRepo
	claims      repos.EquivalenceClaimRepo
	metrics     *observability.Metrics
}

func NewIdentifierService(baseLog *logger.Logger, schemes repos.SchemeRepo, identifiers repos.IdentifierRepo, claims repos.EquivalenceClaimRepo, metrics *observability.Metrics) IdentifierService {
	return &identifierService{
		log:         baseLog.With("service", "IdentifierService"),
		schemes:     schemes,
		identifiers: identifiers,
		claims:      claims,
		metrics:     metrics,
	}
}

func (s *identifierService) Lookup(ctx context.Context, schemeRef, value string) (*equivalence.Resolution, error) {
	ctx, span := observability.Tracer().Start(ctx, "IdentifierService.Lookup")
	defer span.End()
	span.SetAttributes(attribute.String("idmap.scheme_ref", schemeRef))

	start := time.Now()
	dbc := dbctx.New(ctx)
	scheme, err := resolveSchemeRef(dbc, s.schemes, schemeRef)
	if err != nil {
		return nil, traceError(span, err)
	}
	root, err := s.identifiers.GetBySchemeAndValue(dbc, scheme.ID, value)
	if err != nil {
		s.log.Warn("Identifier query failed", "error", err, "scheme_id", scheme.ID)
		return nil, traceError(span, fmt.Errorf("load identifier: %w", err))
	}
	if root == nil {
		return nil, apierr.NotFound(apierr.CodeIdentifierNotFound, "identifier %q not found in scheme %q", value, scheme.Name)
	}
	claims, err := s.claims.ListForIdentifier(dbc, root.ID)
	if err != nil {
		s.log.Warn("Claim history query failed", "error", err, "identifier_id", root.ID)
		return nil, traceError(span, fmt.Errorf("load claim history: %w", err))
	}
	res, err := equivalence.Resolve(root, claims)
	if err != nil {
		s.log.Error("Identifier resolution inconsistent", "error", err, "identifier_id", root.ID)
		return nil, traceError(span, consistencyError(err))
	}
	span.SetAttributes(attribute.Int("idmap.claims", len(claims)), attribute.Int("idmap.current", len(res.Current)))
	s.metrics.ObserveResolution("identifier", len(claims), time.Since(start))
	return res, nil
}
