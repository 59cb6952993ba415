package services

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/yungbote/idmap-backend/internal/clients/redis"
	"github.com/yungbote/idmap-backend/internal/data/repos"
	types "github.com/yungbote/idmap-backend/internal/domain"
	"github.com/yungbote/idmap-backend/internal/observability"
	"github.com/yungbote/idmap-backend/internal/pkg/dbctx"
	"github.com/yungbote/idmap-backend/internal/platform/apierr"
	"github.com/yungbote/idmap-backend/internal/platform/ctxutil"
	"github.com/yungbote/idmap-backend/internal/platform/logger"
)

const identifierValueMaxLength = 512

type ClaimSide struct {
	SchemeID uint
	Value    string
}

type SubmitClaimInput struct {
	IdentifierA ClaimSide
	IdentifierB ClaimSide
	Deprecated  bool
	Comment     string
}

type SubmitClaimResult struct {
	Claim       *types.EquivalenceClaim
	IdentifierA *types.Identifier
	IdentifierB *types.Identifier
	CreatedA    bool
	CreatedB    bool
}

type ClaimService interface {
	// Submit appends one claim attributed to the API key carried by ctx,
	// creating either identifier on first reference.
	Submit(ctx context.Context, in SubmitClaimInput) (*SubmitClaimResult, error)
}

type claimService struct {
	db          *gorm.DB
	log         *logger.Logger
	schemes     repos.SchemeRepo
	identifiers repos.IdentifierRepo
	claims      repos.EquivalenceClaimRepo
	bus         redis.ClaimBus
	metrics     *observability.Metrics
	now         func() time.Time
}

func NewClaimService(
	db *gorm.DB,
	baseLog *logger.Logger,
	schemes repos.SchemeRepo,
	identifiers repos.IdentifierRepo,
	claims repos.EquivalenceClaimRepo,
	bus redis.ClaimBus,
	metrics *observability.Metrics,
) ClaimService {
	if bus == nil {
		bus = redis.NopClaimBus{}
	}
	return &claimService{
		db:          db,
		log:         baseLog.With("service", "ClaimService"),
		schemes:     schemes,
		identifiers: identifiers,
		claims:      claims,
		bus:         bus,
		metrics:     metrics,
		now:         time.Now,
	}
}

func (s *claimService) Submit(ctx context.Context, in SubmitClaimInput) (*SubmitClaimResult, error) {
	ctx, span := observability.Tracer().Start(ctx, "ClaimService.Submit")
	defer span.End()

	keyID, ok := ctxutil.APIKeyID(ctx)
	if !ok {
		s.metrics.IncAuthRejected()
		return nil, apierr.Forbidden(apierr.CodeInvalidAPIKey, APIKeyRequiredMessage)
	}
	if err := validateClaimInput(in); err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.Int64("idmap.scheme_a", int64(in.IdentifierA.SchemeID)),
		attribute.Int64("idmap.scheme_b", int64(in.IdentifierB.SchemeID)),
		attribute.Bool("idmap.deprecated", in.Deprecated),
	)

	out := &SubmitClaimResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		if _, err := schemeByID(inner, s.schemes, in.IdentifierA.SchemeID); err != nil {
			return err
		}
		if in.IdentifierB.SchemeID != in.IdentifierA.SchemeID {
			if _, err := schemeByID(inner, s.schemes, in.IdentifierB.SchemeID); err != nil {
				return err
			}
		}

		a, b, err := s.getOrCreateSides(inner, in.IdentifierA, in.IdentifierB)
		if err != nil {
			return err
		}

		claim := &types.EquivalenceClaim{
			IdentifierAID: a.ident.ID,
			IdentifierBID: b.ident.ID,
			Created:       s.now().UTC().Truncate(time.Microsecond),
			Deprecated:    in.Deprecated,
			Comment:       in.Comment,
			APIKeyID:      &keyID,
		}
		if _, err := s.claims.Create(inner, []*types.EquivalenceClaim{claim}); err != nil {
			return fmt.Errorf("insert claim: %w", err)
		}
		claim.IdentifierA, claim.IdentifierB = a.ident, b.ident

		out.Claim = claim
		out.IdentifierA, out.CreatedA = a.ident, a.created
		out.IdentifierB, out.CreatedB = b.ident, b.created
		return nil
	})
	if err != nil {
		if apierr.StatusOf(err) >= 500 {
			s.log.Warn("Claim submission failed", "error", err, "api_key_id", keyID)
		}
		return nil, traceError(span, err)
	}

	s.metrics.IncClaimRecorded(out.Claim.Deprecated)
	if out.CreatedA {
		s.metrics.IncIdentifierCreated(out.IdentifierA.SchemeID)
	}
	if out.CreatedB {
		s.metrics.IncIdentifierCreated(out.IdentifierB.SchemeID)
	}
	span.SetAttributes(attribute.Int64("idmap.claim_id", int64(out.Claim.ID)))
	s.log.Info("Equivalence claim recorded",
		"claim_id", out.Claim.ID,
		"identifier_a_id", out.IdentifierA.ID,
		"identifier_b_id", out.IdentifierB.ID,
		"deprecated", out.Claim.Deprecated,
		"api_key_id", keyID,
	)
	s.publish(ctx, out)
	return out, nil
}

type resolvedSide struct {
	ident   *types.Identifier
	created bool
}

// getOrCreateSides inserts in (scheme_id, value) order whatever order the
// sides arrive in, so concurrent claims over one pair take the identifier
// index locks in the same sequence. Equal sides resolve a first.
func (s *claimService) getOrCreateSides(dbc dbctx.Context, a, b ClaimSide) (resolvedSide, resolvedSide, error) {
	swapped := sideLess(b, a)
	first, second := a, b
	if swapped {
		first, second = b, a
	}
	r1, err := s.getOrCreate(dbc, first)
	if err != nil {
		return resolvedSide{}, resolvedSide{}, err
	}
	r2, err := s.getOrCreate(dbc, second)
	if err != nil {
		return resolvedSide{}, resolvedSide{}, err
	}
	if swapped {
		return r2, r1, nil
	}
	return r1, r2, nil
}

func (s *claimService) getOrCreate(dbc dbctx.Context, side ClaimSide) (resolvedSide, error) {
	ident, created, err := s.identifiers.GetOrCreate(dbc, side.SchemeID, side.Value)
	if err != nil {
		return resolvedSide{}, fmt.Errorf("get or create identifier %d/%q: %w", side.SchemeID, side.Value, err)
	}
	return resolvedSide{ident: ident, created: created}, nil
}

func sideLess(x, y ClaimSide) bool {
	if x.SchemeID != y.SchemeID {
		return x.SchemeID < y.SchemeID
	}
	return x.Value < y.Value
}

// publish runs after commit. Delivery failures never fail the request.
func (s *claimService) publish(ctx context.Context, res *SubmitClaimResult) {
	evt := redis.ClaimEvent{
		ClaimID: res.Claim.ID,
		IdentifierA: redis.EventSide{
			SchemeID: res.IdentifierA.SchemeID,
			Value:    res.IdentifierA.Value,
			Created:  res.CreatedA,
		},
		IdentifierB: redis.EventSide{
			SchemeID: res.IdentifierB.SchemeID,
			Value:    res.IdentifierB.Value,
			Created:  res.CreatedB,
		},
		Deprecated: res.Claim.Deprecated,
		Comment:    res.Claim.Comment,
		Created:    res.Claim.Created,
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.bus.Publish(pubCtx, evt); err != nil {
		s.metrics.IncClaimEvent("error")
		s.log.Warn("Claim event publish failed", "error", err, "claim_id", res.Claim.ID)
		return
	}
	s.metrics.IncClaimEvent("ok")
}

func validateClaimInput(in SubmitClaimInput) error {
	for _, side := range []struct {
		name string
		ClaimSide
	}{{"identifier_a", in.IdentifierA}, {"identifier_b", in.IdentifierB}} {
		if side.SchemeID == 0 {
			return apierr.BadRequest(apierr.CodeMalformedRequest, "%s.scheme_id must be a positive integer", side.name)
		}
		if utf8.RuneCountInString(side.Value) > identifierValueMaxLength {
			return apierr.BadRequest(apierr.CodeMalformedRequest, "%s.value must be at most %d characters", side.name, identifierValueMaxLength)
		}
	}
	return nil
}
