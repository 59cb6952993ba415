package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/idmap-backend/internal/data/repos"
	"github.com/yungbote/idmap-backend/internal/data/repos/testutil"
	types "github.com/yungbote/idmap-backend/internal/domain"
	"github.com/yungbote/idmap-backend/internal/platform/apierr"
	"github.com/yungbote/idmap-backend/internal/platform/ctxutil"
)

func TestSubmitCreatesIdentifiersOnce(t *testing.T) {
	f := newFixture(t)
	gss := ClaimSide{SchemeID: f.area.ID, Value: "gss:S17000017"}
	q := ClaimSide{SchemeID: f.wikidata.ID, Value: "Q1529479"}

	first := f.submit(t, gss, q, false)
	assert.True(t, first.CreatedA)
	assert.True(t, first.CreatedB)

	second := f.submit(t, gss, q, false)
	assert.False(t, second.CreatedA)
	assert.False(t, second.CreatedB)
	assert.Equal(t, first.IdentifierA.ID, second.IdentifierA.ID)
	assert.Equal(t, first.IdentifierB.ID, second.IdentifierB.ID)

	ctx := context.Background()
	assert.EqualValues(t, 2, testutil.CountRows(t, ctx, f.db, &types.Identifier{}))
	assert.EqualValues(t, 2, testutil.CountRows(t, ctx, f.db, &types.EquivalenceClaim{}))
}

func TestSubmitRecordsAttributionAndPublishes(t *testing.T) {
	f := newFixture(t)
	res := f.submit(t,
		ClaimSide{SchemeID: f.area.ID, Value: "gss:S17000017"},
		ClaimSide{SchemeID: f.wikidata.ID, Value: "Q1529479"},
		true,
	)

	var stored types.EquivalenceClaim
	require.NoError(t, f.db.First(&stored, res.Claim.ID).Error)
	require.NotNil(t, stored.APIKeyID)
	assert.Equal(t, f.key.ID, *stored.APIKeyID)
	assert.True(t, stored.Deprecated)
	assert.True(t, stored.Created.Equal(res.Claim.Created))

	require.Len(t, f.bus.events, 1)
	evt := f.bus.events[0]
	assert.Equal(t, res.Claim.ID, evt.ClaimID)
	assert.Equal(t, "gss:S17000017", evt.IdentifierA.Value)
	assert.True(t, evt.IdentifierA.Created)
	assert.True(t, evt.Deprecated)
}

func TestSubmitSucceedsWhenPublishFails(t *testing.T) {
	f := newFixture(t)
	f.bus.err = errors.New("redis down")
	f.submit(t,
		ClaimSide{SchemeID: f.area.ID, Value: "gss:S17000017"},
		ClaimSide{SchemeID: f.wikidata.ID, Value: "Q1529479"},
		false,
	)
	assert.EqualValues(t, 1, testutil.CountRows(t, context.Background(), f.db, &types.EquivalenceClaim{}))
}

func TestSubmitWithoutAPIKeyWritesNothing(t *testing.T) {
	f := newFixture(t)
	in := SubmitClaimInput{
		IdentifierA: ClaimSide{SchemeID: f.area.ID, Value: "gss:S17000017"},
		IdentifierB: ClaimSide{SchemeID: f.wikidata.ID, Value: "Q1529479"},
	}

	for name, ctx := range map[string]context.Context{
		"no request data": context.Background(),
		"zero key id":     ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{}),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.claims.Submit(ctx, in)
			require.Error(t, err)
			assert.True(t, apierr.IsForbidden(err))
		})
	}

	ctx := context.Background()
	assert.EqualValues(t, 0, testutil.CountRows(t, ctx, f.db, &types.Identifier{}))
	assert.EqualValues(t, 0, testutil.CountRows(t, ctx, f.db, &types.EquivalenceClaim{}))
	assert.Empty(t, f.bus.events)
}

func TestSubmitUnknownSchemeIsNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.claims.Submit(f.ctx, SubmitClaimInput{
		IdentifierA: ClaimSide{SchemeID: f.area.ID, Value: "gss:S17000017"},
		IdentifierB: ClaimSide{SchemeID: 999, Value: "Q1529479"},
	})
	require.Error(t, err)
	ae, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, ae.Status)
	assert.Equal(t, apierr.CodeSchemeNotFound, ae.Code)
	assert.EqualValues(t, 0, testutil.CountRows(t, context.Background(), f.db, &types.Identifier{}))
}

func TestSubmitRejectsMalformedInput(t *testing.T) {
	f := newFixture(t)
	long := make([]byte, identifierValueMaxLength+1)
	for i := range long {
		long[i] = 'x'
	}
	cases := map[string]SubmitClaimInput{
		"missing scheme a": {
			IdentifierB: ClaimSide{SchemeID: f.wikidata.ID, Value: "Q1529479"},
		},
		"value too long": {
			IdentifierA: ClaimSide{SchemeID: f.area.ID, Value: string(long)},
			IdentifierB: ClaimSide{SchemeID: f.wikidata.ID, Value: "Q1529479"},
		},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.claims.Submit(f.ctx, in)
			require.Error(t, err)
			assert.Equal(t, http.StatusBadRequest, apierr.StatusOf(err))
		})
	}
	assert.EqualValues(t, 0, testutil.CountRows(t, context.Background(), f.db, &types.Identifier{}))
}

func TestSubmitSelfClaimIsStored(t *testing.T) {
	f := newFixture(t)
	side := ClaimSide{SchemeID: f.area.ID, Value: "gss:S17000017"}
	res := f.submit(t, side, side, false)
	assert.True(t, res.CreatedA)
	assert.False(t, res.CreatedB)
	assert.Equal(t, res.IdentifierA.ID, res.IdentifierB.ID)

	lookup, err := f.identifiers.Lookup(context.Background(), "uk-area_id", "gss:S17000017")
	require.NoError(t, err)
	assert.Equal(t, []string{"gss:S17000017"}, values(lookup.Current))
}

func TestSubmitReversedPairSharesIdentifiers(t *testing.T) {
	f := newFixture(t)
	gss := ClaimSide{SchemeID: f.area.ID, Value: "gss:S17000017"}
	q := ClaimSide{SchemeID: f.wikidata.ID, Value: "Q1529479"}

	first := f.submit(t, q, gss, false)
	assert.Equal(t, "Q1529479", first.IdentifierA.Value)
	assert.Equal(t, f.wikidata.ID, first.IdentifierA.SchemeID)
	assert.Equal(t, "gss:S17000017", first.IdentifierB.Value)
	assert.True(t, first.CreatedA)
	assert.True(t, first.CreatedB)
	assert.Equal(t, first.IdentifierA.ID, first.Claim.IdentifierAID)
	assert.Equal(t, first.IdentifierB.ID, first.Claim.IdentifierBID)

	second := f.submit(t, gss, q, false)
	assert.Equal(t, first.IdentifierA.ID, second.IdentifierB.ID)
	assert.Equal(t, first.IdentifierB.ID, second.IdentifierA.ID)
	assert.False(t, second.CreatedA)
	assert.False(t, second.CreatedB)
}

func TestSubmitConcurrentReversedPairs(t *testing.T) {
	db := testutil.Postgres(t)
	log := testutil.Logger(t)
	bg := context.Background()

	schemeRepo := repos.NewSchemeRepo(db, log)
	identifierRepo := repos.NewIdentifierRepo(db, log)
	claimRepo := repos.NewEquivalenceClaimRepo(db, log)
	claims := NewClaimService(db, log, schemeRepo, identifierRepo, claimRepo, &recordingBus{}, nil)

	// The Postgres database is shared, so every name and value is unique per run.
	run := uuid.NewString()
	area := testutil.SeedScheme(t, bg, db, "uk-area_id-"+run)
	wd := testutil.SeedScheme(t, bg, db, "wikidata-district-item-"+run)
	key := testutil.SeedAPIKey(t, bg, db, "concurrent-"+run, "tests")
	schemeIDs := []uint{area.ID, wd.ID}
	t.Cleanup(func() {
		inRun := db.Model(&types.Identifier{}).Select("id").Where("scheme_id IN ?", schemeIDs)
		db.Where("identifier_a_id IN (?) OR identifier_b_id IN (?)", inRun, inRun).Delete(&types.EquivalenceClaim{})
		db.Where("scheme_id IN ?", schemeIDs).Delete(&types.Identifier{})
		db.Delete(&types.Scheme{}, schemeIDs)
		db.Delete(&types.APIKey{}, key.ID)
	})
	ctx := ctxutil.WithRequestData(bg, &ctxutil.RequestData{APIKeyID: key.ID})

	const pairs, perPair = 4, 8
	var (
		mu      sync.Mutex
		results []*SubmitClaimResult
	)
	var g errgroup.Group
	for p := 0; p < pairs; p++ {
		gss := ClaimSide{SchemeID: area.ID, Value: fmt.Sprintf("gss:%s:%d", run, p)}
		q := ClaimSide{SchemeID: wd.ID, Value: fmt.Sprintf("Q-%s-%d", run, p)}
		for i := 0; i < perPair; i++ {
			in := SubmitClaimInput{IdentifierA: gss, IdentifierB: q}
			if i%2 == 1 {
				in.IdentifierA, in.IdentifierB = q, gss
			}
			g.Go(func() error {
				res, err := claims.Submit(ctx, in)
				if err != nil {
					return fmt.Errorf("submit %s <-> %s: %w", in.IdentifierA.Value, in.IdentifierB.Value, err)
				}
				mu.Lock()
				results = append(results, res)
				mu.Unlock()
				return nil
			})
		}
	}
	require.NoError(t, g.Wait())
	require.Len(t, results, pairs*perPair)

	createdByValue := map[string]int{}
	idByValue := map[string]uint{}
	for _, res := range results {
		for _, side := range []struct {
			ident   *types.Identifier
			created bool
		}{{res.IdentifierA, res.CreatedA}, {res.IdentifierB, res.CreatedB}} {
			if side.created {
				createdByValue[side.ident.Value]++
			}
			if prev, ok := idByValue[side.ident.Value]; ok {
				assert.Equal(t, prev, side.ident.ID, "value %s resolved to two ids", side.ident.Value)
			}
			idByValue[side.ident.Value] = side.ident.ID
		}
	}
	require.Len(t, idByValue, 2*pairs)
	for value := range idByValue {
		assert.Equal(t, 1, createdByValue[value], "created count for %s", value)
	}

	var rows int64
	require.NoError(t, db.Model(&types.Identifier{}).Where("scheme_id IN ?", schemeIDs).Count(&rows).Error)
	assert.EqualValues(t, 2*pairs, rows)
}
