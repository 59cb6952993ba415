package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/idmap-backend/internal/clients/redis"
	"github.com/yungbote/idmap-backend/internal/data/repos"
	"github.com/yungbote/idmap-backend/internal/data/repos/testutil"
	types "github.com/yungbote/idmap-backend/internal/domain"
	"github.com/yungbote/idmap-backend/internal/platform/ctxutil"
)

type recordingBus struct {
	mu     sync.Mutex
	events []redis.ClaimEvent
	err    error
}

func (b *recordingBus) Publish(_ context.Context, evt redis.ClaimEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.events = append(b.events, evt)
	return nil
}

func (b *recordingBus) Watch(context.Context, redis.ClaimWatcher) error {
	return errors.New("not supported")
}

func (b *recordingBus) Close() error { return nil }

type fixture struct {
	ctx         context.Context
	db          *gorm.DB
	bus         *recordingBus
	keys        APIKeyService
	schemes     SchemeService
	identifiers IdentifierService
	claims      ClaimService
	area        *types.Scheme
	wikidata    *types.Scheme
	key         *types.APIKey
}

// newFixture wires every service over a private SQLite database with the
// uk-area_id and wikidata-district-item schemes and one API key. Claims get
// strictly increasing timestamps one second apart.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	bg := context.Background()

	schemeRepo := repos.NewSchemeRepo(db, log)
	identifierRepo := repos.NewIdentifierRepo(db, log)
	claimRepo := repos.NewEquivalenceClaimRepo(db, log)
	keyRepo := repos.NewAPIKeyRepo(db, log)

	f := &fixture{
		db:          db,
		bus:         &recordingBus{},
		keys:        NewAPIKeyService(log, keyRepo, nil),
		schemes:     NewSchemeService(db, log, schemeRepo, claimRepo, nil),
		identifiers: NewIdentifierService(log, schemeRepo, identifierRepo, claimRepo, nil),
	}
	claims := NewClaimService(db, log, schemeRepo, identifierRepo, claimRepo, f.bus, nil)
	base := time.Date(2018, 1, 12, 19, 0, 0, 0, time.UTC)
	var tick int
	claims.(*claimService).now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	f.claims = claims

	f.area = testutil.SeedScheme(t, bg, db, "uk-area_id")
	f.wikidata = testutil.SeedScheme(t, bg, db, "wikidata-district-item")
	f.key = testutil.SeedAPIKey(t, bg, db, "0123456789abcdef-test", "tests")
	f.ctx = ctxutil.WithRequestData(bg, &ctxutil.RequestData{APIKeyID: f.key.ID})
	return f
}

func (f *fixture) submit(t *testing.T, a, b ClaimSide, deprecated bool) *SubmitClaimResult {
	t.Helper()
	res, err := f.claims.Submit(f.ctx, SubmitClaimInput{IdentifierA: a, IdentifierB: b, Deprecated: deprecated})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return res
}

func values(ids []*types.Identifier) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Value)
	}
	return out
}
