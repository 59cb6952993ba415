package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sebdah/goldie/v2"
	"gorm.io/gorm"

	"github.com/yungbote/idmap-backend/internal/data/repos"
	"github.com/yungbote/idmap-backend/internal/data/repos/testutil"
	types "github.com/yungbote/idmap-backend/internal/domain"
	httpH "github.com/yungbote/idmap-backend/internal/http/handlers"
	httpMW "github.com/yungbote/idmap-backend/internal/http/middleware"
	"github.com/yungbote/idmap-backend/internal/services"
)

const testAPIKey = "0123456789abcdef-router"

type testAPI struct {
	router   *gin.Engine
	db       *gorm.DB
	area     *types.Scheme
	wikidata *types.Scheme
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	ctx := context.Background()

	schemeRepo := repos.NewSchemeRepo(db, log)
	identifierRepo := repos.NewIdentifierRepo(db, log)
	claimRepo := repos.NewEquivalenceClaimRepo(db, log)
	keyRepo := repos.NewAPIKeyRepo(db, log)

	keys := services.NewAPIKeyService(log, keyRepo, nil)
	schemes := services.NewSchemeService(db, log, schemeRepo, claimRepo, nil)
	identifiers := services.NewIdentifierService(log, schemeRepo, identifierRepo, claimRepo, nil)
	claims := services.NewClaimService(db, log, schemeRepo, identifierRepo, claimRepo, nil, nil)

	api := &testAPI{
		db: db,
		router: NewRouter(RouterConfig{
			Log:               log,
			RequireAPIKey:     httpMW.RequireAPIKey(log, keys.Validate),
			HealthHandler:     httpH.NewHealthHandler(nil),
			IdentifierHandler: httpH.NewIdentifierHandler(identifiers),
			ClaimHandler:      httpH.NewClaimHandler(claims),
			SchemeHandler:     httpH.NewSchemeHandler(schemes),
		}),
	}
	api.area = testutil.SeedScheme(t, ctx, db, "uk-area_id")
	api.wikidata = testutil.SeedScheme(t, ctx, db, "wikidata-district-item")
	testutil.SeedAPIKey(t, ctx, db, testAPIKey, "router tests")
	return api
}

// seedHistory records a fixed claim history with known timestamps.
func (a *testAPI) seedHistory(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	gss17 := testutil.SeedIdentifier(t, ctx, a.db, a.area, "gss:S17000017")
	q1529479 := testutil.SeedIdentifier(t, ctx, a.db, a.wikidata, "Q1529479")
	q42 := testutil.SeedIdentifier(t, ctx, a.db, a.wikidata, "Q42")
	gss18 := testutil.SeedIdentifier(t, ctx, a.db, a.area, "gss:S17000018")
	q7 := testutil.SeedIdentifier(t, ctx, a.db, a.wikidata, "Q7")

	at := func(hms string) time.Time {
		ts, err := time.Parse(time.RFC3339Nano, "2018-01-12T"+hms+"Z")
		if err != nil {
			t.Fatalf("parse %s: %v", hms, err)
		}
		return ts
	}
	testutil.SeedClaim(t, ctx, a.db, gss17, q1529479, at("19:20:00"), false, "")
	testutil.SeedClaim(t, ctx, a.db, q1529479, gss17, at("19:25:30.5"), true, "superseded")
	testutil.SeedClaim(t, ctx, a.db, gss17, q42, at("19:30:00"), false, "boundary change")
	testutil.SeedClaim(t, ctx, a.db, gss18, q7, at("19:40:00"), false, "")
}

func (a *testAPI) do(t *testing.T, method, path, body, key string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if key != "" {
		req.Header.Set(httpMW.HeaderAPIKey, key)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func golden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden.json"),
	)
}

func TestGoldenResponses(t *testing.T) {
	api := newTestAPI(t)
	api.seedHistory(t)

	cases := []struct {
		name, method, path, body, key string
		status                        int
	}{
		{"scheme_list", http.MethodGet, "/scheme", "", "", http.StatusOK},
		{"identifier_lookup", http.MethodGet, "/identifier/uk-area_id/gss:S17000017", "", "", http.StatusOK},
		{"scheme_resolve", http.MethodGet, "/scheme/1", "", "", http.StatusOK},
		{"identifier_not_found", http.MethodGet, "/identifier/uk-area_id/nope", "", "", http.StatusNotFound},
		{"claim_forbidden", http.MethodPost, "/equivalence-claim",
			`{"identifier_a": {"scheme_id": 1, "value": "gss:S17000020"}, "identifier_b": {"scheme_id": 2, "value": "Q99"}}`,
			"", http.StatusForbidden},
		{"claim_created", http.MethodPost, "/equivalence-claim",
			`{"identifier_a": {"scheme_id": 1, "value": "gss:S17000020"}, "identifier_b": {"scheme_id": 2, "value": "Q99"}}`,
			testAPIKey, http.StatusCreated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := api.do(t, tc.method, tc.path, tc.body, tc.key)
			if rec.Code != tc.status {
				t.Fatalf("status: got=%d want=%d body=%s", rec.Code, tc.status, rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Fatalf("content type: %q", ct)
			}
			golden(t).Assert(t, tc.name, rec.Body.Bytes())
		})
	}
}

func TestDistrictScenarioOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	claim := `{"identifier_a": {"scheme_id": 1, "value": "gss:S17000017"}, "identifier_b": {"scheme_id": "2", "value": "Q1529479"}}`

	rec := api.do(t, http.MethodPost, "/equivalence-claim/", claim, testAPIKey)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first claim: status=%d body=%s", rec.Code, rec.Body.String())
	}

	var lookup httpH.LookupResponse
	rec = api.do(t, http.MethodGet, "/identifier/uk-area_id/gss:S17000017", "", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &lookup); err != nil {
		t.Fatalf("decode: %v body=%s", err, rec.Body.String())
	}
	want := httpH.IdentifierJSON{Value: "Q1529479", SchemeID: api.wikidata.ID, SchemeName: "wikidata-district-item"}
	if len(lookup.Results) != 1 || lookup.Results[0] != want {
		t.Fatalf("results=%+v", lookup.Results)
	}
	if len(lookup.History) != 1 || lookup.History[0].Deprecated {
		t.Fatalf("history=%+v", lookup.History)
	}
	if !strings.HasSuffix(lookup.History[0].Created, "+00:00") {
		t.Fatalf("created=%q", lookup.History[0].Created)
	}

	deprecate := strings.Replace(claim, "}}", "}, \"deprecated\": true, \"comment\": \"wrong district\"}", 1)
	rec = api.do(t, http.MethodPost, "/equivalence-claim", deprecate, testAPIKey)
	if rec.Code != http.StatusCreated {
		t.Fatalf("deprecating claim: status=%d body=%s", rec.Code, rec.Body.String())
	}
	var created httpH.ClaimCreatedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.IdentifierA.Created || created.IdentifierB.Created {
		t.Fatalf("identifiers re-created: %+v", created)
	}

	rec = api.do(t, http.MethodGet, "/identifier/1/gss:S17000017", "", "")
	lookup = httpH.LookupResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), &lookup); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(lookup.Results) != 0 || len(lookup.History) != 2 {
		t.Fatalf("after deprecation: %+v", lookup)
	}
	if !lookup.History[1].Deprecated || lookup.History[1].Comment != "wrong district" {
		t.Fatalf("history[1]=%+v", lookup.History[1])
	}
}

func TestMalformedClaims(t *testing.T) {
	api := newTestAPI(t)
	cases := map[string]string{
		"empty body":        "",
		"not json":          "{",
		"missing side":      `{"identifier_a": {"scheme_id": 1, "value": "x"}}`,
		"zero scheme":       `{"identifier_a": {"scheme_id": 0, "value": "x"}, "identifier_b": {"scheme_id": 2, "value": "y"}}`,
		"fractional scheme": `{"identifier_a": {"scheme_id": 1.5, "value": "x"}, "identifier_b": {"scheme_id": 2, "value": "y"}}`,
		"numeric value":     `{"identifier_a": {"scheme_id": 1, "value": 5}, "identifier_b": {"scheme_id": 2, "value": "y"}}`,
		"missing value":     `{"identifier_a": {"scheme_id": 1}, "identifier_b": {"scheme_id": 2, "value": "y"}}`,
		"bad deprecated":    `{"identifier_a": {"scheme_id": 1, "value": "x"}, "identifier_b": {"scheme_id": 2, "value": "y"}, "deprecated": "yes"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := api.do(t, http.MethodPost, "/equivalence-claim", body, testAPIKey)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), `"code": "malformed_request"`) {
				t.Fatalf("body=%s", rec.Body.String())
			}
		})
	}
	if n := testutil.CountRows(t, context.Background(), api.db, &types.Identifier{}); n != 0 {
		t.Fatalf("identifiers written: %d", n)
	}
}

func TestUnknownSchemesAndRoutes(t *testing.T) {
	api := newTestAPI(t)
	cases := []struct {
		method, path, body string
		status             int
	}{
		{http.MethodGet, "/scheme/999", "", http.StatusNotFound},
		{http.MethodGet, "/scheme/abc", "", http.StatusNotFound},
		{http.MethodGet, "/identifier/missing-scheme/x", "", http.StatusNotFound},
		{http.MethodGet, "/no-such-route", "", http.StatusNotFound},
		{http.MethodPost, "/equivalence-claim",
			`{"identifier_a": {"scheme_id": 1, "value": "x"}, "identifier_b": {"scheme_id": 77, "value": "y"}}`,
			http.StatusNotFound},
	}
	for _, tc := range cases {
		rec := api.do(t, tc.method, tc.path, tc.body, testAPIKey)
		if rec.Code != tc.status {
			t.Fatalf("%s %s: status=%d want=%d body=%s", tc.method, tc.path, rec.Code, tc.status, rec.Body.String())
		}
	}
}

func TestSchemeRoutesTolerateTrailingSlash(t *testing.T) {
	api := newTestAPI(t)
	a := api.do(t, http.MethodGet, "/scheme", "", "")
	b := api.do(t, http.MethodGet, "/scheme/", "", "")
	if a.Code != http.StatusOK || b.Code != http.StatusOK || a.Body.String() != b.Body.String() {
		t.Fatalf("a=%d b=%d", a.Code, b.Code)
	}
}

func TestSchemeResolveEmpty(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/scheme/2", "", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "{\n    \"results\": {}\n}" {
		t.Fatalf("status=%d body=%q", rec.Code, rec.Body.String())
	}
}

func TestHealthcheck(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/healthcheck", "", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("status=%d body=%q", rec.Code, rec.Body.String())
	}
}
