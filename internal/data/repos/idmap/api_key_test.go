package idmap

import (
	"context"
	"testing"

	"github.com/yungbote/idmap-backend/internal/data/repos/testutil"
	types "github.com/yungbote/idmap-backend/internal/domain"
	"github.com/yungbote/idmap-backend/internal/pkg/dbctx"
)

func TestAPIKeyRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewAPIKeyRepo(db, testutil.Logger(t))

	k, err := repo.Create(dbc, &types.APIKey{Key: "0123456789abcdef", Notes: "bulk loader"})
	if err != nil || k.ID == 0 {
		t.Fatalf("Create: err=%v", err)
	}

	got, err := repo.GetByKey(dbc, "0123456789abcdef")
	if err != nil || got == nil || got.ID != k.ID || got.Notes != "bulk loader" {
		t.Fatalf("GetByKey: got=%v err=%v", got, err)
	}
	if none, err := repo.GetByKey(dbc, "fedcba9876543210"); err != nil || none != nil {
		t.Fatalf("GetByKey unknown: got=%v err=%v", none, err)
	}
	if none, err := repo.GetByKey(dbc, ""); err != nil || none != nil {
		t.Fatalf("GetByKey empty: got=%v err=%v", none, err)
	}
}

func TestAPIKeyRepoDuplicate(t *testing.T) {
	// No Tx: a failed statement would abort a Postgres transaction.
	db := testutil.SQLite(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewAPIKeyRepo(db, testutil.Logger(t))

	if _, err := repo.Create(dbc, &types.APIKey{Key: "0123456789abcdef"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := repo.Create(dbc, &types.APIKey{Key: "0123456789abcdef"})
	if !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}
}
