package testutil

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	types "github.com/yungbote/idmap-backend/internal/domain"
)

func SeedScheme(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.Scheme {
	tb.Helper()
	s := &types.Scheme{Name: name}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed scheme: %v", err)
	}
	return s
}

func SeedIdentifier(tb testing.TB, ctx context.Context, tx *gorm.DB, scheme *types.Scheme, value string) *types.Identifier {
	tb.Helper()
	i := &types.Identifier{SchemeID: scheme.ID, Value: value}
	if err := tx.WithContext(ctx).Omit("Scheme").Create(i).Error; err != nil {
		tb.Fatalf("seed identifier: %v", err)
	}
	i.Scheme = scheme
	return i
}

// SeedClaim appends a claim with an explicit created timestamp.
func SeedClaim(tb testing.TB, ctx context.Context, tx *gorm.DB, a, b *types.Identifier, created time.Time, deprecated bool, comment string) *types.EquivalenceClaim {
	tb.Helper()
	c := &types.EquivalenceClaim{
		IdentifierAID: a.ID,
		IdentifierBID: b.ID,
		Created:       created,
		Deprecated:    deprecated,
		Comment:       comment,
	}
	if err := tx.WithContext(ctx).Omit("IdentifierA", "IdentifierB", "APIKey").Create(c).Error; err != nil {
		tb.Fatalf("seed claim: %v", err)
	}
	c.IdentifierA, c.IdentifierB = a, b
	return c
}

func SeedAPIKey(tb testing.TB, ctx context.Context, tx *gorm.DB, key, notes string) *types.APIKey {
	tb.Helper()
	k := &types.APIKey{Key: key, Notes: notes}
	if err := tx.WithContext(ctx).Create(k).Error; err != nil {
		tb.Fatalf("seed api key: %v", err)
	}
	return k
}

func CountRows(tb testing.TB, ctx context.Context, tx *gorm.DB, model any) int64 {
	tb.Helper()
	var n int64
	if err := tx.WithContext(ctx).Model(model).Count(&n).Error; err != nil {
		tb.Fatalf("count rows: %v", err)
	}
	return n
}
