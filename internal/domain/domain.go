package domain

import "github.com/yungbote/idmap-backend/internal/domain/idmap"

type Scheme = idmap.Scheme
type Identifier = idmap.Identifier
type EquivalenceClaim = idmap.EquivalenceClaim
type APIKey = idmap.APIKey

var ErrClaimMismatch = idmap.ErrClaimMismatch

const (
	APIKeyMinLength = idmap.APIKeyMinLength
	APIKeyMaxLength = idmap.APIKeyMaxLength
)

// Models lists every table in migration order.
func Models() []any {
	return []any{
		&idmap.Scheme{},
		&idmap.Identifier{},
		&idmap.APIKey{},
		&idmap.EquivalenceClaim{},
	}
}
