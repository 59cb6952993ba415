package services

import (
	"fmt"
	"strconv"

	"github.com/yungbote/idmap-backend/internal/data/repos"
	types "github.com/yungbote/idmap-backend/internal/domain"
	"github.com/yungbote/idmap-backend/internal/pkg/dbctx"
	"github.com/yungbote/idmap-backend/internal/platform/apierr"
)

// ParseSchemeID accepts only a plain run of ASCII digits.
func ParseSchemeID(ref string) (uint, bool) {
	if ref == "" {
		return 0, false
	}
	for _, r := range ref {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(ref, 10, 64)
	if err != nil || n == 0 || n > uint64(^uint(0)) {
		return 0, false
	}
	return uint(n), true
}

// schemeByID returns a scheme_not_found error when id does not exist.
func schemeByID(dbc dbctx.Context, repo repos.SchemeRepo, id uint) (*types.Scheme, error) {
	found, err := repo.GetByIDs(dbc, []uint{id})
	if err != nil {
		return nil, fmt.Errorf("load scheme %d: %w", id, err)
	}
	if len(found) == 0 || found[0] == nil {
		return nil, apierr.NotFound(apierr.CodeSchemeNotFound, "scheme %d not found", id)
	}
	return found[0], nil
}

// resolveSchemeRef treats an all-digit ref as an id and anything else as a
// name matched exactly. A digit ref is never retried as a name.
func resolveSchemeRef(dbc dbctx.Context, repo repos.SchemeRepo, ref string) (*types.Scheme, error) {
	if id, ok := ParseSchemeID(ref); ok {
		return schemeByID(dbc, repo, id)
	}
	if ref == "" || isDigits(ref) {
		return nil, apierr.NotFound(apierr.CodeSchemeNotFound, "scheme %q not found", ref)
	}
	scheme, err := repo.GetByName(dbc, ref)
	if err != nil {
		return nil, fmt.Errorf("load scheme %q: %w", ref, err)
	}
	if scheme == nil {
		return nil, apierr.NotFound(apierr.CodeSchemeNotFound, "scheme %q not found", ref)
	}
	return scheme, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
