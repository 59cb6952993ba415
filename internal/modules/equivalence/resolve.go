package equivalence

import (
	"fmt"
	"time"

	types "github.com/yungbote/idmap-backend/internal/domain"
)

// HistoryEntry is one claim seen from the resolved identifier's side.
type HistoryEntry struct {
	Identifier *types.Identifier
	Created    time.Time
	Deprecated bool
	Comment    string
}

type Resolution struct {
	Root    *types.Identifier
	Current []*types.Identifier
	History []HistoryEntry
}

// Resolve folds every claim touching root, last write wins per other
// identifier. A claim that does not reference root fails the whole resolution
// with an error wrapping types.ErrClaimMismatch.
func Resolve(root *types.Identifier, claims []*types.EquivalenceClaim) (*Resolution, error) {
	if root == nil {
		return nil, fmt.Errorf("resolve: nil identifier")
	}
	state := newStateMap()
	history := make([]HistoryEntry, 0, len(claims))
	for _, claim := range claims {
		other, err := claim.OtherIdentifier(root.ID)
		if err != nil {
			return nil, err
		}
		if other == nil {
			return nil, fmt.Errorf("resolve: claim %d has unloaded identifiers", claim.ID)
		}
		state.set(other, claim.Deprecated)
		history = append(history, HistoryEntry{
			Identifier: other,
			Created:    claim.Created,
			Deprecated: claim.Deprecated,
			Comment:    claim.Comment,
		})
	}
	return &Resolution{
		Root:    root,
		Current: state.current(),
		History: history,
	}, nil
}
