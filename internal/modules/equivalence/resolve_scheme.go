package equivalence

import (
	"fmt"

	types "github.com/yungbote/idmap-backend/internal/domain"
)

// SchemeResolution maps each identifier value of a scheme that appears in at
// least one claim to its current equivalents. Values with no claims are absent.
type SchemeResolution struct {
	SchemeID    uint
	Values      []string
	Equivalents map[string][]*types.Identifier
}

// ResolveScheme is the batch form of Resolve over every claim with an
// identifier from schemeID on either side. A claim with the scheme on both
// sides is folded once per side.
func ResolveScheme(schemeID uint, claims []*types.EquivalenceClaim) (*SchemeResolution, error) {
	states := map[string]*stateMap{}
	var values []string

	for _, claim := range claims {
		if claim.IdentifierA == nil || claim.IdentifierB == nil {
			return nil, fmt.Errorf("resolve scheme: claim %d has unloaded identifiers", claim.ID)
		}
		for _, source := range []*types.Identifier{claim.IdentifierA, claim.IdentifierB} {
			if source.SchemeID != schemeID {
				continue
			}
			other, err := claim.OtherIdentifier(source.ID)
			if err != nil {
				return nil, err
			}
			st, ok := states[source.Value]
			if !ok {
				st = newStateMap()
				states[source.Value] = st
				values = append(values, source.Value)
			}
			st.set(other, claim.Deprecated)
		}
	}

	out := &SchemeResolution{
		SchemeID:    schemeID,
		Values:      values,
		Equivalents: make(map[string][]*types.Identifier, len(values)),
	}
	for _, v := range values {
		out.Equivalents[v] = states[v].current()
	}
	return out, nil
}
