package equivalence

import (
	types "github.com/yungbote/idmap-backend/internal/domain"
)

// stateMap records, per other identifier, the deprecation flag of the latest
// claim seen. Iteration order is first-seen order.
type stateMap struct {
	order      []*types.Identifier
	deprecated map[uint]bool
}

func newStateMap() *stateMap {
	return &stateMap{deprecated: map[uint]bool{}}
}

func (m *stateMap) set(other *types.Identifier, deprecated bool) {
	if _, seen := m.deprecated[other.ID]; !seen {
		m.order = append(m.order, other)
	}
	m.deprecated[other.ID] = deprecated
}

func (m *stateMap) current() []*types.Identifier {
	out := make([]*types.Identifier, 0, len(m.order))
	for _, ident := range m.order {
		if !m.deprecated[ident.ID] {
			out = append(out, ident)
		}
	}
	return out
}
