package handlers

import (
	"bytes"
	"time"

	types "github.com/yungbote/idmap-backend/internal/domain"
	"github.com/yungbote/idmap-backend/internal/http/response"
	"github.com/yungbote/idmap-backend/internal/modules/equivalence"
)

type IdentifierJSON struct {
	Value      string `json:"value"`
	SchemeID   uint   `json:"scheme_id"`
	SchemeName string `json:"scheme_name"`
}

type HistoryEntryJSON struct {
	Identifier IdentifierJSON `json:"identifier"`
	Created    string         `json:"created"`
	Deprecated bool           `json:"deprecated"`
	Comment    string         `json:"comment"`
}

type LookupResponse struct {
	Results []IdentifierJSON   `json:"results"`
	History []HistoryEntryJSON `json:"history"`
}

type SchemeJSON struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type SchemeListResponse struct {
	Results []SchemeJSON `json:"results"`
}

type SchemeResolutionResponse struct {
	Results SchemeResults `json:"results"`
}

type CreatedJSON struct {
	Created bool `json:"created"`
}

type ClaimCreatedResponse struct {
	IdentifierA CreatedJSON `json:"identifier_a"`
	IdentifierB CreatedJSON `json:"identifier_b"`
}

// SchemeResults is a JSON object whose keys keep first-seen order.
type SchemeResults struct {
	Values      []string
	Equivalents map[string][]IdentifierJSON
}

func (r SchemeResults) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, v := range r.Values {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := response.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		list := r.Equivalents[v]
		if list == nil {
			list = []IdentifierJSON{}
		}
		val, err := response.Marshal(list)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func identifierJSON(i *types.Identifier) IdentifierJSON {
	return IdentifierJSON{Value: i.Value, SchemeID: i.SchemeID, SchemeName: i.SchemeName()}
}

func identifierList(ids []*types.Identifier) []IdentifierJSON {
	out := make([]IdentifierJSON, 0, len(ids))
	for _, i := range ids {
		out = append(out, identifierJSON(i))
	}
	return out
}

// FormatCreated renders t in UTC with a numeric offset, printing
// microseconds only when non-zero.
func FormatCreated(t time.Time) string {
	t = t.UTC()
	if t.Nanosecond()/int(time.Microsecond) == 0 {
		return t.Format("2006-01-02T15:04:05-07:00")
	}
	return t.Format("2006-01-02T15:04:05.000000-07:00")
}

func lookupResponse(res *equivalence.Resolution) LookupResponse {
	history := make([]HistoryEntryJSON, 0, len(res.History))
	for _, h := range res.History {
		history = append(history, HistoryEntryJSON{
			Identifier: identifierJSON(h.Identifier),
			Created:    FormatCreated(h.Created),
			Deprecated: h.Deprecated,
			Comment:    h.Comment,
		})
	}
	return LookupResponse{Results: identifierList(res.Current), History: history}
}

func schemeResolutionResponse(res *equivalence.SchemeResolution) SchemeResolutionResponse {
	out := SchemeResults{Values: res.Values, Equivalents: make(map[string][]IdentifierJSON, len(res.Values))}
	for _, v := range res.Values {
		out.Equivalents[v] = identifierList(res.Equivalents[v])
	}
	return SchemeResolutionResponse{Results: out}
}
