package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/idmap-backend/internal/http/response"
	"github.com/yungbote/idmap-backend/internal/platform/apierr"
	"github.com/yungbote/idmap-backend/internal/services"
)

const maxClaimBodyBytes = 1 << 20

type ClaimHandler struct {
	claims services.ClaimService
}

func NewClaimHandler(claims services.ClaimService) *ClaimHandler {
	return &ClaimHandler{claims: claims}
}

type claimSideRequest struct {
	SchemeID json.RawMessage `json:"scheme_id"`
	Value    *string         `json:"value"`
}

type claimRequest struct {
	IdentifierA *claimSideRequest `json:"identifier_a"`
	IdentifierB *claimSideRequest `json:"identifier_b"`
	Deprecated  *bool             `json:"deprecated"`
	Comment     *string           `json:"comment"`
}

// POST /equivalence-claim
func (h *ClaimHandler) Create(c *gin.Context) {
	in, err := decodeClaimRequest(http.MaxBytesReader(c.Writer, c.Request.Body, maxClaimBodyBytes))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	res, err := h.claims.Submit(c.Request.Context(), in)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, ClaimCreatedResponse{
		IdentifierA: CreatedJSON{Created: res.CreatedA},
		IdentifierB: CreatedJSON{Created: res.CreatedB},
	})
}

func decodeClaimRequest(body io.Reader) (services.SubmitClaimInput, error) {
	var out services.SubmitClaimInput
	raw, err := io.ReadAll(body)
	if err != nil {
		return out, malformed("read body: %v", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, malformed("request body is empty")
	}
	var req claimRequest
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return out, malformed("%s has the wrong type", typeErr.Field)
		}
		return out, malformed("invalid JSON: %v", err)
	}
	if dec.More() {
		return out, malformed("unexpected data after JSON object")
	}

	a, err := decodeClaimSide("identifier_a", req.IdentifierA)
	if err != nil {
		return out, err
	}
	b, err := decodeClaimSide("identifier_b", req.IdentifierB)
	if err != nil {
		return out, err
	}
	out.IdentifierA, out.IdentifierB = a, b
	if req.Deprecated != nil {
		out.Deprecated = *req.Deprecated
	}
	if req.Comment != nil {
		out.Comment = *req.Comment
	}
	return out, nil
}

func decodeClaimSide(name string, side *claimSideRequest) (services.ClaimSide, error) {
	if side == nil {
		return services.ClaimSide{}, malformed("%s is required", name)
	}
	id, err := decodeSchemeID(side.SchemeID)
	if err != nil {
		return services.ClaimSide{}, malformed("%s.scheme_id %v", name, err)
	}
	if side.Value == nil {
		return services.ClaimSide{}, malformed("%s.value must be a string", name)
	}
	return services.ClaimSide{SchemeID: id, Value: *side.Value}, nil
}

// decodeSchemeID accepts a positive integer as a JSON number or a string of
// digits.
func decodeSchemeID(raw json.RawMessage) (uint, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, errors.New("is required")
	}
	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, errors.New("must be a positive integer")
		}
	}
	id, ok := services.ParseSchemeID(text)
	if !ok {
		return 0, errors.New("must be a positive integer")
	}
	return id, nil
}

func malformed(format string, args ...any) error {
	return apierr.BadRequest(apierr.CodeMalformedRequest, "%s", fmt.Sprintf(format, args...))
}
