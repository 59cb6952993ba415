package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/idmap-backend/internal/http/response"
	"github.com/yungbote/idmap-backend/internal/services"
)

type IdentifierHandler struct {
	identifiers services.IdentifierService
}

func NewIdentifierHandler(identifiers services.IdentifierService) *IdentifierHandler {
	return &IdentifierHandler{identifiers: identifiers}
}

// GET /identifier/:scheme/*value
// The value is everything after the scheme segment and may contain slashes.
func (h *IdentifierHandler) Lookup(c *gin.Context) {
	value := strings.TrimPrefix(c.Param("value"), "/")
	res, err := h.identifiers.Lookup(c.Request.Context(), c.Param("scheme"), value)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, lookupResponse(res))
}
