package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/idmap-backend/internal/http/response"
	"github.com/yungbote/idmap-backend/internal/platform/apierr"
	"github.com/yungbote/idmap-backend/internal/services"
)

type SchemeHandler struct {
	schemes services.SchemeService
}

func NewSchemeHandler(schemes services.SchemeService) *SchemeHandler {
	return &SchemeHandler{schemes: schemes}
}

// GET /scheme
func (h *SchemeHandler) List(c *gin.Context) {
	rows, err := h.schemes.List(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	out := SchemeListResponse{Results: make([]SchemeJSON, 0, len(rows))}
	for _, s := range rows {
		out.Results = append(out.Results, SchemeJSON{ID: s.ID, Name: s.Name})
	}
	response.RespondOK(c, out)
}

// GET /scheme/:id
func (h *SchemeHandler) Resolve(c *gin.Context) {
	id, ok := services.ParseSchemeID(c.Param("id"))
	if !ok {
		response.RespondAPIError(c, apierr.NotFound(apierr.CodeSchemeNotFound, "scheme %q not found", c.Param("id")))
		return
	}
	res, err := h.schemes.ResolveScheme(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, schemeResolutionResponse(res))
}
