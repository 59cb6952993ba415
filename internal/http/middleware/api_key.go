package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/idmap-backend/internal/domain"
	"github.com/yungbote/idmap-backend/internal/http/response"
	"github.com/yungbote/idmap-backend/internal/platform/apierr"
	"github.com/yungbote/idmap-backend/internal/platform/ctxutil"
	"github.com/yungbote/idmap-backend/internal/platform/logger"
)

const HeaderAPIKey = "X-Api-Key"

// APIKeyValidator returns the key record for a presented key, or an error
// whose apierr status is 403 when the key is missing or unknown.
type APIKeyValidator func(ctx context.Context, key string) (*types.APIKey, error)

// RequireAPIKey rejects the request before the wrapped handler runs unless the
// X-Api-Key header holds a known key. The accepted key is attached to the
// request context as ctxutil.RequestData.
func RequireAPIKey(log *logger.Logger, validate APIKeyValidator) gin.HandlerFunc {
	mwLog := log.With("middleware", "RequireAPIKey")
	return func(c *gin.Context) {
		key, err := validate(c.Request.Context(), c.GetHeader(HeaderAPIKey))
		if err == nil && key == nil {
			err = apierr.Forbidden(apierr.CodeInvalidAPIKey, "unknown api key")
		}
		if err != nil {
			if apierr.StatusOf(err) != http.StatusForbidden {
				mwLog.Error("API key validation failed", "error", err)
			}
			response.RespondAPIError(c, err)
			c.Abort()
			return
		}
		ctx := ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{
			APIKeyID:    key.ID,
			APIKeyNotes: key.Notes,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
