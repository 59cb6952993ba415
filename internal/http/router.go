package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/idmap-backend/internal/http/handlers"
	httpMW "github.com/yungbote/idmap-backend/internal/http/middleware"
	"github.com/yungbote/idmap-backend/internal/http/response"
	"github.com/yungbote/idmap-backend/internal/observability"
	"github.com/yungbote/idmap-backend/internal/platform/apierr"
	"github.com/yungbote/idmap-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	CORSOrigins    []string
	TracingEnabled bool
	ServiceName    string
	RequestTimeout time.Duration

	// RequireAPIKey guards every write route.
	RequireAPIKey gin.HandlerFunc

	HealthHandler     *httpH.HealthHandler
	IdentifierHandler *httpH.IdentifierHandler
	ClaimHandler      *httpH.ClaimHandler
	SchemeHandler     *httpH.SchemeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TracingEnabled {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.AttachRequestContext(cfg.RequestTimeout))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	r.NoRoute(func(c *gin.Context) {
		response.RespondAPIError(c, apierr.NotFound(apierr.CodeNotFound, "no route for %s %s", c.Request.Method, c.Request.URL.Path))
	})

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}

	// Identifier resolution (public)
	if cfg.IdentifierHandler != nil {
		r.GET("/identifier/:scheme/*value", cfg.IdentifierHandler.Lookup)
	}

	// Schemes (public)
	if cfg.SchemeHandler != nil {
		r.GET("/scheme", cfg.SchemeHandler.List)
		r.GET("/scheme/", cfg.SchemeHandler.List)
		r.GET("/scheme/:id", cfg.SchemeHandler.Resolve)
	}

	// Claims (API key)
	if cfg.ClaimHandler != nil {
		guard := cfg.RequireAPIKey
		if guard == nil {
			guard = denyAll
		}
		r.POST("/equivalence-claim", guard, cfg.ClaimHandler.Create)
		r.POST("/equivalence-claim/", guard, cfg.ClaimHandler.Create)
	}

	return r
}

func denyAll(c *gin.Context) {
	response.RespondAPIError(c, apierr.Forbidden(apierr.CodeInvalidAPIKey, "writes are disabled"))
	c.Abort()
}
