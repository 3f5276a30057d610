package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/contextify/internal/adapters/http/handlers"
	"github.com/jsamuelsen/contextify/internal/adapters/http/middleware"
	"github.com/jsamuelsen/contextify/internal/platform/config"
	"github.com/jsamuelsen/contextify/internal/platform/telemetry"
)

// DefaultRequestTimeout is the default timeout for API requests. It also
// bounds inline notification delivery triggered by a request.
const DefaultRequestTimeout = 30 * time.Second

// RouterConfig contains configuration for setting up the router.
type RouterConfig struct {
	// AppConfig contains application configuration.
	AppConfig *config.AppConfig

	// Reporter receives recovered panics. Nil disables exception reports.
	Reporter middleware.PanicReporter

	HealthHandler  *handlers.HealthHandler
	ContextHandler *handlers.ContextHandler
	EventHandler   *handlers.EventHandler

	// Timeout is the deadline applied to /api/v1 routes. Zero disables it.
	Timeout time.Duration
}

// SetupRouter configures all routes and middleware on the Gin engine.
// Middleware is applied in the following order (first to last):
//  1. Recovery - catch panics and report them
//  2. Request ID - generate/extract request ID
//  3. OpenTelemetry - tracing and metrics
//  4. Logging - request logging (skips /-/ endpoints)
//  5. Errors - render errors attached by handlers
//
// Route groups:
//   - /-/ (internal): health, build info, metrics, context inspection
//   - /api/v1/ (public API): event submission, with request timeout
func SetupRouter(engine *gin.Engine, cfg RouterConfig) {
	serviceName := "contextify"
	if cfg.AppConfig != nil && cfg.AppConfig.Name != "" {
		serviceName = cfg.AppConfig.Name
	}

	engine.Use(middleware.Recovery(cfg.Reporter), middleware.RequestID())
	engine.Use(telemetry.Middleware(serviceName)...)
	engine.Use(middleware.Logging(), Errors())

	internal := engine.Group("/-")

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterHealthRoutes(internal)
	}

	if cfg.ContextHandler != nil {
		cfg.ContextHandler.RegisterContextRoutes(internal)
	}

	apiV1 := engine.Group("/api/v1")
	if cfg.Timeout > 0 {
		apiV1.Use(middleware.Timeout(cfg.Timeout))
	}

	if cfg.EventHandler != nil {
		cfg.EventHandler.RegisterEventRoutes(apiV1)
	}
}
