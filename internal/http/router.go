package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(RequestLogger(logger))
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(SecurityHeadersMiddleware())
	if cfg.StrictTransportSecurity {
		router.Use(StrictTransportSecurityMiddleware())
	}

	router.Use(ClientInfoMiddleware())

	var recorder RateLimitRecorder
	if cfg.Metrics != nil {
		recorder = cfg.Metrics
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	health := NewHealthController(cfg.HealthChecks, cfg.Version)
	router.GET("/health", health.Status)

	if cfg.AuthService != nil {
		NewAuthController(cfg.AuthService, cfg.Cookie, cfg.RateLimiter, recorder, logger).RegisterRoutes(router)
	}

	return router
}
