package http

import (
	"log/slog"

	"github.com/mrlokans/authsvc/internal/auth"
	"github.com/mrlokans/authsvc/internal/metrics"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	AuthService *auth.Service
	Metrics     *metrics.Metrics
	Logger      *slog.Logger

	// Health checks by name, e.g. "database"
	HealthChecks map[string]Pinger

	// Session cookie
	Cookie CookieConfig

	// Login rate limiting (optional)
	RateLimiter *RateLimiter

	// Add HSTS when requests arrive over HTTPS
	StrictTransportSecurity bool

	// Application info
	Version string
}
