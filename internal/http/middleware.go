package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/authsvc/internal/audit"
	"github.com/mrlokans/authsvc/internal/auth"
)

// ContextKeyUserID is the gin context key holding the authenticated user ID.
const ContextKeyUserID = "user_id"

// RequestLogger logs one line per request.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
		)
	}
}

// ClientInfoMiddleware attaches the client IP and user agent to the request
// context so audit events can record them.
func ClientInfoMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := audit.WithClientInfo(c.Request.Context(), c.ClientIP(), c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireSession aborts with 401 unless the request carries a live session.
// The user ID is stored under ContextKeyUserID.
func RequireSession(svc *auth.Service, cookie CookieConfig, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := svc.CheckAccess(c.Request.Context(), TokenFromRequest(c, cookie))
		if err != nil {
			logger.Error("access check failed", slog.Any("error", err))
			c.Abort()
			c.String(http.StatusInternalServerError, msgInternalServerError)
			return
		}
		if !principal.Authenticated() {
			c.Abort()
			c.String(http.StatusUnauthorized, msgNeedLogin)
			return
		}

		c.Set(ContextKeyUserID, principal.UserID)
		c.Next()
	}
}

// GetUserID returns the user ID stored by RequireSession.
func GetUserID(c *gin.Context) string {
	return c.GetString(ContextKeyUserID)
}
