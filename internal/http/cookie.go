package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// DefaultCookieName is used when CookieConfig.Name is empty.
const DefaultCookieName = "session"

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

func (c CookieConfig) name() string {
	if c.Name == "" {
		return DefaultCookieName
	}
	return c.Name
}

// TokenFromRequest returns the session token carried by the request, or ""
// when there is none.
func TokenFromRequest(c *gin.Context, cfg CookieConfig) string {
	token, err := c.Cookie(cfg.name())
	if err != nil {
		return ""
	}
	return token
}

// SetSessionCookie attaches token to the response.
func SetSessionCookie(c *gin.Context, cfg CookieConfig, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(cfg.name(), token, int(cfg.MaxAge.Seconds()), "/", "", cfg.Secure, true)
}

// ClearSessionCookie instructs the client to drop the session cookie.
func ClearSessionCookie(c *gin.Context, cfg CookieConfig) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(cfg.name(), "", -1, "/", "", cfg.Secure, true)
}
