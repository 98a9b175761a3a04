package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenFromRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		cfg    CookieConfig
		cookie *http.Cookie
		want   string
	}{
		{"no cookie", CookieConfig{}, nil, ""},
		{"default name", CookieConfig{}, &http.Cookie{Name: "session", Value: "abc"}, "abc"},
		{"custom name", CookieConfig{Name: "sid"}, &http.Cookie{Name: "sid", Value: "abc"}, "abc"},
		{"other cookie ignored", CookieConfig{Name: "sid"}, &http.Cookie{Name: "session", Value: "abc"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != nil {
				c.Request.AddCookie(tt.cookie)
			}

			assert.Equal(t, tt.want, TokenFromRequest(c, tt.cfg))
		})
	}
}

func TestSetAndClearSessionCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := CookieConfig{Name: "sid", Secure: false, MaxAge: 2 * time.Hour}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	SetSessionCookie(c, cfg, "tok")

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "sid", cookies[0].Name)
	assert.Equal(t, "tok", cookies[0].Value)
	assert.Equal(t, 7200, cookies[0].MaxAge)
	assert.True(t, cookies[0].HttpOnly)
	assert.False(t, cookies[0].Secure)
	assert.Equal(t, http.SameSiteStrictMode, cookies[0].SameSite)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	ClearSessionCookie(c, cfg)

	cookies = w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestStrictTransportSecurityMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(StrictTransportSecurityMiddleware())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Contains(t, w.Header().Get("Strict-Transport-Security"), "max-age=31536000")
}
