package http

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/authsvc/internal/auth"
)

// RateLimitRecorder counts logins rejected by the rate limiter.
type RateLimitRecorder interface {
	RecordRateLimited()
}

// AuthController serves the registration and session routes.
type AuthController struct {
	service  *auth.Service
	cookie   CookieConfig
	limiter  *RateLimiter
	recorder RateLimitRecorder
	logger   *slog.Logger
}

func NewAuthController(service *auth.Service, cookie CookieConfig, limiter *RateLimiter, recorder RateLimitRecorder, logger *slog.Logger) *AuthController {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthController{
		service:  service,
		cookie:   cookie,
		limiter:  limiter,
		recorder: recorder,
		logger:   logger,
	}
}

// RegisterRoutes mounts the controller under /auth.
func (a *AuthController) RegisterRoutes(router gin.IRouter) {
	group := router.Group("/auth")
	group.POST("/register", a.Register)
	group.POST("/login", a.Login)
	group.POST("/logout", a.Logout)
	group.GET("/protected", a.Protected)

	requireSession := RequireSession(a.service, a.cookie, a.logger)
	group.POST("/logout-all", requireSession, a.LogoutAll)
	group.GET("/me", requireSession, a.Me)
}

type registerRequest struct {
	Username string `form:"username" json:"username"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

type registerResponse struct {
	UserID string `json:"user_id"`
}

type loginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Username   string `form:"username" json:"username"`
	Email      string `form:"email" json:"email"`
	Password   string `form:"password" json:"password"`
}

func (r loginRequest) identifier() string {
	switch {
	case r.Identifier != "":
		return r.Identifier
	case r.Username != "":
		return r.Username
	default:
		return r.Email
	}
}

type revokeResponse struct {
	Revoked int `json:"revoked"`
}

// Register handles POST /auth/register.
func (a *AuthController) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "malformed request body", Code: "validation"})
		return
	}

	userID, err := a.service.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		respondJSONError(c, a.logger, err)
		return
	}

	c.JSON(http.StatusCreated, registerResponse{UserID: userID})
}

// Login handles POST /auth/login. A session cookie already present on the
// request is replaced.
func (a *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.String(http.StatusUnauthorized, msgInvalidCredentials)
		return
	}
	identifier := req.identifier()
	ip := c.ClientIP()

	if a.limiter != nil {
		if allowed, retryAfter := a.limiter.Allow(ip, identifier); !allowed {
			a.rejectRateLimited(c, retryAfter)
			return
		}
	}

	token, err := a.service.Login(c.Request.Context(), identifier, req.Password, TokenFromRequest(c, a.cookie))
	switch {
	case err == nil:
		if a.limiter != nil {
			a.limiter.RecordSuccess(ip, identifier)
		}
		SetSessionCookie(c, a.cookie, token)
		c.String(http.StatusOK, msgLoginSuccessful)
	case errors.Is(err, auth.ErrInvalidCredentials):
		if a.limiter != nil {
			a.limiter.RecordFailure(ip, identifier)
		}
		c.String(http.StatusUnauthorized, msgInvalidCredentials)
	default:
		respondInternalText(c, a.logger, err)
	}
}

func (a *AuthController) rejectRateLimited(c *gin.Context, retryAfter time.Duration) {
	if a.recorder != nil {
		a.recorder.RecordRateLimited()
	}
	seconds := int(math.Ceil(retryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	c.Header("Retry-After", strconv.Itoa(seconds))
	c.String(http.StatusTooManyRequests, msgTooManyAttempts)
}

// Logout handles POST /auth/logout. It always succeeds.
func (a *AuthController) Logout(c *gin.Context) {
	a.service.Logout(c.Request.Context(), TokenFromRequest(c, a.cookie))
	ClearSessionCookie(c, a.cookie)
	c.String(http.StatusOK, msgLogoutSuccessful)
}

// LogoutAll handles POST /auth/logout-all.
func (a *AuthController) LogoutAll(c *gin.Context) {
	n, err := a.service.RevokeAll(c.Request.Context(), GetUserID(c))
	if err != nil {
		respondJSONError(c, a.logger, err)
		return
	}
	ClearSessionCookie(c, a.cookie)
	c.JSON(http.StatusOK, revokeResponse{Revoked: n})
}

// Protected handles GET /auth/protected.
func (a *AuthController) Protected(c *gin.Context) {
	user, err := a.service.CurrentUser(c.Request.Context(), TokenFromRequest(c, a.cookie))
	switch {
	case err == nil:
		c.String(http.StatusOK, "Hello %s, you are authenticated", user.Username)
	case errors.Is(err, auth.ErrNotAuthenticated):
		c.String(http.StatusUnauthorized, msgNeedLogin)
	default:
		respondInternalText(c, a.logger, err)
	}
}

// Me handles GET /auth/me.
func (a *AuthController) Me(c *gin.Context) {
	user, err := a.service.CurrentUser(c.Request.Context(), TokenFromRequest(c, a.cookie))
	if err != nil {
		respondJSONError(c, a.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
