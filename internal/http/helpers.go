package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/authsvc/internal/auth"
)

// Plain-text bodies of the session routes.
const (
	msgLoginSuccessful     = "Login successful"
	msgInvalidCredentials  = "Invalid credentials"
	msgLogoutSuccessful    = "Logout successful"
	msgNeedLogin           = "You need to log in first"
	msgTooManyAttempts     = "Too many login attempts"
	msgInternalServerError = "Internal server error"
)

// ErrorResponse is the standard error response format for JSON endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"` // machine-readable error code
}

// statusFor maps service errors to HTTP status codes and error codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, auth.ErrDuplicateUser):
		return http.StatusConflict, "duplicate"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, auth.ErrNotAuthenticated):
		return http.StatusUnauthorized, "not_authenticated"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "canceled"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// respondJSONError writes err as JSON. Internal errors are logged and
// replaced by a generic message.
func respondJSONError(c *gin.Context, logger *slog.Logger, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", slog.String("path", c.FullPath()), slog.Any("error", err))
		c.JSON(status, ErrorResponse{Error: "internal server error", Code: code})
		return
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

// respondInternalText logs err and writes the plain-text 500 body.
func respondInternalText(c *gin.Context, logger *slog.Logger, err error) {
	logger.Error("request failed", slog.String("path", c.FullPath()), slog.Any("error", err))
	c.String(http.StatusInternalServerError, msgInternalServerError)
}
