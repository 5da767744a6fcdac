package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const userContextKey = "authUser"

// TokenValidator validates session tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// Middleware guards routes behind bearer-token authentication.
type Middleware struct {
	validator TokenValidator
}

// NewMiddleware creates an auth middleware.
func NewMiddleware(validator TokenValidator) *Middleware {
	return &Middleware{validator: validator}
}

// Require rejects requests without a valid bearer token and stores the
// claims on the request context for handlers.
func (m *Middleware) Require() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractBearerToken(c)
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization token")
			}

			claims, err := m.validator.ValidateToken(token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(userContextKey, claims)
			return next(c)
		}
	}
}

// GetUser returns the authenticated user's claims, or nil when the
// request did not pass through Require.
func GetUser(c echo.Context) *Claims {
	claims, ok := c.Get(userContextKey).(*Claims)
	if !ok {
		return nil
	}
	return claims
}

func extractBearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
