package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/feedbackflow/feedback-system/internal/core/domain"
	"github.com/feedbackflow/feedback-system/internal/core/ports"
)

// Context keys and the cookie name shared with the handlers.
const (
	PrincipalKey      = "principal"
	RoleKey           = "role"
	AccessTokenCookie = "access_token"
)

var errMalformedHeader = echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")

// ExtractToken reads the bearer token from the Authorization header, falling
// back to the access_token cookie set at login.
func ExtractToken(c echo.Context) (string, error) {
	if authHeader := c.Request().Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", errMalformedHeader
		}
		return strings.TrimSpace(parts[1]), nil
	}
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
}

// Auth resolves the request's token into a domain.Principal and injects it
// into the context.
func Auth(resolver ports.PrincipalResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := ExtractToken(c)
			if err != nil {
				return err
			}

			p, err := resolver.ResolvePrincipal(c.Request().Context(), token)
			if err != nil {
				if errors.Is(err, domain.ErrUnauthenticated) {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
				}
				// Timeouts and outages are reported as such, not as a bad token.
				return err
			}

			c.Set(PrincipalKey, p)
			c.Set(RoleKey, string(p.Role))

			return next(c)
		}
	}
}
