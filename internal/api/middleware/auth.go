package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/caseperl/caseperl-api/internal/core/domain"
)

// Context keys set by Auth.
const (
	CtxUserID   = "user_id"
	CtxUsername = "username"
	CtxRole     = "role"
)

// IdentityResolver turns a bearer access token into the identity it was
// issued for.
type IdentityResolver interface {
	CurrentIdentity(ctx context.Context, accessToken string) (*domain.Identity, error)
}

// Auth validates the bearer access token and injects the caller's identity
// into both the echo context and the request context.
func Auth(resolver IdentityResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			id, err := resolver.CurrentIdentity(c.Request().Context(), strings.TrimSpace(parts[1]))
			if err != nil {
				if errors.Is(err, domain.ErrUnauthenticated) {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
				}
				return err
			}

			c.Set(CtxUserID, id.ID)
			c.Set(CtxUsername, id.Username)
			c.Set(CtxRole, id.Role)
			c.SetRequest(c.Request().WithContext(domain.ContextWithIdentity(c.Request().Context(), id)))

			return next(c)
		}
	}
}
