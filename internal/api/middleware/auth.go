package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/conversia/admin-platform/internal/core/authz"
	"github.com/conversia/admin-platform/internal/core/domain"
	"github.com/conversia/admin-platform/internal/core/ports"
	"github.com/conversia/admin-platform/pkg/logger"
)

const principalContextKey = "principal"

// Authenticate validates the bearer token and injects the resolved principal
// into both the echo context and the request context. The request-scoped
// logger gains a user_id field.
func Authenticate(auth ports.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return domain.ErrUnauthenticated
			}

			p, err := auth.Authenticate(c.Request().Context(), token)
			if err != nil {
				return err
			}

			ctx := authz.WithPrincipal(c.Request().Context(), p)
			ctx = logger.With(ctx, zerolog.Nop(), "user_id", p.UserID())
			c.Set(principalContextKey, p)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// Principal returns the authenticated caller, or ErrUnauthenticated when
// Authenticate did not run.
func Principal(c echo.Context) (*authz.Principal, error) {
	if p, ok := c.Get(principalContextKey).(*authz.Principal); ok && p != nil {
		return p, nil
	}
	if p, ok := authz.FromContext(c.Request().Context()); ok {
		return p, nil
	}
	return nil, domain.ErrUnauthenticated
}

// BearerToken extracts the raw token from an Authorization header.
func BearerToken(c echo.Context) string {
	token, _ := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
	return token
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
