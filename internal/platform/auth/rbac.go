package auth

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/clinicbook/clinic/internal/platform/apperr"
)

// AdminChecker reports whether the account behind an email holds the admin role.
type AdminChecker interface {
	IsAdmin(ctx context.Context, email string) (bool, error)
}

// RequireAdmin must run after VerifyIdentity. Callers whose account is not an
// admin (including callers without an account) get a 403.
func RequireAdmin(checker AdminChecker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			email := EmailFromContext(ctx)
			if email == "" {
				return apperr.ToHTTP(apperr.Unauthorized("UnAuthorized access"))
			}
			ok, err := checker.IsAdmin(ctx, email)
			if err != nil {
				return apperr.ToHTTP(err)
			}
			if !ok {
				return apperr.ToHTTP(apperr.Forbidden("forbidden"))
			}
			return next(c)
		}
	}
}

// RequireOwner checks that the verified caller is the declared owner of a
// resource. It is a plain equality check; roles grant no bypass.
func RequireOwner(ctx context.Context, owner string) error {
	claims := ClaimsFromContext(ctx)
	if claims == nil {
		return apperr.Unauthorized("UnAuthorized access")
	}
	if owner == "" || claims.Email != owner {
		return apperr.Forbidden("forbidden access")
	}
	return nil
}

// Gate bundles the access middleware handed to route registration.
type Gate struct {
	Identity echo.MiddlewareFunc
	Admin    echo.MiddlewareFunc
}

func NewGate(v *Verifier, checker AdminChecker) Gate {
	return Gate{Identity: VerifyIdentity(v), Admin: RequireAdmin(checker)}
}
