package auth

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/clinicbook/clinic/internal/platform/apperr"
)

type contextKey string

const ClaimsKey contextKey = "claims"

// VerifyIdentity requires a valid bearer credential and attaches the decoded
// claims to the request context. A missing Authorization header is a 401;
// a header that is present but malformed or carries a bad token is a 403.
func VerifyIdentity(v *Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return apperr.ToHTTP(apperr.Unauthorized("UnAuthorized access"))
			}

			credential, ok := bearerCredential(authHeader)
			if !ok {
				return apperr.ToHTTP(apperr.Forbidden("Forbidden access"))
			}

			claims, err := v.Verify(credential)
			if err != nil {
				return apperr.ToHTTP(err)
			}

			ctx := WithClaims(c.Request().Context(), claims)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func bearerCredential(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return parts[1], true
}

// CallerKey buckets rate limits by verified caller email. Requests without a
// valid credential fall back to the client IP.
func CallerKey(v *Verifier) func(c echo.Context) string {
	return func(c echo.Context) string {
		if credential, ok := bearerCredential(c.Request().Header.Get("Authorization")); ok {
			if claims, err := v.Verify(credential); err == nil && claims.Email != "" {
				return "caller:" + claims.Email
			}
		}
		return "ip:" + c.RealIP()
	}
}

func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(ClaimsKey).(*Claims)
	return claims
}

// EmailFromContext returns the verified caller email, or "" when the request
// did not pass VerifyIdentity.
func EmailFromContext(ctx context.Context) string {
	if claims := ClaimsFromContext(ctx); claims != nil {
		return claims.Email
	}
	return ""
}
