package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicbook/clinic/internal/platform/apperr"
	"github.com/clinicbook/clinic/internal/platform/auth"
)

// Recovery turns a handler panic into an UNKNOWN application error, rendered
// as 500 by the error handler. The log line carries the route and, when the
// request got past VerifyIdentity, the caller email.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				rid, _ := c.Get("request_id").(string)
				evt := logger.Error().
					Str("request_id", rid).
					Str("method", c.Request().Method).
					Str("route", c.Path()).
					Interface("panic", r).
					Bytes("stack", debug.Stack())
				if email := auth.EmailFromContext(c.Request().Context()); email != "" {
					evt = evt.Str("caller", email)
				}
				evt.Msg("panic recovered")

				err = &apperr.Error{
					Kind:    apperr.KindUnknown,
					Message: "internal server error",
					Err:     fmt.Errorf("panic: %v", r),
				}
			}()
			return next(c)
		}
	}
}
