package apperr

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ErrorHandler renders every error as {"message": "..."} with the mapped
// status. 5xx failures are logged with their internal cause.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		he := ToHTTP(err)
		msg, ok := he.Message.(string)
		if !ok {
			msg = fmt.Sprint(he.Message)
		}

		if he.Code >= http.StatusInternalServerError {
			rid, _ := c.Get("request_id").(string)
			evt := logger.Error().Str("request_id", rid).Int("status", he.Code)
			if he.Internal != nil {
				evt = evt.AnErr("cause", he.Internal)
			}
			evt.Msg(msg)
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(he.Code)
		} else {
			werr = c.JSON(he.Code, map[string]string{"message": msg})
		}
		if werr != nil {
			logger.Error().Err(werr).Msg("write error response")
		}
	}
}
