package notification

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler exposes dispatcher counters over HTTP.
type Handler struct {
	dispatcher *Dispatcher
}

func NewHandler(d *Dispatcher) *Handler {
	return &Handler{dispatcher: d}
}

// RegisterRoutes mounts the stats route behind the supplied middleware.
func (h *Handler) RegisterRoutes(g *echo.Group, mw ...echo.MiddlewareFunc) {
	g.GET("/notifications/stats", h.HandleStats, mw...)
}

func (h *Handler) HandleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.dispatcher.Stats())
}
