package catalog

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinicbook/clinic/internal/platform/apperr"
)

type Handler struct {
	calc *Calculator
}

func NewHandler(calc *Calculator) *Handler {
	return &Handler{calc: calc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/service", h.ListServices)
	g.GET("/available", h.Available)
}

func (h *Handler) ListServices(c echo.Context) error {
	names, err := h.calc.ServiceNames(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, names)
}

func (h *Handler) Available(c echo.Context) error {
	services, err := h.calc.AvailableSlots(c.Request().Context(), c.QueryParam("date"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, services)
}
