package records

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinicbook/clinic/internal/platform/apperr"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/register-doctor", h.insert(Doctors))
	g.GET("/doctor", h.list(Doctors))

	g.POST("/patient", h.insert(Patients))
	g.GET("/patient", h.list(Patients))

	g.POST("/prescription", h.insert(Prescriptions))
	g.GET("/prescription", h.list(Prescriptions))
	g.GET("/prescription/:id", h.get(Prescriptions))

	g.POST("/review", h.insert(Reviews))
	g.GET("/review", h.list(Reviews))

	g.POST("/profile", h.insert(Profiles))
	g.GET("/profile/:id", h.get(Profiles))
}

func (h *Handler) insert(collection string) echo.HandlerFunc {
	return func(c echo.Context) error {
		doc := Document{}
		if err := c.Bind(&doc); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		res, err := h.svc.Insert(c.Request().Context(), collection, doc)
		if err != nil {
			return apperr.ToHTTP(err)
		}
		return c.JSON(http.StatusOK, res)
	}
}

func (h *Handler) list(collection string) echo.HandlerFunc {
	return func(c echo.Context) error {
		docs, err := h.svc.List(c.Request().Context(), collection)
		if err != nil {
			return apperr.ToHTTP(err)
		}
		return c.JSON(http.StatusOK, docs)
	}
}

func (h *Handler) get(collection string) echo.HandlerFunc {
	return func(c echo.Context) error {
		doc, err := h.svc.Get(c.Request().Context(), collection, c.Param("id"))
		if err != nil {
			return apperr.ToHTTP(err)
		}
		return c.JSON(http.StatusOK, doc)
	}
}
