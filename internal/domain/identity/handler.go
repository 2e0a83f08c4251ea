package identity

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinicbook/clinic/internal/platform/apperr"
	"github.com/clinicbook/clinic/internal/platform/auth"
	"github.com/clinicbook/clinic/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group, gate auth.Gate) {
	g.GET("/user", h.ListUsers)
	g.PUT("/user/:email", h.Login)
	g.GET("/user/doctor", h.ListDoctors)
	g.GET("/admin/:email", h.IsAdmin)
	g.GET("/doctor/:email", h.IsDoctor)

	g.PUT("/user/admin/:email", h.MakeAdmin, gate.Identity, gate.Admin)
	g.PUT("/user/doctor/:email", h.MakeDoctor, gate.Identity, gate.Admin)
	g.DELETE("/user/:id", h.DeleteUser, gate.Identity, gate.Admin)
	g.DELETE("/doctor/:email", h.DeleteDoctor, gate.Identity, gate.Admin)
}

func (h *Handler) Login(c echo.Context) error {
	var profile Profile
	if err := c.Bind(&profile); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.Login(c.Request().Context(), c.Param("email"), profile)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) ListUsers(c echo.Context) error {
	users, err := h.svc.ListUsers(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return pagination.JSON(c, http.StatusOK, users)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	users, err := h.svc.ListDoctors(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, users)
}

func (h *Handler) IsAdmin(c echo.Context) error {
	ok, err := h.svc.Resolver().IsAdmin(c.Request().Context(), c.Param("email"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"admin": ok})
}

func (h *Handler) IsDoctor(c echo.Context) error {
	ok, err := h.svc.Resolver().IsDoctor(c.Request().Context(), c.Param("email"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"doctor": ok})
}

func (h *Handler) MakeAdmin(c echo.Context) error {
	res, err := h.svc.MakeAdmin(c.Request().Context(), c.Param("email"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) MakeDoctor(c echo.Context) error {
	res, err := h.svc.MakeDoctor(c.Request().Context(), c.Param("email"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) DeleteUser(c echo.Context) error {
	res, err := h.svc.DeleteUser(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) DeleteDoctor(c echo.Context) error {
	res, err := h.svc.DeleteUserByEmail(c.Request().Context(), c.Param("email"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}
