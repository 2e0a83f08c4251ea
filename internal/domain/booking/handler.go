package booking

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinicbook/clinic/internal/platform/apperr"
	"github.com/clinicbook/clinic/internal/platform/auth"
	"github.com/clinicbook/clinic/pkg/pagination"
)

type Handler struct {
	mgr *Manager
}

func NewHandler(mgr *Manager) *Handler {
	return &Handler{mgr: mgr}
}

func (h *Handler) RegisterRoutes(g *echo.Group, gate auth.Gate) {
	g.POST("/booking", h.CreateBooking)
	g.GET("/bookings", h.ListDoctorBookings)

	g.GET("/booking", h.ListPatientBookings, gate.Identity)
	g.GET("/booking/:id", h.GetBooking, gate.Identity)
	g.PATCH("/bookings/:id", h.UpdateStatus, gate.Identity)
	g.PATCH("/booking/:id", h.ConfirmPayment, gate.Identity)
	g.POST("/create-payment-intent", h.CreatePaymentIntent, gate.Identity)

	g.GET("/bookings/all", h.ListAllBookings, gate.Identity, gate.Admin)
}

func (h *Handler) CreateBooking(c echo.Context) error {
	var b Booking
	if err := c.Bind(&b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.mgr.Create(c.Request().Context(), &b)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}

// ListPatientBookings only serves the caller's own bookings; roles grant no
// access to another patient's list.
func (h *Handler) ListPatientBookings(c echo.Context) error {
	ctx := c.Request().Context()
	patient := c.QueryParam("patient")
	if err := auth.RequireOwner(ctx, patient); err != nil {
		return apperr.ToHTTP(err)
	}
	items, err := h.mgr.ListForPatient(ctx, patient)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetBooking(c echo.Context) error {
	b, err := h.mgr.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) ListDoctorBookings(c echo.Context) error {
	items, err := h.mgr.ListForDoctor(c.Request().Context(), c.QueryParam("doctor"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListAllBookings(c echo.Context) error {
	items, err := h.mgr.ListAll(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return pagination.JSON(c, http.StatusOK, items)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	var req StatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.mgr.UpdateStatus(c.Request().Context(), c.Param("id"), req.Status)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) ConfirmPayment(c echo.Context) error {
	var req PaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.mgr.ConfirmPayment(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) CreatePaymentIntent(c echo.Context) error {
	var req IntentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	secret, err := h.mgr.CreatePaymentIntent(c.Request().Context(), req.Price)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, IntentResponse{ClientSecret: secret})
}
