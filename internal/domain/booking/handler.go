package booking

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/orego/hospital/internal/platform/auth"
	"github.com/orego/hospital/pkg/pagination"
)

// Handler exposes the booking endpoints.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires the booking endpoints onto an authenticated group.
// Role scoping happens in the service; every signed-in role gets in here.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/create", h.Create)
	g.GET("", h.List)
	g.POST("/availability", h.CheckAvailability)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Reschedule)
	g.POST("/:id/complete", h.Complete, auth.RequireRole("doctor"))
	g.POST("/:id/cancel", h.Cancel)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrInvalid):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrConflict), errors.Is(err, ErrNotScheduled):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}

func actorFrom(c echo.Context) Actor {
	p := auth.PrincipalFromContext(c.Request().Context())
	return Actor{UserID: p.UserID, Role: p.Role}
}

func (h *Handler) Create(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	b, err := h.service.Create(c.Request().Context(), actorFrom(c), &req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) CheckAvailability(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	conflicts, err := h.service.CheckAvailability(c.Request().Context(), &req)
	if err != nil {
		return httpError(err)
	}
	if conflicts == nil {
		conflicts = []Conflict{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"available": len(conflicts) == 0,
		"conflicts": conflicts,
	})
}

func (h *Handler) List(c echo.Context) error {
	page := pagination.FromContext(c)
	f := Filter{
		Status: c.QueryParam("status"),
		Kind:   c.QueryParam("kind"),
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "from must be RFC 3339")
		}
		f.From = t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "to must be RFC 3339")
		}
		f.To = t
	}

	bookings, total, err := h.service.List(c.Request().Context(), actorFrom(c), f)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(bookings, total, page.Limit, page.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid booking id")
	}
	b, err := h.service.Get(c.Request().Context(), actorFrom(c), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) Reschedule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid booking id")
	}
	var req RescheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	b, err := h.service.Reschedule(c.Request().Context(), actorFrom(c), id, &req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"message": "booking rescheduled", "booking": b})
}

func (h *Handler) Complete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid booking id")
	}
	b, err := h.service.Complete(c.Request().Context(), actorFrom(c), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"message": "booking completed", "booking": b})
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid booking id")
	}
	b, err := h.service.Cancel(c.Request().Context(), actorFrom(c), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"message": "booking cancelled", "booking": b})
}
