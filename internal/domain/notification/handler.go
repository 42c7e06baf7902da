package notification

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/orego/hospital/internal/platform/auth"
	"github.com/orego/hospital/pkg/pagination"
)

// Handler exposes the notification endpoints.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires the notification endpoints onto an authenticated
// group. Everyone manages their own inbox; sending is admin only.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.POST("", h.Send, auth.RequireRole("admin"))
	g.POST("/create", h.Send, auth.RequireRole("admin"))
	g.POST("/broadcast", h.Broadcast, auth.RequireRole("admin"))
	g.POST("/mark-all-read", h.MarkAllRead)
	g.POST("/:id/read", h.MarkRead)
	g.DELETE("/:id", h.Delete)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrInvalid):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) List(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	page := pagination.FromContext(c)
	f := Filter{
		UnreadOnly: c.QueryParam("unread") == "true",
		Limit:      page.Limit,
		Offset:     page.Offset,
	}
	result, err := h.service.ListOwn(c.Request().Context(), p.UserID, f)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) Send(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.service.Send(c.Request().Context(), &req); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"message": "notification sent"})
}

func (h *Handler) Broadcast(c echo.Context) error {
	var req BroadcastRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	count, err := h.service.Broadcast(c.Request().Context(), &req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message":    "notification broadcast",
		"recipients": count,
	})
}

func (h *Handler) MarkRead(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid notification id")
	}
	p := auth.PrincipalFromContext(c.Request().Context())
	if err := h.service.MarkRead(c.Request().Context(), p.UserID, id); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "notification marked as read"})
}

func (h *Handler) MarkAllRead(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	count, err := h.service.MarkAllRead(c.Request().Context(), p.UserID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "all notifications marked as read",
		"updated": count,
	})
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid notification id")
	}
	p := auth.PrincipalFromContext(c.Request().Context())
	if err := h.service.Delete(c.Request().Context(), p.UserID, id); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "notification deleted"})
}
