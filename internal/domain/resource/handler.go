package resource

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/orego/hospital/internal/platform/auth"
	"github.com/orego/hospital/pkg/pagination"
)

// Handler exposes the resource registry endpoints.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires the resource endpoints onto an authenticated group.
// Mutations are admin only; listings are open to scheduling staff.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	staff := auth.RequireRole("doctor", "nurse", "staff")

	g.POST("/register", h.Create, auth.RequireRole("admin"))
	g.GET("", h.List, staff)
	g.GET("/available", h.listStatus(StatusAvailable), staff)
	g.GET("/beds", h.listKind(KindBed), staff)
	g.GET("/operation-theatres", h.listKind(KindOperationTheatre), staff)
	g.GET("/machines", h.listKind(KindMachine), staff)
	g.GET("/:id", h.Get, staff)
	g.PUT("/:id", h.Update, auth.RequireRole("admin"))
	g.DELETE("/:id", h.Delete, auth.RequireRole("admin"))
	g.POST("/:id/maintenance", h.SetMaintenance, auth.RequireRole("admin"))
	g.POST("/:id/release", h.ClearMaintenance, auth.RequireRole("admin"))
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrInvalid):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInUse):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) Create(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.service.Create(c.Request().Context(), &req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) List(c echo.Context) error {
	page := pagination.FromContext(c)
	f := Filter{
		Kind:   c.QueryParam("kind"),
		Status: c.QueryParam("status"),
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	return h.respondList(c, f, page)
}

func (h *Handler) listKind(kind string) echo.HandlerFunc {
	return func(c echo.Context) error {
		page := pagination.FromContext(c)
		f := Filter{
			Kind:   kind,
			Status: c.QueryParam("status"),
			Limit:  page.Limit,
			Offset: page.Offset,
		}
		return h.respondList(c, f, page)
	}
}

func (h *Handler) listStatus(status string) echo.HandlerFunc {
	return func(c echo.Context) error {
		page := pagination.FromContext(c)
		f := Filter{
			Kind:   c.QueryParam("kind"),
			Status: status,
			Limit:  page.Limit,
			Offset: page.Offset,
		}
		return h.respondList(c, f, page)
	}
}

func (h *Handler) respondList(c echo.Context, f Filter, page pagination.Params) error {
	resources, total, err := h.service.List(c.Request().Context(), f)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(resources, total, page.Limit, page.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid resource id")
	}
	res, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid resource id")
	}
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.service.Update(c.Request().Context(), id, &req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"message": "resource updated", "resource": res})
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid resource id")
	}
	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "resource deleted"})
}

func (h *Handler) SetMaintenance(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid resource id")
	}
	res, err := h.service.SetMaintenance(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"message": "resource under maintenance", "resource": res})
}

func (h *Handler) ClearMaintenance(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid resource id")
	}
	res, err := h.service.ClearMaintenance(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"message": "resource released", "resource": res})
}
