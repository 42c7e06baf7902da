package discharge

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/orego/hospital/internal/platform/auth"
	"github.com/orego/hospital/pkg/pagination"
)

// Handler exposes the discharge endpoints.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires the discharge endpoints onto an authenticated group.
// Patients only read; clinical roles write.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	clinical := auth.RequireRole("doctor", "nurse", "staff")

	g.POST("/create", h.Create, clinical)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.GET("/:id/summary", h.Summary)
	g.PUT("/:id", h.Update, clinical)
	g.POST("/:id/regenerate", h.Regenerate, clinical)
	g.POST("/:id/approve", h.Approve, auth.RequireRole("doctor"))
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrInvalid):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotPending):
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
	d, err := h.service.Create(c.Request().Context(), actorFrom(c), &req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) List(c echo.Context) error {
	page := pagination.FromContext(c)
	f := Filter{
		Status: c.QueryParam("status"),
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	discharges, total, err := h.service.List(c.Request().Context(), actorFrom(c), f)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(discharges, total, page.Limit, page.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid discharge id")
	}
	d, err := h.service.Get(c.Request().Context(), actorFrom(c), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, d)
}

// Summary serves the rendered text as plain text for printing.
func (h *Handler) Summary(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid discharge id")
	}
	d, err := h.service.Get(c.Request().Context(), actorFrom(c), id)
	if err != nil {
		return httpError(err)
	}
	return c.Blob(http.StatusOK, "text/plain; charset=utf-8", []byte(d.Summary))
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid discharge id")
	}
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	d, err := h.service.Update(c.Request().Context(), actorFrom(c), id, &req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"message": "discharge updated", "discharge": d})
}

func (h *Handler) Regenerate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid discharge id")
	}
	d, err := h.service.RegenerateSummary(c.Request().Context(), actorFrom(c), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"message": "summary regenerated", "discharge": d})
}

func (h *Handler) Approve(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid discharge id")
	}
	d, err := h.service.Approve(c.Request().Context(), actorFrom(c), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"message": "discharge approved", "discharge": d})
}
