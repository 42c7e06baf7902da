package hospital

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler exposes the hospital info endpoints.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterPublicRoutes wires the read endpoint; no authentication needed.
func (h *Handler) RegisterPublicRoutes(g *echo.Group) {
	g.GET("", h.Get)
}

// RegisterAdminRoutes wires the write endpoints; callers are already behind
// the admin gate. POST and PUT both upsert the singleton record.
func (h *Handler) RegisterAdminRoutes(g *echo.Group) {
	g.POST("", h.Update)
	g.PUT("", h.Update)
}

func (h *Handler) Get(c echo.Context) error {
	info, err := h.service.Get(c.Request().Context())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	return c.JSON(http.StatusOK, info)
}

func (h *Handler) Update(c echo.Context) error {
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	info, err := h.service.Update(c.Request().Context(), &req)
	if err != nil {
		if errors.Is(err, ErrInvalid) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"message": "hospital info updated", "hospital": info})
}
