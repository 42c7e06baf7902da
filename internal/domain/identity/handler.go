package identity

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/orego/hospital/internal/platform/auth"
	"github.com/orego/hospital/pkg/pagination"
)

// Handler exposes the auth and user management endpoints.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterAuthRoutes wires the public authentication endpoints.
func (h *Handler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/login", h.Login)
	g.POST("/refresh", h.Refresh)
	g.POST("/request-password-reset", h.RequestPasswordReset)
	g.POST("/reset-password", h.ResetPassword)
}

// RegisterSessionRoutes wires the endpoints that need an authenticated caller.
func (h *Handler) RegisterSessionRoutes(g *echo.Group) {
	g.GET("/me", h.Me)
	g.POST("/change-password", h.ChangePassword)
}

// RegisterUserRoutes wires user management onto an authenticated group.
func (h *Handler) RegisterUserRoutes(g *echo.Group) {
	g.POST("/register", h.Register, auth.RequireRole(RoleAdmin))
	g.GET("", h.List, auth.RequireRole(RoleAdmin))
	g.GET("/specialities", h.ListSpecialities)
	g.GET("/doctors", h.listRole(RoleDoctor), auth.RequireRole(RoleDoctor, RoleNurse, RoleStaff, RolePatient))
	g.GET("/nurses", h.listRole(RoleNurse), auth.RequireRole(RoleDoctor, RoleNurse, RoleStaff))
	g.GET("/staff", h.listRole(RoleStaff), auth.RequireRole(RoleDoctor, RoleNurse, RoleStaff))
	g.GET("/patients", h.listRole(RolePatient), auth.RequireRole(RoleDoctor, RoleNurse, RoleStaff))
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.POST("/:id/activate", h.Activate, auth.RequireRole(RoleAdmin))
	g.POST("/:id/deactivate", h.Deactivate, auth.RequireRole(RoleAdmin))
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrInvalid):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrInactive), errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrDuplicate):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	pair, err := h.service.Login(c.Request().Context(), &req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pair)
}

func (h *Handler) Refresh(c echo.Context) error {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	pair, err := h.service.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pair)
}

func (h *Handler) RequestPasswordReset(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	token, err := h.service.RequestPasswordReset(c.Request().Context(), req.Email)
	if err != nil {
		// Do not reveal whether the email exists.
		if errors.Is(err, ErrNotFound) {
			return c.JSON(http.StatusOK, map[string]string{
				"message": "if the email is registered, a reset token has been issued",
			})
		}
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message":     "if the email is registered, a reset token has been issued",
		"reset_token": token,
	})
}

func (h *Handler) ResetPassword(c echo.Context) error {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.service.ResetPassword(c.Request().Context(), req.Token, req.NewPassword); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid or expired reset token")
		}
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "password has been reset"})
}

func (h *Handler) Me(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	u, err := h.service.Get(c.Request().Context(), p.UserID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) ChangePassword(c echo.Context) error {
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p := auth.PrincipalFromContext(c.Request().Context())
	if err := h.service.ChangePassword(c.Request().Context(), p.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "password changed"})
}

func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	u, err := h.service.Register(c.Request().Context(), &req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) List(c echo.Context) error {
	page := pagination.FromContext(c)
	f := Filter{
		Role:       c.QueryParam("role"),
		ActiveOnly: c.QueryParam("active") == "true",
		Search:     c.QueryParam("search"),
		Limit:      page.Limit,
		Offset:     page.Offset,
	}
	users, total, err := h.service.List(c.Request().Context(), f)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(users, total, page.Limit, page.Offset))
}

// listRole returns a handler serving the active users of a fixed role, used
// by booking forms to populate selection lists.
func (h *Handler) listRole(role string) echo.HandlerFunc {
	return func(c echo.Context) error {
		page := pagination.FromContext(c)
		f := Filter{
			Role:       role,
			ActiveOnly: true,
			Search:     c.QueryParam("search"),
			Limit:      page.Limit,
			Offset:     page.Offset,
		}
		users, total, err := h.service.List(c.Request().Context(), f)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(users, total, page.Limit, page.Offset))
	}
}

func (h *Handler) ListSpecialities(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"specialities":    Specialities,
		"operation_types": OperationTypes,
	})
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	p := auth.PrincipalFromContext(c.Request().Context())
	if p.Role != RoleAdmin && p.UserID != id {
		return echo.NewHTTPError(http.StatusForbidden, "not allowed")
	}
	u, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	var req UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p := auth.PrincipalFromContext(c.Request().Context())
	u, err := h.service.Update(c.Request().Context(), p, id, &req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"message": "user updated", "user": u})
}

func (h *Handler) Activate(c echo.Context) error   { return h.setActive(c, true) }
func (h *Handler) Deactivate(c echo.Context) error { return h.setActive(c, false) }

func (h *Handler) setActive(c echo.Context, active bool) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	u, err := h.service.SetActive(c.Request().Context(), id, active)
	if err != nil {
		return httpError(err)
	}
	msg := "user deactivated"
	if active {
		msg = "user activated"
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"message": msg, "user": u})
}
