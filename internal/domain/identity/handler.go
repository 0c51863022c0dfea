package identity

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/lifeline/lifeline/internal/platform/apperr"
	"github.com/lifeline/lifeline/internal/platform/auth"
	"github.com/lifeline/lifeline/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes wires the public auth endpoints and the protected user
// endpoints. public carries no auth middleware; api does.
func (h *Handler) RegisterRoutes(public, api *echo.Group) {
	public.POST("/auth/register", h.Register)
	public.POST("/auth/login", h.Login)
	public.POST("/auth/oauth", h.OAuthLogin)
	public.POST("/auth/refresh", h.Refresh)

	api.GET("/auth/verify-token", h.VerifyToken)
	api.GET("/auth/me", h.Me)
	api.PUT("/auth/me", h.UpdateProfile)

	admin := api.Group("", auth.RequireRole(RoleAdmin))
	admin.GET("/users", h.List)
	admin.GET("/users/:id", h.Get)
	admin.DELETE("/users/:id", h.Deactivate)
}

func (h *Handler) Register(c echo.Context) error {
	var in RegisterInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u, err := h.svc.Register(c.Request().Context(), in)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToBody(err))
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) Login(c echo.Context) error {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u, pair, err := h.svc.Login(c.Request().Context(), in.Email, in.Password)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToBody(err))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"user":          u,
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

func (h *Handler) OAuthLogin(c echo.Context) error {
	var in OAuthInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u, pair, err := h.svc.OAuthLogin(c.Request().Context(), in)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToBody(err))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"user":          u,
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

func (h *Handler) Refresh(c echo.Context) error {
	var in struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	pair, err := h.svc.Refresh(c.Request().Context(), in.RefreshToken)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToBody(err))
	}
	return c.JSON(http.StatusOK, pair)
}

func (h *Handler) VerifyToken(c echo.Context) error {
	authHeader := c.Request().Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}
	u, err := h.svc.VerifyToken(c.Request().Context(), parts[1])
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToBody(err))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"valid": true, "user": u})
}

func (h *Handler) Me(c echo.Context) error {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication")
	}
	u, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToBody(err))
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication")
	}
	var in UpdateProfileInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u, err := h.svc.UpdateProfile(c.Request().Context(), id, in)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToBody(err))
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	u, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToBody(err))
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) Deactivate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Deactivate(c.Request().Context(), id); err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToBody(err))
	}
	return c.NoContent(http.StatusNoContent)
}
