package dashboard

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/lifeline/lifeline/internal/domain/identity"
	"github.com/lifeline/lifeline/internal/platform/apperr"
	"github.com/lifeline/lifeline/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	center := auth.RequireRole(identity.RoleAdmin, identity.RoleEmergencyCenter)

	g := api.Group("/dashboard")
	g.GET("/stats", h.Stats)
	g.GET("/active-emergencies", h.ActiveEmergencies)
	g.GET("/team-locations", h.TeamLocations)
	g.GET("/hospital-capacities", h.HospitalCapacities)
	g.POST("/assign-case", h.AssignCase, center)
	g.POST("/cancel-case", h.CancelCase, center)
}

func (h *Handler) Stats(c echo.Context) error {
	stats, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToBody(err))
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *Handler) ActiveEmergencies(c echo.Context) error {
	items, err := h.svc.ActiveEmergencies(c.Request().Context())
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToBody(err))
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) TeamLocations(c echo.Context) error {
	items, err := h.svc.TeamLocations(c.Request().Context())
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToBody(err))
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) HospitalCapacities(c echo.Context) error {
	items, err := h.svc.HospitalCapacities(c.Request().Context())
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToBody(err))
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) AssignCase(c echo.Context) error {
	var in struct {
		RequestID      uuid.UUID `json:"request_id"`
		OrganizationID uuid.UUID `json:"organization_id"`
	}
	if err := c.Bind(&in); err != nil || in.RequestID == uuid.Nil || in.OrganizationID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "request_id and organization_id are required")
	}
	resp, err := h.svc.AssignCase(c.Request().Context(), in.RequestID, in.OrganizationID)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToBody(err))
	}
	return c.JSON(http.StatusCreated, resp)
}

func (h *Handler) CancelCase(c echo.Context) error {
	var in struct {
		RequestID uuid.UUID `json:"request_id"`
	}
	if err := c.Bind(&in); err != nil || in.RequestID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "request_id is required")
	}
	req, err := h.svc.CancelCase(c.Request().Context(), in.RequestID)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToBody(err))
	}
	return c.JSON(http.StatusOK, req)
}
