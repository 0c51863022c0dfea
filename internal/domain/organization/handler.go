package organization

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/lifeline/lifeline/internal/domain/identity"
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

func (h *Handler) RegisterRoutes(api *echo.Group) {
	manage := auth.RequireRole(identity.RoleAdmin, identity.RoleEmergencyCenter)
	hospitalStaff := auth.RequireRole(identity.RoleAdmin, identity.RoleEmergencyCenter, identity.RoleHospital)
	rescueStaff := auth.RequireRole(identity.RoleAdmin, identity.RoleEmergencyCenter, identity.RoleRescueTeam)

	hospitals := api.Group("/hospitals")
	hospitals.GET("", h.ListHospitals)
	hospitals.POST("", h.CreateHospital, manage)
	hospitals.GET("/nearby/:lat/:lng", h.NearbyHospitals)
	hospitals.GET("/:id", h.GetHospital)
	hospitals.PUT("/:id", h.UpdateHospital, hospitalStaff)
	hospitals.DELETE("/:id", h.DeleteHospital, manage)
	hospitals.PUT("/:id/capacity", h.UpdateCapacity, hospitalStaff)

	teams := api.Group("/rescue-teams")
	teams.GET("", h.ListTeams)
	teams.POST("", h.CreateTeam, manage)
	teams.GET("/available", h.AvailableTeams)
	teams.GET("/:id", h.GetTeam)
	teams.PUT("/:id", h.UpdateTeam, rescueStaff)
	teams.PUT("/:id/status", h.UpdateTeamStatus, rescueStaff)
}

// -- Hospitals --

func (h *Handler) CreateHospital(c echo.Context) error {
	return h.create(c, TypeHospital)
}

func (h *Handler) GetHospital(c echo.Context) error {
	return h.get(c, TypeHospital)
}

func (h *Handler) ListHospitals(c echo.Context) error {
	return h.list(c, TypeHospital)
}

func (h *Handler) UpdateHospital(c echo.Context) error {
	return h.update(c, TypeHospital)
}

func (h *Handler) DeleteHospital(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), TypeHospital, id); err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToBody(err))
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) UpdateCapacity(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in struct {
		AvailableBeds int      `json:"available_beds"`
		Capacity      Capacity `json:"capacity"`
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	o, err := h.svc.UpdateCapacity(c.Request().Context(), id, in.AvailableBeds, in.Capacity)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToBody(err))
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) NearbyHospitals(c echo.Context) error {
	lat, err := strconv.ParseFloat(c.Param("lat"), 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid latitude")
	}
	lng, err := strconv.ParseFloat(c.Param("lng"), 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid longitude")
	}
	radius, _ := strconv.ParseFloat(c.QueryParam("radius"), 64)

	items, err := h.svc.ListNearby(c.Request().Context(), TypeHospital, lat, lng, radius)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToBody(err))
	}
	return c.JSON(http.StatusOK, items)
}

// -- Rescue teams --

func (h *Handler) CreateTeam(c echo.Context) error {
	return h.create(c, TypeRescueTeam)
}

func (h *Handler) GetTeam(c echo.Context) error {
	return h.get(c, TypeRescueTeam)
}

func (h *Handler) ListTeams(c echo.Context) error {
	return h.list(c, TypeRescueTeam)
}

func (h *Handler) UpdateTeam(c echo.Context) error {
	return h.update(c, TypeRescueTeam)
}

func (h *Handler) UpdateTeamStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	o, err := h.svc.UpdateTeamStatus(c.Request().Context(), id, in.Status)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToBody(err))
	}
	return c.JSON(http.StatusOK, o)
}

// AvailableTeams returns nearby teams when coordinates are supplied,
// otherwise every active team.
func (h *Handler) AvailableTeams(c echo.Context) error {
	latStr, lngStr := c.QueryParam("latitude"), c.QueryParam("longitude")
	if latStr == "" || lngStr == "" {
		items, err := h.svc.ListActive(c.Request().Context(), TypeRescueTeam)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, items)
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid latitude")
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid longitude")
	}
	radius, _ := strconv.ParseFloat(c.QueryParam("radius"), 64)

	items, err := h.svc.ListNearby(c.Request().Context(), TypeRescueTeam, lat, lng, radius)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToBody(err))
	}
	return c.JSON(http.StatusOK, items)
}

// -- shared --

func (h *Handler) create(c echo.Context, orgType string) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	o, err := h.svc.Create(c.Request().Context(), orgType, in)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToBody(err))
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *Handler) get(c echo.Context, orgType string) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	o, err := h.svc.Get(c.Request().Context(), orgType, id)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToBody(err))
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) list(c echo.Context, orgType string) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), orgType, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) update(c echo.Context, orgType string) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	o, err := h.svc.Update(c.Request().Context(), orgType, id, in)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToBody(err))
	}
	return c.JSON(http.StatusOK, o)
}
