package emergency

import (
	"net/http"

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
	center := auth.RequireRole(identity.RoleAdmin, identity.RoleEmergencyCenter)

	sos := api.Group("/sos")
	sos.POST("", h.Create)
	sos.GET("", h.ListOwn)
	sos.GET("/all", h.ListAll, center)
	sos.GET("/dashboard/active-emergencies", h.ActiveEmergencies)
	sos.GET("/rescue/assigned-cases", h.AssignedCases)
	sos.GET("/:id", h.Get)
	sos.PUT("/:id/status", h.UpdateStatus, center)
	sos.POST("/:id/assign", h.Assign, center)
	sos.POST("/:id/cancel", h.Cancel)

	api.POST("/hospitals/:id/accept-emergency", h.AcceptEmergency)
	api.PUT("/hospitals/emergency-responses/:id", h.StartResponse)
	api.PATCH("/hospitals/emergency-responses/:id/status", h.OverrideResponseStatus, center)
}

func (h *Handler) Create(c echo.Context) error {
	patientID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication")
	}
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req, err := h.svc.Create(c.Request().Context(), patientID, in)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToBody(err))
	}
	return c.JSON(http.StatusCreated, req)
}

func (h *Handler) ListOwn(c echo.Context) error {
	patientID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToBody(err))
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListAll(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToBody(err))
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid emergency request id")
	}
	req, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToBody(err))
	}
	return c.JSON(http.StatusOK, req)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid emergency request id")
	}
	var in struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req, err := h.svc.UpdateStatus(c.Request().Context(), id, in.Status)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToBody(err))
	}
	return c.JSON(http.StatusOK, req)
}

func (h *Handler) Assign(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid emergency request id")
	}
	var in struct {
		HospitalID uuid.UUID `json:"hospital_id"`
	}
	if err := c.Bind(&in); err != nil || in.HospitalID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "hospital_id is required")
	}
	resp, err := h.svc.AssignToHospital(c.Request().Context(), id, in.HospitalID)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToBody(err))
	}
	return c.JSON(http.StatusCreated, resp)
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid emergency request id")
	}
	req, err := h.svc.Cancel(c.Request().Context(), id)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToBody(err))
	}
	return c.JSON(http.StatusOK, req)
}

func (h *Handler) ActiveEmergencies(c echo.Context) error {
	items, err := h.svc.ActiveRequests(c.Request().Context())
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToBody(err))
	}
	return c.JSON(http.StatusOK, items)
}

// AssignedCases lists the responses dispatched to the caller's organization.
func (h *Handler) AssignedCases(c echo.Context) error {
	orgID, err := uuid.Parse(auth.OrgIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusForbidden, "caller is not attached to an organization")
	}
	items, err := h.svc.AssignedCases(c.Request().Context(), orgID)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToBody(err))
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) AcceptEmergency(c echo.Context) error {
	hospitalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid hospital id")
	}
	var in struct {
		RequestID uuid.UUID `json:"request_id"`
	}
	if err := c.Bind(&in); err != nil || in.RequestID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "request_id is required")
	}
	resp, err := h.svc.AcceptEmergency(c.Request().Context(), in.RequestID, hospitalID)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToBody(err))
	}
	return c.JSON(http.StatusCreated, resp)
}

func (h *Handler) StartResponse(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid emergency response id")
	}
	resp, err := h.svc.StartResponse(c.Request().Context(), id)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToBody(err))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) OverrideResponseStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid emergency response id")
	}
	var in struct {
		Status string `json:"status"`
		Notes  string `json:"notes"`
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	resp, err := h.svc.OverrideResponseStatus(c.Request().Context(), id, in.Status, in.Notes)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.ToBody(err))
	}
	return c.JSON(http.StatusOK, resp)
}
