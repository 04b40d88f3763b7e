package patient

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carehub/carehub/internal/platform/auth"
	"github.com/carehub/carehub/pkg/pagination"
	"github.com/carehub/carehub/pkg/respond"
)

// Handler exposes patient profile and vitals endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(authed *echo.Group) {
	staff := authed.Group("", auth.RequireRole(auth.RoleDoctor))
	staff.GET("/patients", h.List)

	authed.GET("/patients/:id", h.Get)
	authed.PUT("/patients/:id", h.Update)
	authed.GET("/patients/:id/vitals", h.ListVitals)
	staff.POST("/patients/:id/vitals", h.AddVital)
}

// canViewPatient allows the patient themselves, any doctor, or an admin.
func (h *Handler) canViewPatient(c echo.Context, patientID uuid.UUID) error {
	actor, ok := auth.ActorFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	if actor.IsAdmin() || actor.Role == auth.RoleDoctor {
		return nil
	}
	return h.requireOwner(c, patientID)
}

// requireOwner allows only the patient who owns the record, or an admin.
func (h *Handler) requireOwner(c echo.Context, patientID uuid.UUID) error {
	actor, ok := auth.ActorFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	if actor.IsAdmin() {
		return nil
	}
	userID, err := uuid.Parse(actor.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid actor")
	}
	p, err := h.svc.GetByUserID(c.Request().Context(), userID)
	if err != nil || p.ID != patientID {
		return echo.NewHTTPError(http.StatusForbidden, "not your record")
	}
	return nil
}

func (h *Handler) List(c echo.Context) error {
	params := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), c.QueryParam("search"), params.Limit, params.Offset)
	if err != nil {
		return err
	}
	return respond.Data(c, pagination.NewResponse(items, total, params.Limit, params.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	if err := h.canViewPatient(c, id); err != nil {
		return err
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if err == ErrNotFound {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return err
	}
	return respond.Data(c, p)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	if err := h.requireOwner(c, id); err != nil {
		return err
	}
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.svc.Update(c.Request().Context(), id, req)
	if err != nil {
		if err == ErrNotFound {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return err
	}
	return respond.OK(c, "profile updated", p)
}

func (h *Handler) ListVitals(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	if err := h.canViewPatient(c, id); err != nil {
		return err
	}
	params := pagination.FromContext(c)
	items, total, err := h.svc.ListVitals(c.Request().Context(), id, params.Limit, params.Offset)
	if err != nil {
		if err == ErrNotFound {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return err
	}
	return respond.Data(c, pagination.NewResponse(items, total, params.Limit, params.Offset))
}

func (h *Handler) AddVital(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	var req VitalRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	v, err := h.svc.AddVital(c.Request().Context(), id, req)
	if err != nil {
		if err == ErrNotFound {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return respond.Created(c, "vital signs recorded", v)
}
