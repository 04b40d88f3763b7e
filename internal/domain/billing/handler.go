package billing

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carehub/carehub/internal/domain/doctor"
	"github.com/carehub/carehub/internal/domain/patient"
	"github.com/carehub/carehub/internal/platform/auth"
	"github.com/carehub/carehub/pkg/pagination"
	"github.com/carehub/carehub/pkg/respond"
)

// PatientDirectory resolves a user account to its patient profile.
type PatientDirectory interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*patient.Patient, error)
}

// DoctorDirectory resolves a user account to its doctor profile.
type DoctorDirectory interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*doctor.Doctor, error)
}

// Handler exposes the billing endpoints. Patients see their own invoices,
// doctors the ones they issued, admins everything.
type Handler struct {
	svc      *Service
	patients PatientDirectory
	doctors  DoctorDirectory
}

func NewHandler(svc *Service, patients PatientDirectory, doctors DoctorDirectory) *Handler {
	return &Handler{svc: svc, patients: patients, doctors: doctors}
}

func (h *Handler) RegisterRoutes(authed *echo.Group) {
	authed.POST("/billings", h.Create, auth.RequireRole(auth.RoleDoctor))
	authed.GET("/billings", h.List)
	authed.GET("/billings/:id", h.Get)
	authed.PATCH("/billings/:id/payment", h.UpdatePayment, auth.RequireRole(auth.RoleDoctor))
}

type scope struct {
	actor     auth.Actor
	patientID *uuid.UUID
	doctorID  *uuid.UUID
}

func (s scope) owns(inv *Invoice) bool {
	if s.actor.IsAdmin() {
		return true
	}
	if s.patientID != nil && inv.PatientID == *s.patientID {
		return true
	}
	if s.doctorID != nil && inv.DoctorID == *s.doctorID {
		return true
	}
	return false
}

func (h *Handler) callerScope(c echo.Context) (scope, error) {
	actor, ok := auth.ActorFromContext(c.Request().Context())
	if !ok {
		return scope{}, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	s := scope{actor: actor}
	userID, err := uuid.Parse(actor.ID)
	if err != nil {
		return scope{}, echo.NewHTTPError(http.StatusUnauthorized, "invalid actor")
	}
	switch actor.Role {
	case auth.RolePatient:
		p, err := h.patients.GetByUserID(c.Request().Context(), userID)
		if err != nil {
			return scope{}, echo.NewHTTPError(http.StatusForbidden, "no patient profile")
		}
		s.patientID = &p.ID
	case auth.RoleDoctor:
		d, err := h.doctors.GetByUserID(c.Request().Context(), userID)
		if err != nil {
			return scope{}, echo.NewHTTPError(http.StatusForbidden, "no doctor profile")
		}
		s.doctorID = &d.ID
	}
	return s, nil
}

func (h *Handler) Create(c echo.Context) error {
	s, err := h.callerScope(c)
	if err != nil {
		return err
	}
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	// Doctors issue invoices under their own name.
	if s.doctorID != nil {
		req.DoctorID = s.doctorID.String()
	}
	inv, err := h.svc.Create(c.Request().Context(), req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return respond.Created(c, "invoice created", inv)
}

func (h *Handler) List(c echo.Context) error {
	s, err := h.callerScope(c)
	if err != nil {
		return err
	}
	filter := ListFilter{
		PatientID: s.patientID,
		DoctorID:  s.doctorID,
		Status:    c.QueryParam("status"),
	}
	if s.actor.IsAdmin() {
		if raw := c.QueryParam("patient_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
			}
			filter.PatientID = &id
		}
		if raw := c.QueryParam("doctor_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
			}
			filter.DoctorID = &id
		}
	}
	params := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), filter, params.Limit, params.Offset)
	if err != nil {
		return err
	}
	return respond.Data(c, pagination.NewResponse(items, total, params.Limit, params.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	s, err := h.callerScope(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid invoice id")
	}
	inv, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return err
	}
	if !s.owns(inv) {
		return echo.NewHTTPError(http.StatusForbidden, "not your invoice")
	}
	return respond.Data(c, inv)
}

func (h *Handler) UpdatePayment(c echo.Context) error {
	s, err := h.callerScope(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid invoice id")
	}
	inv, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return err
	}
	if !s.owns(inv) {
		return echo.NewHTTPError(http.StatusForbidden, "not your invoice")
	}
	var req PaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	updated, err := h.svc.UpdatePayment(c.Request().Context(), id, req)
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return respond.OK(c, "payment updated", updated)
}
