package appointment

import (
	"context"
	"errors"
	"net/http"
	"time"

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

// Handler exposes the appointment endpoints. Every route is role scoped:
// patients see and manage their own bookings, doctors theirs, admins all.
type Handler struct {
	svc      *Service
	patients PatientDirectory
	doctors  DoctorDirectory
}

func NewHandler(svc *Service, patients PatientDirectory, doctors DoctorDirectory) *Handler {
	return &Handler{svc: svc, patients: patients, doctors: doctors}
}

func (h *Handler) RegisterRoutes(authed *echo.Group) {
	authed.POST("/appointments", h.Book, auth.RequireRole(auth.RolePatient))
	authed.GET("/appointments", h.List)
	authed.GET("/appointments/:id", h.Get)
	authed.PUT("/appointments/:id", h.Update)
	authed.PATCH("/appointments/:id/status", h.UpdateStatus)
	authed.DELETE("/appointments/:id", h.Delete)
}

// scope identifies the caller and, for patients and doctors, their profile ID.
type scope struct {
	actor     auth.Actor
	patientID *uuid.UUID
	doctorID  *uuid.UUID
}

func (s scope) owns(a *Appointment) bool {
	if s.actor.IsAdmin() {
		return true
	}
	if s.patientID != nil && a.PatientID == *s.patientID {
		return true
	}
	if s.doctorID != nil && a.DoctorID == *s.doctorID {
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

func (h *Handler) Book(c echo.Context) error {
	s, err := h.callerScope(c)
	if err != nil {
		return err
	}
	var req BookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	var patientID uuid.UUID
	switch {
	case s.patientID != nil:
		patientID = *s.patientID
	case s.actor.IsAdmin() && req.PatientID != "":
		patientID, err = uuid.Parse(req.PatientID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
		}
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id is required")
	}

	a, err := h.svc.Book(c.Request().Context(), patientID, req)
	if err != nil {
		if errors.Is(err, ErrSlotTaken) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return respond.Created(c, "appointment booked", a)
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
		if raw := c.QueryParam("doctor_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
			}
			filter.DoctorID = &id
		}
		if raw := c.QueryParam("patient_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
			}
			filter.PatientID = &id
		}
	}
	if raw := c.QueryParam("date"); raw != "" {
		date, err := time.Parse(dateLayout, raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
		}
		filter.Date = &date
	}

	params := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), filter, params.Limit, params.Offset)
	if err != nil {
		return err
	}
	return respond.Data(c, pagination.NewResponse(items, total, params.Limit, params.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	s, a, err := h.load(c)
	if err != nil {
		return err
	}
	if !s.owns(a) {
		return echo.NewHTTPError(http.StatusForbidden, "not your appointment")
	}
	return respond.Data(c, a)
}

func (h *Handler) Update(c echo.Context) error {
	s, a, err := h.load(c)
	if err != nil {
		return err
	}
	// Rewriting the slot, notes or diagnosis is the treating doctor's call.
	// Patients change their plans by cancelling and booking again.
	if !s.actor.IsAdmin() && (s.doctorID == nil || a.DoctorID != *s.doctorID) {
		return echo.NewHTTPError(http.StatusForbidden, "only the treating doctor may update an appointment")
	}
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	updated, err := h.svc.Update(c.Request().Context(), a.ID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrSlotTaken):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		case errors.Is(err, ErrNotActive):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return respond.OK(c, "appointment updated", updated)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	s, a, err := h.load(c)
	if err != nil {
		return err
	}
	if !s.owns(a) {
		return echo.NewHTTPError(http.StatusForbidden, "not your appointment")
	}
	var req StatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	// Patients may only cancel; the remaining transitions belong to the
	// doctor running the appointment, or an admin.
	if s.actor.Role == auth.RolePatient && req.Status != StatusCancelled {
		return echo.NewHTTPError(http.StatusForbidden, "patients may only cancel appointments")
	}
	updated, err := h.svc.UpdateStatus(c.Request().Context(), a.ID, req)
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return respond.OK(c, "status updated", updated)
}

func (h *Handler) Delete(c echo.Context) error {
	s, a, err := h.load(c)
	if err != nil {
		return err
	}
	// Doctors mark no-shows and cancellations through the status endpoint
	// rather than deleting the record.
	if !s.actor.IsAdmin() && (s.patientID == nil || a.PatientID != *s.patientID) {
		return echo.NewHTTPError(http.StatusForbidden, "not your appointment")
	}
	if err := h.svc.Delete(c.Request().Context(), a.ID); err != nil {
		if errors.Is(err, ErrNotActive) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return err
	}
	return respond.OK(c, "appointment deleted", nil)
}

func (h *Handler) load(c echo.Context) (scope, *Appointment, error) {
	s, err := h.callerScope(c)
	if err != nil {
		return scope{}, nil, err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return scope{}, nil, echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return scope{}, nil, echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return scope{}, nil, err
	}
	return s, a, nil
}
