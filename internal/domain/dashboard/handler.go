package dashboard

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carehub/carehub/internal/domain/doctor"
	"github.com/carehub/carehub/internal/domain/patient"
	"github.com/carehub/carehub/internal/platform/auth"
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

// Handler serves the per-role dashboard endpoints. Each role gets its own
// stats route; admins may additionally read the admin view only.
type Handler struct {
	svc      *Service
	patients PatientDirectory
	doctors  DoctorDirectory
}

func NewHandler(svc *Service, patients PatientDirectory, doctors DoctorDirectory) *Handler {
	return &Handler{svc: svc, patients: patients, doctors: doctors}
}

func (h *Handler) RegisterRoutes(authed *echo.Group) {
	authed.GET("/dashboard/admin/stats", h.AdminStats, auth.RequireRole(auth.RoleAdmin))
	authed.GET("/dashboard/doctor/stats", h.DoctorStats, auth.RequireRole(auth.RoleDoctor))
	authed.GET("/dashboard/patient/stats", h.PatientStats, auth.RequireRole(auth.RolePatient))
}

func (h *Handler) AdminStats(c echo.Context) error {
	stats, err := h.svc.Admin(c.Request().Context())
	if err != nil {
		return err
	}
	return respond.Data(c, stats)
}

func (h *Handler) DoctorStats(c echo.Context) error {
	actor, ok := auth.ActorFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	userID, err := uuid.Parse(actor.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid actor")
	}
	ctx := c.Request().Context()
	d, err := h.doctors.GetByUserID(ctx, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusForbidden, "no doctor profile")
	}
	stats, err := h.svc.Doctor(ctx, d.ID)
	if err != nil {
		return err
	}
	return respond.Data(c, stats)
}

func (h *Handler) PatientStats(c echo.Context) error {
	actor, ok := auth.ActorFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	userID, err := uuid.Parse(actor.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid actor")
	}
	ctx := c.Request().Context()
	p, err := h.patients.GetByUserID(ctx, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusForbidden, "no patient profile")
	}
	stats, err := h.svc.Patient(ctx, p.ID)
	if err != nil {
		return err
	}
	return respond.Data(c, stats)
}
