package dashboard

import (
	"context"

	"github.com/google/uuid"
)

// Service serves role-specific dashboards. It is a thin layer over the
// aggregate queries; no dashboard figure is ever stored, so the numbers
// cannot drift from the tables they summarize.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func (s *Service) Admin(ctx context.Context) (*AdminStats, error) {
	return s.repo.AdminStats(ctx)
}

func (s *Service) Doctor(ctx context.Context, doctorID uuid.UUID) (*DoctorStats, error) {
	return s.repo.DoctorStats(ctx, doctorID)
}

func (s *Service) Patient(ctx context.Context, patientID uuid.UUID) (*PatientStats, error) {
	return s.repo.PatientStats(ctx, patientID)
}
