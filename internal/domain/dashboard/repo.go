package dashboard

import (
	"context"

	"github.com/google/uuid"
)

// Repository computes dashboard aggregates straight from the tables.
type Repository interface {
	AdminStats(ctx context.Context) (*AdminStats, error)
	DoctorStats(ctx context.Context, doctorID uuid.UUID) (*DoctorStats, error)
	PatientStats(ctx context.Context, patientID uuid.UUID) (*PatientStats, error)
}
