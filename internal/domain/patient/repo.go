package patient

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence boundary for patient profiles and vitals.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	List(ctx context.Context, search string, limit, offset int) ([]*Patient, int, error)

	AddVital(ctx context.Context, v *Vital) error
	ListVitals(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Vital, int, error)
}
