package doctor

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence boundary for doctor profiles.
type Repository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error)
	Update(ctx context.Context, d *Doctor) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Doctor, int, error)
	Stats(ctx context.Context, doctorID uuid.UUID) (*Stats, error)

	ListAvailability(ctx context.Context, doctorID uuid.UUID) ([]*Availability, error)
	ReplaceAvailability(ctx context.Context, doctorID uuid.UUID, entries []*Availability) error
}
