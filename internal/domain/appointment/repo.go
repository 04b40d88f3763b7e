package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists appointments.
type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, cancellationReason *string) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Appointment, int, error)
	// HasConflict reports whether an active appointment already holds the
	// doctor's slot. The database enforces the same rule with a partial
	// unique index; this check exists to give a clean error without
	// burning a transaction in the common case.
	HasConflict(ctx context.Context, doctorID uuid.UUID, date time.Time, startTime string, excludeID uuid.UUID) (bool, error)
}
