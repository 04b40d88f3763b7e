package billing

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists invoices.
type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	UpdatePayment(ctx context.Context, inv *Invoice) error
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Invoice, int, error)
	// CountForYear returns how many invoices were issued in the given year.
	// Invoice numbers are assigned from this count inside the creation
	// transaction.
	CountForYear(ctx context.Context, year int) (int, error)
}
