package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carehub/carehub/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG creates a Postgres-backed billing repository.
func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if c := db.QueryerFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const invoiceCols = `b.id, b.invoice_number, b.patient_id, b.doctor_id, b.appointment_id,
	pu.name, pu.email, du.name, b.items, b.subtotal, b.tax, b.discount, b.total_amount,
	b.status, b.payment_method, b.payment_date, b.due_date, b.notes, b.insurance_claim,
	b.created_at, b.updated_at`

const invoiceFrom = ` FROM billings b
	JOIN patients p ON p.id = b.patient_id
	JOIN users pu ON pu.id = p.user_id
	JOIN doctors d ON d.id = b.doctor_id
	JOIN users du ON du.id = d.user_id`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.PatientID, &inv.DoctorID, &inv.AppointmentID,
		&inv.PatientName, &inv.PatientEmail, &inv.DoctorName, &inv.Items, &inv.Subtotal, &inv.Tax,
		&inv.Discount, &inv.TotalAmount, &inv.Status, &inv.PaymentMethod, &inv.PaymentDate,
		&inv.DueDate, &inv.Notes, &inv.InsuranceClaim, &inv.CreatedAt, &inv.UpdatedAt)
	return &inv, err
}

// Create inserts the invoice and, when it bills an appointment, records the
// invoice on that appointment. Runs inside the creation transaction.
func (r *repoPG) Create(ctx context.Context, inv *Invoice) error {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO billings (id, invoice_number, patient_id, doctor_id, appointment_id,
			items, subtotal, tax, discount, total_amount, status, due_date, notes, insurance_claim)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		inv.ID, inv.InvoiceNumber, inv.PatientID, inv.DoctorID, inv.AppointmentID,
		inv.Items, inv.Subtotal, inv.Tax, inv.Discount, inv.TotalAmount, inv.Status,
		inv.DueDate, inv.Notes, inv.InsuranceClaim)
	if err != nil {
		return err
	}
	if inv.AppointmentID != nil {
		_, err = r.conn(ctx).Exec(ctx,
			`UPDATE appointments SET billing_id = $1, updated_at = NOW() WHERE id = $2`,
			inv.ID, *inv.AppointmentID)
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return scanInvoice(r.conn(ctx).QueryRow(ctx, `SELECT `+invoiceCols+invoiceFrom+` WHERE b.id = $1`, id))
}

func (r *repoPG) UpdatePayment(ctx context.Context, inv *Invoice) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE billings SET status=$2, payment_method=$3, payment_date=$4, insurance_claim=$5, updated_at=NOW()
		WHERE id = $1`,
		inv.ID, inv.Status, inv.PaymentMethod, inv.PaymentDate, inv.InsuranceClaim)
	return err
}

func (r *repoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Invoice, int, error) {
	query := `SELECT ` + invoiceCols + invoiceFrom + ` WHERE 1=1`
	countQuery := `SELECT COUNT(*)` + invoiceFrom + ` WHERE 1=1`
	var args []interface{}
	idx := 1

	addCond := func(cond string, arg interface{}) {
		c := fmt.Sprintf(cond, idx)
		query += c
		countQuery += c
		args = append(args, arg)
		idx++
	}
	if filter.PatientID != nil {
		addCond(` AND b.patient_id = $%d`, *filter.PatientID)
	}
	if filter.DoctorID != nil {
		addCond(` AND b.doctor_id = $%d`, *filter.DoctorID)
	}
	if filter.Status != "" {
		addCond(` AND b.status = $%d`, filter.Status)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY b.created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, inv)
	}
	return items, total, nil
}

func (r *repoPG) CountForYear(ctx context.Context, year int) (int, error) {
	var n int
	prefix := fmt.Sprintf("INV-%d-%%", year)
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM billings WHERE invoice_number LIKE $1`, prefix).Scan(&n)
	return n, err
}
