package appointment

import (
	"context"
	"fmt"
	"time"

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

// NewRepoPG creates a Postgres-backed appointment repository.
func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if c := db.QueryerFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const apptCols = `a.id, a.patient_id, a.doctor_id, pu.name, pu.email, du.name,
	a.appointment_date, a.start_time, a.end_time, a.type, a.status, a.symptoms,
	a.notes, a.diagnosis, a.cancellation_reason, a.billing_id, a.created_at, a.updated_at`

const apptFrom = ` FROM appointments a
	JOIN patients p ON p.id = a.patient_id
	JOIN users pu ON pu.id = p.user_id
	JOIN doctors d ON d.id = a.doctor_id
	JOIN users du ON du.id = d.user_id`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.PatientName, &a.PatientEmail, &a.DoctorName,
		&a.AppointmentDate, &a.StartTime, &a.EndTime, &a.Type, &a.Status, &a.Symptoms,
		&a.Notes, &a.Diagnosis, &a.CancellationReason, &a.BillingID, &a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, appointment_date, start_time, end_time, type, status, symptoms)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		a.ID, a.PatientID, a.DoctorID, a.AppointmentDate, a.StartTime, a.EndTime, a.Type, a.Status, a.Symptoms)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+apptFrom+` WHERE a.id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, a *Appointment) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointments SET appointment_date=$2, start_time=$3, end_time=$4,
			type=$5, symptoms=$6, notes=$7, diagnosis=$8, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.AppointmentDate, a.StartTime, a.EndTime, a.Type, a.Symptoms, a.Notes, a.Diagnosis)
	return err
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string, cancellationReason *string) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointments SET status=$2, cancellation_reason=$3, updated_at=NOW()
		WHERE id = $1`, id, status, cancellationReason)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Appointment, int, error) {
	query := `SELECT ` + apptCols + apptFrom + ` WHERE 1=1`
	countQuery := `SELECT COUNT(*)` + apptFrom + ` WHERE 1=1`
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
		addCond(` AND a.patient_id = $%d`, *filter.PatientID)
	}
	if filter.DoctorID != nil {
		addCond(` AND a.doctor_id = $%d`, *filter.DoctorID)
	}
	if filter.Status != "" {
		addCond(` AND a.status = $%d`, filter.Status)
	}
	if filter.Date != nil {
		addCond(` AND a.appointment_date = $%d`, *filter.Date)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY a.appointment_date DESC, a.start_time DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, nil
}

func (r *repoPG) HasConflict(ctx context.Context, doctorID uuid.UUID, date time.Time, startTime string, excludeID uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1 AND appointment_date = $2 AND start_time = $3
			  AND status IN ('Pending','Confirmed') AND id <> $4
		)`, doctorID, date, startTime, excludeID).Scan(&exists)
	return exists, err
}
