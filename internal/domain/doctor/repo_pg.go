package doctor

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

// NewRepoPG creates a Postgres-backed doctor repository.
func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if c := db.QueryerFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const doctorCols = `d.id, d.user_id, u.name, u.email, d.specialization, d.qualifications,
	d.experience_years, d.consultation_fee, d.rating, d.rating_count, d.bio,
	d.created_at, d.updated_at`

const doctorFrom = ` FROM doctors d JOIN users u ON u.id = d.user_id`

func (r *repoPG) scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.UserID, &d.Name, &d.Email, &d.Specialization, &d.Qualifications,
		&d.ExperienceYears, &d.ConsultationFee, &d.Rating, &d.RatingCount, &d.Bio,
		&d.CreatedAt, &d.UpdatedAt)
	return &d, err
}

func (r *repoPG) Create(ctx context.Context, d *Doctor) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO doctors (id, user_id, specialization, qualifications, experience_years, consultation_fee, bio)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		d.ID, d.UserID, d.Specialization, d.Qualifications, d.ExperienceYears, d.ConsultationFee, d.Bio)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return r.scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+doctorFrom+` WHERE d.id = $1`, id))
}

func (r *repoPG) GetByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error) {
	return r.scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+doctorFrom+` WHERE d.user_id = $1`, userID))
}

func (r *repoPG) Update(ctx context.Context, d *Doctor) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE doctors SET specialization=$2, qualifications=$3, experience_years=$4,
			consultation_fee=$5, bio=$6, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.Specialization, d.Qualifications, d.ExperienceYears, d.ConsultationFee, d.Bio)
	return err
}

func (r *repoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Doctor, int, error) {
	query := `SELECT ` + doctorCols + doctorFrom + ` WHERE u.is_active`
	countQuery := `SELECT COUNT(*)` + doctorFrom + ` WHERE u.is_active`
	var args []interface{}
	idx := 1

	if p, ok := params["specialization"]; ok {
		query += fmt.Sprintf(` AND d.specialization ILIKE $%d`, idx)
		countQuery += fmt.Sprintf(` AND d.specialization ILIKE $%d`, idx)
		args = append(args, "%"+p+"%")
		idx++
	}
	if p, ok := params["name"]; ok {
		query += fmt.Sprintf(` AND u.name ILIKE $%d`, idx)
		countQuery += fmt.Sprintf(` AND u.name ILIKE $%d`, idx)
		args = append(args, "%"+p+"%")
		idx++
	}
	if p, ok := params["max_fee"]; ok {
		query += fmt.Sprintf(` AND d.consultation_fee <= $%d`, idx)
		countQuery += fmt.Sprintf(` AND d.consultation_fee <= $%d`, idx)
		args = append(args, p)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY d.rating DESC, u.name ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Doctor
	for rows.Next() {
		d, err := r.scanDoctor(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, nil
}

func (r *repoPG) Stats(ctx context.Context, doctorID uuid.UUID) (*Stats, error) {
	var s Stats
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT patient_id)
		FROM appointments WHERE doctor_id = $1`, doctorID).Scan(&s.TotalAppointments, &s.TotalPatients)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repoPG) ListAvailability(ctx context.Context, doctorID uuid.UUID) ([]*Availability, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, doctor_id, day_of_week, start_time, end_time, is_available
		FROM doctor_availability WHERE doctor_id = $1
		ORDER BY day_of_week ASC, start_time ASC`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Availability
	for rows.Next() {
		var a Availability
		if err := rows.Scan(&a.ID, &a.DoctorID, &a.DayOfWeek, &a.StartTime, &a.EndTime, &a.IsAvailable); err != nil {
			return nil, err
		}
		items = append(items, &a)
	}
	return items, nil
}

func (r *repoPG) ReplaceAvailability(ctx context.Context, doctorID uuid.UUID, entries []*Availability) error {
	if _, err := r.conn(ctx).Exec(ctx, `DELETE FROM doctor_availability WHERE doctor_id = $1`, doctorID); err != nil {
		return err
	}
	for _, a := range entries {
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		a.DoctorID = doctorID
		_, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO doctor_availability (id, doctor_id, day_of_week, start_time, end_time, is_available)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			a.ID, a.DoctorID, a.DayOfWeek, a.StartTime, a.EndTime, a.IsAvailable)
		if err != nil {
			return err
		}
	}
	return nil
}
