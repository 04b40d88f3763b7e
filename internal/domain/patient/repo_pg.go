package patient

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

// NewRepoPG creates a Postgres-backed patient repository.
func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if c := db.QueryerFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const patientCols = `p.id, p.user_id, u.name, u.email, p.date_of_birth, p.gender,
	p.blood_group, p.address, p.emergency_contact_name, p.emergency_contact_phone,
	p.allergies, p.chronic_conditions, p.medications,
	p.insurance_provider, p.insurance_policy_number, p.insurance_group_number, p.insurance_valid_until,
	p.created_at, p.updated_at`

const patientFrom = ` FROM patients p JOIN users u ON u.id = p.user_id`

func (r *repoPG) scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Email, &p.DateOfBirth, &p.Gender,
		&p.BloodGroup, &p.Address, &p.EmergencyContactName, &p.EmergencyContactPhone,
		&p.Allergies, &p.ChronicConditions, &p.Medications,
		&p.InsuranceProvider, &p.InsurancePolicyNumber, &p.InsuranceGroupNumber, &p.InsuranceValidUntil,
		&p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (id, user_id, date_of_birth, gender, blood_group, address,
			emergency_contact_name, emergency_contact_phone, allergies, chronic_conditions, medications)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		p.ID, p.UserID, p.DateOfBirth, p.Gender, p.BloodGroup, p.Address,
		p.EmergencyContactName, p.EmergencyContactPhone, p.Allergies, p.ChronicConditions, p.Medications)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+patientFrom+` WHERE p.id = $1`, id))
}

func (r *repoPG) GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+patientFrom+` WHERE p.user_id = $1`, userID))
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET blood_group=$2, address=$3,
			emergency_contact_name=$4, emergency_contact_phone=$5,
			allergies=$6, chronic_conditions=$7, medications=$8,
			insurance_provider=$9, insurance_policy_number=$10, insurance_group_number=$11,
			insurance_valid_until=$12, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.BloodGroup, p.Address, p.EmergencyContactName, p.EmergencyContactPhone,
		p.Allergies, p.ChronicConditions, p.Medications,
		p.InsuranceProvider, p.InsurancePolicyNumber, p.InsuranceGroupNumber, p.InsuranceValidUntil)
	return err
}

func (r *repoPG) List(ctx context.Context, search string, limit, offset int) ([]*Patient, int, error) {
	query := `SELECT ` + patientCols + patientFrom + ` WHERE 1=1`
	countQuery := `SELECT COUNT(*)` + patientFrom + ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if search != "" {
		cond := fmt.Sprintf(` AND (u.name ILIKE $%d OR u.email ILIKE $%d)`, idx, idx)
		query += cond
		countQuery += cond
		args = append(args, "%"+search+"%")
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY u.name ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := r.scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, nil
}

const vitalCols = `id, patient_id, recorded_at, blood_pressure, heart_rate, temperature, weight_kg, height_cm, notes`

func (r *repoPG) AddVital(ctx context.Context, v *Vital) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient_vitals (id, patient_id, recorded_at, blood_pressure, heart_rate, temperature, weight_kg, height_cm, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		v.ID, v.PatientID, v.RecordedAt, v.BloodPressure, v.HeartRate, v.Temperature, v.WeightKg, v.HeightCm, v.Notes)
	return err
}

func (r *repoPG) ListVitals(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Vital, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient_vitals WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+vitalCols+` FROM patient_vitals WHERE patient_id = $1 ORDER BY recorded_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Vital
	for rows.Next() {
		var v Vital
		if err := rows.Scan(&v.ID, &v.PatientID, &v.RecordedAt, &v.BloodPressure, &v.HeartRate, &v.Temperature, &v.WeightKg, &v.HeightCm, &v.Notes); err != nil {
			return nil, 0, err
		}
		items = append(items, &v)
	}
	return items, total, nil
}
