package dashboard

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG creates a Postgres-backed dashboard repository.
func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const summaryCols = `a.id, pu.name, du.name, a.appointment_date, a.start_time, a.type, a.status`

const summaryFrom = ` FROM appointments a
	JOIN patients p ON p.id = a.patient_id
	JOIN users pu ON pu.id = p.user_id
	JOIN doctors d ON d.id = a.doctor_id
	JOIN users du ON du.id = d.user_id`

func scanSummaries(rows pgx.Rows) ([]AppointmentSummary, error) {
	defer rows.Close()
	var items []AppointmentSummary
	for rows.Next() {
		var s AppointmentSummary
		if err := rows.Scan(&s.ID, &s.PatientName, &s.DoctorName, &s.AppointmentDate, &s.StartTime, &s.Type, &s.Status); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *repoPG) AdminStats(ctx context.Context) (*AdminStats, error) {
	stats := &AdminStats{AppointmentsByStatus: make(map[string]int)}

	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM patients),
			(SELECT COUNT(*) FROM doctors),
			(SELECT COUNT(*) FROM appointments),
			(SELECT COALESCE(SUM(amount), 0) FROM billings WHERE status = 'Paid'),
			(SELECT COUNT(*) FROM users WHERE created_at >= date_trunc('month', NOW()))`).
		Scan(&stats.TotalPatients, &stats.TotalDoctors, &stats.TotalAppointments,
			&stats.TotalRevenue, &stats.NewUsersThisMonth)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM appointments GROUP BY status`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return nil, err
		}
		stats.AppointmentsByStatus[status] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.pool.Query(ctx, `SELECT `+summaryCols+summaryFrom+` ORDER BY a.created_at DESC LIMIT 10`)
	if err != nil {
		return nil, err
	}
	stats.RecentAppointments, err = scanSummaries(rows)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *repoPG) DoctorStats(ctx context.Context, doctorID uuid.UUID) (*DoctorStats, error) {
	stats := &DoctorStats{}

	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM appointments WHERE doctor_id = $1 AND appointment_date = CURRENT_DATE
				AND status IN ('Pending','Confirmed')),
			(SELECT COUNT(*) FROM appointments WHERE doctor_id = $1 AND status = 'Pending'),
			(SELECT COUNT(*) FROM appointments WHERE doctor_id = $1
				AND appointment_date >= date_trunc('month', CURRENT_DATE)
				AND appointment_date < date_trunc('month', CURRENT_DATE) + INTERVAL '1 month'),
			(SELECT COUNT(*) FROM appointments WHERE doctor_id = $1),
			(SELECT COUNT(DISTINCT patient_id) FROM appointments WHERE doctor_id = $1),
			(SELECT rating FROM doctors WHERE id = $1),
			(SELECT rating_count FROM doctors WHERE id = $1)`, doctorID).
		Scan(&stats.TodayCount, &stats.PendingCount, &stats.MonthCount,
			&stats.TotalAppointments, &stats.TotalPatients, &stats.Rating, &stats.RatingCount)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT `+summaryCols+summaryFrom+`
		WHERE a.doctor_id = $1 AND a.status IN ('Pending','Confirmed') AND a.appointment_date >= CURRENT_DATE
		ORDER BY a.appointment_date ASC, a.start_time ASC LIMIT 10`, doctorID)
	if err != nil {
		return nil, err
	}
	stats.Upcoming, err = scanSummaries(rows)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *repoPG) PatientStats(ctx context.Context, patientID uuid.UUID) (*PatientStats, error) {
	stats := &PatientStats{}

	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM appointments WHERE patient_id = $1),
			(SELECT COUNT(*) FROM appointments WHERE patient_id = $1
				AND status IN ('Pending','Confirmed') AND appointment_date >= CURRENT_DATE)`, patientID).
		Scan(&stats.TotalAppointments, &stats.UpcomingCount)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT `+summaryCols+summaryFrom+`
		WHERE a.patient_id = $1 AND a.status IN ('Pending','Confirmed') AND a.appointment_date >= CURRENT_DATE
		ORDER BY a.appointment_date ASC, a.start_time ASC LIMIT 10`, patientID)
	if err != nil {
		return nil, err
	}
	stats.Upcoming, err = scanSummaries(rows)
	if err != nil {
		return nil, err
	}

	rows, err = r.pool.Query(ctx, `SELECT `+summaryCols+summaryFrom+`
		WHERE a.patient_id = $1 AND a.status = 'Completed'
		ORDER BY a.appointment_date DESC, a.start_time DESC LIMIT 5`, patientID)
	if err != nil {
		return nil, err
	}
	stats.RecentCompleted, err = scanSummaries(rows)
	if err != nil {
		return nil, err
	}

	rows, err = r.pool.Query(ctx, `
		SELECT recorded_at, blood_pressure, heart_rate, temperature
		FROM patient_vitals WHERE patient_id = $1
		ORDER BY recorded_at DESC LIMIT 5`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var v VitalSummary
		if err := rows.Scan(&v.RecordedAt, &v.BloodPressure, &v.HeartRate, &v.Temperature); err != nil {
			return nil, err
		}
		stats.RecentVitals = append(stats.RecentVitals, v)
	}
	return stats, rows.Err()
}
