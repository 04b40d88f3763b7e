package dashboard

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentSummary is the trimmed-down appointment row shown on dashboards.
type AppointmentSummary struct {
	ID              uuid.UUID `json:"id"`
	PatientName     string    `json:"patient_name"`
	DoctorName      string    `json:"doctor_name"`
	AppointmentDate time.Time `json:"appointment_date"`
	StartTime       string    `json:"start_time"`
	Type            string    `json:"type"`
	Status          string    `json:"status"`
}

// VitalSummary is the trimmed-down vitals row shown on the patient dashboard.
type VitalSummary struct {
	RecordedAt    time.Time `json:"recorded_at"`
	BloodPressure *string   `json:"blood_pressure,omitempty"`
	HeartRate     *int      `json:"heart_rate,omitempty"`
	Temperature   *float64  `json:"temperature,omitempty"`
}

// AdminStats is the system-wide dashboard. Every figure is computed from the
// underlying tables at read time.
type AdminStats struct {
	TotalPatients        int                  `json:"total_patients"`
	TotalDoctors         int                  `json:"total_doctors"`
	TotalAppointments    int                  `json:"total_appointments"`
	AppointmentsByStatus map[string]int       `json:"appointments_by_status"`
	TotalRevenue         float64              `json:"total_revenue"`
	NewUsersThisMonth    int                  `json:"new_users_this_month"`
	RecentAppointments   []AppointmentSummary `json:"recent_appointments"`
}

// DoctorStats is the dashboard for a single doctor.
type DoctorStats struct {
	TodayCount        int                  `json:"today_count"`
	PendingCount      int                  `json:"pending_count"`
	MonthCount        int                  `json:"month_count"`
	TotalAppointments int                  `json:"total_appointments"`
	TotalPatients     int                  `json:"total_patients"`
	Rating            float64              `json:"rating"`
	RatingCount       int                  `json:"rating_count"`
	Upcoming          []AppointmentSummary `json:"upcoming"`
}

// PatientStats is the dashboard for a single patient.
type PatientStats struct {
	TotalAppointments int                  `json:"total_appointments"`
	UpcomingCount     int                  `json:"upcoming_count"`
	Upcoming          []AppointmentSummary `json:"upcoming"`
	RecentCompleted   []AppointmentSummary `json:"recent_completed"`
	RecentVitals      []VitalSummary       `json:"recent_vitals"`
}
