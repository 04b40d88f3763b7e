package doctor

import (
	"time"

	"github.com/google/uuid"
)

// Doctor maps to the doctors table. Name and Email are joined in from the
// owning user row on reads.
type Doctor struct {
	ID              uuid.UUID `db:"id" json:"id"`
	UserID          uuid.UUID `db:"user_id" json:"user_id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Specialization  string    `db:"specialization" json:"specialization"`
	Qualifications  *string   `db:"qualifications" json:"qualifications,omitempty"`
	ExperienceYears int       `db:"experience_years" json:"experience_years"`
	ConsultationFee float64   `db:"consultation_fee" json:"consultation_fee"`
	Rating          float64   `db:"rating" json:"rating"`
	RatingCount     int       `db:"rating_count" json:"rating_count"`
	Bio             *string   `db:"bio" json:"bio,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Stats are derived from the appointments table on read rather than kept as
// stored counters, so they can never drift.
type Stats struct {
	TotalAppointments int `json:"total_appointments"`
	TotalPatients     int `json:"total_patients"`
}

// Detail is a doctor plus its derived stats.
type Detail struct {
	*Doctor
	Stats Stats `json:"stats"`
}

// Availability is one weekly recurring slot window.
type Availability struct {
	ID          uuid.UUID `db:"id" json:"id"`
	DoctorID    uuid.UUID `db:"doctor_id" json:"doctor_id"`
	DayOfWeek   int       `db:"day_of_week" json:"day_of_week"`
	StartTime   string    `db:"start_time" json:"start_time"`
	EndTime     string    `db:"end_time" json:"end_time"`
	IsAvailable bool      `db:"is_available" json:"is_available"`
}

// UpdateRequest is the JSON body for PUT /doctors/:id.
type UpdateRequest struct {
	Specialization  *string  `json:"specialization"`
	Qualifications  *string  `json:"qualifications"`
	ExperienceYears *int     `json:"experience_years"`
	ConsultationFee *float64 `json:"consultation_fee"`
	Bio             *string  `json:"bio"`
}

// AvailabilityRequest is the JSON body for PUT /doctors/:id/availability.
type AvailabilityRequest struct {
	Entries []AvailabilityEntry `json:"entries"`
}

// AvailabilityEntry is one window in an AvailabilityRequest.
type AvailabilityEntry struct {
	DayOfWeek   int    `json:"day_of_week"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	IsAvailable bool   `json:"is_available"`
}
