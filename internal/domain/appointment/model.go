package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Appointment statuses. Pending and Confirmed are the active states; the
// other three are terminal.
const (
	StatusPending   = "Pending"
	StatusConfirmed = "Confirmed"
	StatusCompleted = "Completed"
	StatusCancelled = "Cancelled"
	StatusNoShow    = "No-Show"
)

// Appointment types.
const (
	TypeConsultation = "Consultation"
	TypeFollowUp     = "Follow-up"
	TypeEmergency    = "Emergency"
	TypeRoutineCheck = "Routine Check-up"
)

var validTypes = map[string]bool{
	TypeConsultation: true,
	TypeFollowUp:     true,
	TypeEmergency:    true,
	TypeRoutineCheck: true,
}

// statusTransitions maps each status to the statuses it may move to.
// Completed, Cancelled and No-Show are terminal.
var statusTransitions = map[string]map[string]bool{
	StatusPending: {
		StatusConfirmed: true,
		StatusCancelled: true,
	},
	StatusConfirmed: {
		StatusCompleted: true,
		StatusCancelled: true,
		StatusNoShow:    true,
	},
	StatusCompleted: {},
	StatusCancelled: {},
	StatusNoShow:    {},
}

// Appointment is a booked slot between a patient and a doctor. Times are
// clock strings in 24h "HH:MM" form so lexicographic comparison orders them.
type Appointment struct {
	ID                 uuid.UUID  `json:"id"`
	PatientID          uuid.UUID  `json:"patient_id"`
	DoctorID           uuid.UUID  `json:"doctor_id"`
	PatientName        string     `json:"patient_name,omitempty"`
	PatientEmail       string     `json:"-"`
	DoctorName         string     `json:"doctor_name,omitempty"`
	AppointmentDate    time.Time  `json:"appointment_date"`
	StartTime          string     `json:"start_time"`
	EndTime            string     `json:"end_time"`
	Type               string     `json:"type"`
	Status             string     `json:"status"`
	Symptoms           string     `json:"symptoms"`
	Notes              *string    `json:"notes,omitempty"`
	Diagnosis          *string    `json:"diagnosis,omitempty"`
	CancellationReason *string    `json:"cancellation_reason,omitempty"`
	BillingID          *uuid.UUID `json:"billing_id,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// BookRequest creates a new appointment in Pending status. PatientID is
// honored only when an admin books on a patient's behalf.
type BookRequest struct {
	PatientID       string `json:"patient_id,omitempty"`
	DoctorID        string `json:"doctor_id"`
	AppointmentDate string `json:"appointment_date"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	Type            string `json:"type"`
	Symptoms        string `json:"symptoms"`
}

// UpdateRequest reschedules or amends an appointment while it is active.
type UpdateRequest struct {
	AppointmentDate *string `json:"appointment_date"`
	StartTime       *string `json:"start_time"`
	EndTime         *string `json:"end_time"`
	Type            *string `json:"type"`
	Symptoms        *string `json:"symptoms"`
	Notes           *string `json:"notes"`
	Diagnosis       *string `json:"diagnosis"`
}

// StatusRequest moves an appointment along the status lifecycle.
type StatusRequest struct {
	Status             string  `json:"status"`
	CancellationReason *string `json:"cancellation_reason"`
}

// ListFilter narrows List results. Zero values mean no filtering.
type ListFilter struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Status    string
	Date      *time.Time
}
