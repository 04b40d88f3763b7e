package patient

import (
	"time"

	"github.com/google/uuid"
)

// Allergy severities.
const (
	SeverityMild     = "Mild"
	SeverityModerate = "Moderate"
	SeveritySevere   = "Severe"
)

// Chronic condition statuses.
const (
	ConditionActive     = "Active"
	ConditionControlled = "Controlled"
	ConditionResolved   = "Resolved"
)

// Allergy is one known allergy on a patient record.
type Allergy struct {
	Name     string `json:"name"`
	Severity string `json:"severity,omitempty"`
	Reaction string `json:"reaction,omitempty"`
}

// ChronicCondition is a long-running diagnosis on a patient record.
type ChronicCondition struct {
	Condition     string     `json:"condition"`
	DiagnosedDate *time.Time `json:"diagnosed_date,omitempty"`
	Status        string     `json:"status,omitempty"`
}

// Medication is a current or past prescription on a patient record.
type Medication struct {
	Name      string     `json:"name"`
	Dosage    string     `json:"dosage,omitempty"`
	Frequency string     `json:"frequency,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// Patient maps to the patients table. Name and Email are joined in from the
// owning user row on reads. Allergies, chronic conditions and medications
// are stored as jsonb documents.
type Patient struct {
	ID                    uuid.UUID          `db:"id" json:"id"`
	UserID                uuid.UUID          `db:"user_id" json:"user_id"`
	Name                  string             `json:"name"`
	Email                 string             `json:"email"`
	DateOfBirth           time.Time          `db:"date_of_birth" json:"date_of_birth"`
	Gender                string             `db:"gender" json:"gender"`
	BloodGroup            *string            `db:"blood_group" json:"blood_group,omitempty"`
	Address               *string            `db:"address" json:"address,omitempty"`
	EmergencyContactName  *string            `db:"emergency_contact_name" json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone *string            `db:"emergency_contact_phone" json:"emergency_contact_phone,omitempty"`
	Allergies             []Allergy          `db:"allergies" json:"allergies"`
	ChronicConditions     []ChronicCondition `db:"chronic_conditions" json:"chronic_conditions"`
	Medications           []Medication       `db:"medications" json:"medications"`
	InsuranceProvider     *string            `db:"insurance_provider" json:"insurance_provider,omitempty"`
	InsurancePolicyNumber *string            `db:"insurance_policy_number" json:"insurance_policy_number,omitempty"`
	InsuranceGroupNumber  *string            `db:"insurance_group_number" json:"insurance_group_number,omitempty"`
	InsuranceValidUntil   *time.Time         `db:"insurance_valid_until" json:"insurance_valid_until,omitempty"`
	CreatedAt             time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time          `db:"updated_at" json:"updated_at"`
}

// Vital is one recorded set of vital signs.
type Vital struct {
	ID            uuid.UUID `db:"id" json:"id"`
	PatientID     uuid.UUID `db:"patient_id" json:"patient_id"`
	RecordedAt    time.Time `db:"recorded_at" json:"recorded_at"`
	BloodPressure *string   `db:"blood_pressure" json:"blood_pressure,omitempty"`
	HeartRate     *int      `db:"heart_rate" json:"heart_rate,omitempty"`
	Temperature   *float64  `db:"temperature" json:"temperature,omitempty"`
	WeightKg      *float64  `db:"weight_kg" json:"weight_kg,omitempty"`
	HeightCm      *float64  `db:"height_cm" json:"height_cm,omitempty"`
	Notes         *string   `db:"notes" json:"notes,omitempty"`
}

// UpdateRequest is the JSON body for PUT /patients/:id. Pointer fields are
// applied only when present, so clients can patch a single field. The list
// fields replace the stored document wholesale.
type UpdateRequest struct {
	BloodGroup            *string             `json:"blood_group"`
	Address               *string             `json:"address"`
	EmergencyContactName  *string             `json:"emergency_contact_name"`
	EmergencyContactPhone *string             `json:"emergency_contact_phone"`
	Allergies             *[]Allergy          `json:"allergies"`
	ChronicConditions     *[]ChronicCondition `json:"chronic_conditions"`
	Medications           *[]Medication       `json:"medications"`
	InsuranceProvider     *string             `json:"insurance_provider"`
	InsurancePolicyNumber *string             `json:"insurance_policy_number"`
	InsuranceGroupNumber  *string             `json:"insurance_group_number"`
	InsuranceValidUntil   *string             `json:"insurance_valid_until"`
}

// VitalRequest is the JSON body for POST /patients/:id/vitals.
type VitalRequest struct {
	BloodPressure *string  `json:"blood_pressure"`
	HeartRate     *int     `json:"heart_rate"`
	Temperature   *float64 `json:"temperature"`
	WeightKg      *float64 `json:"weight_kg"`
	HeightCm      *float64 `json:"height_cm"`
	Notes         *string  `json:"notes"`
}
