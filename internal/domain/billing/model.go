package billing

import (
	"time"

	"github.com/google/uuid"
)

// Invoice payment statuses.
const (
	StatusPending       = "Pending"
	StatusPaid          = "Paid"
	StatusPartiallyPaid = "Partially Paid"
	StatusOverdue       = "Overdue"
	StatusCancelled     = "Cancelled"
)

// Insurance claim statuses.
const (
	ClaimPending  = "Pending"
	ClaimApproved = "Approved"
	ClaimRejected = "Rejected"
)

// paymentTransitions maps each payment status to its allowed successors.
// Paid and Cancelled are terminal.
var paymentTransitions = map[string]map[string]bool{
	StatusPending:       {StatusPaid: true, StatusPartiallyPaid: true, StatusOverdue: true, StatusCancelled: true},
	StatusPartiallyPaid: {StatusPaid: true, StatusOverdue: true, StatusCancelled: true},
	StatusOverdue:       {StatusPaid: true, StatusPartiallyPaid: true, StatusCancelled: true},
	StatusPaid:          {},
	StatusCancelled:     {},
}

var validPaymentMethods = map[string]bool{
	"Cash":      true,
	"Card":      true,
	"Insurance": true,
	"Online":    true,
	"Other":     true,
}

var validClaimStatuses = map[string]bool{
	ClaimPending:  true,
	ClaimApproved: true,
	ClaimRejected: true,
}

// LineItem is a single billed service or product on an invoice. Total is
// always Quantity times UnitPrice, computed at creation.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Total       float64 `json:"total"`
}

// InsuranceClaim tracks a claim filed against an invoice.
type InsuranceClaim struct {
	ClaimNumber    string  `json:"claim_number,omitempty"`
	Provider       string  `json:"provider,omitempty"`
	ClaimedAmount  float64 `json:"claimed_amount,omitempty"`
	ApprovedAmount float64 `json:"approved_amount,omitempty"`
	Status         string  `json:"status,omitempty"`
}

// Invoice is a bill issued to a patient, usually tied to an appointment.
// InvoiceNumber is assigned at creation and never changes. TotalAmount is
// Subtotal plus Tax minus Discount.
type Invoice struct {
	ID             uuid.UUID       `json:"id"`
	InvoiceNumber  string          `json:"invoice_number"`
	PatientID      uuid.UUID       `json:"patient_id"`
	DoctorID       uuid.UUID       `json:"doctor_id"`
	AppointmentID  *uuid.UUID      `json:"appointment_id,omitempty"`
	PatientName    string          `json:"patient_name,omitempty"`
	PatientEmail   string          `json:"-"`
	DoctorName     string          `json:"doctor_name,omitempty"`
	Items          []LineItem      `json:"items"`
	Subtotal       float64         `json:"subtotal"`
	Tax            float64         `json:"tax"`
	Discount       float64         `json:"discount"`
	TotalAmount    float64         `json:"total_amount"`
	Status         string          `json:"status"`
	PaymentMethod  *string         `json:"payment_method,omitempty"`
	PaymentDate    *time.Time      `json:"payment_date,omitempty"`
	DueDate        *time.Time      `json:"due_date,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	InsuranceClaim *InsuranceClaim `json:"insurance_claim,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// LineItemRequest is an invoice line as submitted; the total is computed
// server-side.
type LineItemRequest struct {
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// CreateRequest issues a new invoice in Pending status.
type CreateRequest struct {
	PatientID      string            `json:"patient_id"`
	DoctorID       string            `json:"doctor_id"`
	AppointmentID  *string           `json:"appointment_id"`
	Items          []LineItemRequest `json:"items"`
	Tax            float64           `json:"tax"`
	Discount       float64           `json:"discount"`
	DueDate        *string           `json:"due_date"`
	Notes          string            `json:"notes"`
	InsuranceClaim *InsuranceClaim   `json:"insurance_claim"`
}

// PaymentRequest moves an invoice along the payment lifecycle and may
// attach or update its insurance claim.
type PaymentRequest struct {
	Status         string          `json:"status"`
	PaymentMethod  *string         `json:"payment_method"`
	InsuranceClaim *InsuranceClaim `json:"insurance_claim"`
}

// ListFilter narrows List results. Zero values mean no filtering.
type ListFilter struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Status    string
}
