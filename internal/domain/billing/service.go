package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/carehub/carehub/internal/platform/db"
	"github.com/carehub/carehub/internal/platform/notification"
)

var (
	ErrNotFound          = errors.New("invoice not found")
	ErrInvalidTransition = errors.New("invalid payment status transition")
)

// invoiceNumberAttempts bounds the retries when two concurrent creates
// race for the same invoice number.
const invoiceNumberAttempts = 3

// Notifier sends templated emails. Satisfied by notification.Manager.
type Notifier interface {
	SendFromTemplate(ctx context.Context, templateID string, data map[string]string, recipient string) (*notification.Notification, error)
}

// Service implements invoice creation and payment tracking.
type Service struct {
	invoices Repository
	pool     *pgxpool.Pool
	notifier Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(invoices Repository, pool *pgxpool.Pool, notifier Notifier, logger zerolog.Logger) *Service {
	return &Service{invoices: invoices, pool: pool, notifier: notifier, logger: logger, now: time.Now}
}

// Create issues a Pending invoice. Line totals, the subtotal and the total
// amount are computed server-side. The invoice number is INV-<year>-<seq>
// where seq restarts every year; the count and the insert share a
// transaction, and a unique-violation on the number (two creates racing
// for the same sequence value) is retried with a fresh count.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Invoice, error) {
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		return nil, fmt.Errorf("invalid patient id")
	}
	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("invalid doctor id")
	}
	var appointmentID *uuid.UUID
	if req.AppointmentID != nil && *req.AppointmentID != "" {
		id, err := uuid.Parse(*req.AppointmentID)
		if err != nil {
			return nil, fmt.Errorf("invalid appointment id")
		}
		appointmentID = &id
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("at least one line item is required")
	}
	items := make([]LineItem, 0, len(req.Items))
	var subtotal float64
	for _, it := range req.Items {
		if it.Description == "" {
			return nil, fmt.Errorf("item description is required")
		}
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("item quantity must be positive")
		}
		if it.UnitPrice < 0 {
			return nil, fmt.Errorf("item unit price cannot be negative")
		}
		total := float64(it.Quantity) * it.UnitPrice
		subtotal += total
		items = append(items, LineItem{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Total:       total,
		})
	}
	if req.Tax < 0 || req.Discount < 0 {
		return nil, fmt.Errorf("tax and discount cannot be negative")
	}
	totalAmount := subtotal + req.Tax - req.Discount
	if totalAmount < 0 {
		return nil, fmt.Errorf("discount exceeds invoice total")
	}
	var dueDate *time.Time
	if req.DueDate != nil && *req.DueDate != "" {
		d, err := time.Parse("2006-01-02", *req.DueDate)
		if err != nil {
			return nil, fmt.Errorf("invalid due date, use YYYY-MM-DD")
		}
		dueDate = &d
	}
	if req.InsuranceClaim != nil {
		if req.InsuranceClaim.Status == "" {
			req.InsuranceClaim.Status = ClaimPending
		}
		if !validClaimStatuses[req.InsuranceClaim.Status] {
			return nil, fmt.Errorf("invalid insurance claim status")
		}
	}

	inv := &Invoice{
		PatientID:      patientID,
		DoctorID:       doctorID,
		AppointmentID:  appointmentID,
		Items:          items,
		Subtotal:       subtotal,
		Tax:            req.Tax,
		Discount:       req.Discount,
		TotalAmount:    totalAmount,
		Status:         StatusPending,
		DueDate:        dueDate,
		Notes:          req.Notes,
		InsuranceClaim: req.InsuranceClaim,
	}
	year := s.now().UTC().Year()
	for attempt := 1; ; attempt++ {
		err = db.WithTx(ctx, s.pool, func(ctx context.Context) error {
			n, err := s.invoices.CountForYear(ctx, year)
			if err != nil {
				return err
			}
			inv.InvoiceNumber = fmt.Sprintf("INV-%d-%06d", year, n+1)
			return s.invoices.Create(ctx, inv)
		})
		if err == nil {
			break
		}
		if db.IsUniqueViolation(err) && attempt < invoiceNumberAttempts {
			s.logger.Debug().Str("invoice_number", inv.InvoiceNumber).Msg("invoice number taken, retrying")
			continue
		}
		if db.IsForeignKeyViolation(err) {
			return nil, fmt.Errorf("doctor or patient does not exist")
		}
		if db.IsUniqueViolation(err) {
			return nil, fmt.Errorf("could not allocate invoice number, try again")
		}
		return nil, err
	}

	created, err := s.Get(ctx, inv.ID)
	if err != nil {
		return inv, nil
	}
	s.sendAsync("invoice-created", map[string]string{
		"patient_name":   created.PatientName,
		"invoice_number": created.InvoiceNumber,
		"amount":         fmt.Sprintf("%.2f", created.TotalAmount),
	}, created.PatientEmail)
	return created, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return inv, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Invoice, int, error) {
	return s.invoices.List(ctx, filter, limit, offset)
}

// UpdatePayment moves an invoice along the payment lifecycle. Marking an
// invoice Paid records the method and timestamp.
func (s *Service) UpdatePayment(ctx context.Context, id uuid.UUID, req PaymentRequest) (*Invoice, error) {
	inv, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	allowed, known := paymentTransitions[inv.Status]
	if !known {
		return nil, fmt.Errorf("unknown current status: %s", inv.Status)
	}
	if !allowed[req.Status] {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, inv.Status, req.Status)
	}
	if req.Status == StatusPaid || req.Status == StatusPartiallyPaid {
		if req.PaymentMethod == nil || !validPaymentMethods[*req.PaymentMethod] {
			return nil, fmt.Errorf("valid payment method is required")
		}
		inv.PaymentMethod = req.PaymentMethod
		paidAt := s.now().UTC()
		inv.PaymentDate = &paidAt
	}
	if req.InsuranceClaim != nil {
		if !validClaimStatuses[req.InsuranceClaim.Status] {
			return nil, fmt.Errorf("invalid insurance claim status")
		}
		inv.InsuranceClaim = req.InsuranceClaim
	}
	inv.Status = req.Status
	if err := s.invoices.UpdatePayment(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Service) sendAsync(templateID string, data map[string]string, recipient string) {
	if s.notifier == nil || recipient == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := s.notifier.SendFromTemplate(ctx, templateID, data, recipient); err != nil {
			s.logger.Warn().Err(err).Str("template", templateID).Str("recipient", recipient).Msg("notification failed")
		}
	}()
}
