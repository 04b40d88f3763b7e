package appointment

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
	ErrNotFound          = errors.New("appointment not found")
	ErrSlotTaken         = errors.New("the doctor already has an appointment in this slot")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotActive         = errors.New("appointment is no longer active")
)

const dateLayout = "2006-01-02"

// Notifier sends templated emails. Satisfied by notification.Manager.
type Notifier interface {
	SendFromTemplate(ctx context.Context, templateID string, data map[string]string, recipient string) (*notification.Notification, error)
}

// Service implements appointment booking and lifecycle management.
type Service struct {
	appts    Repository
	pool     *pgxpool.Pool
	notifier Notifier
	logger   zerolog.Logger
}

func NewService(appts Repository, pool *pgxpool.Pool, notifier Notifier, logger zerolog.Logger) *Service {
	return &Service{appts: appts, pool: pool, notifier: notifier, logger: logger}
}

// Book creates a Pending appointment after checking the doctor's slot. The
// slot is also guarded by a partial unique index over active appointments,
// so a concurrent booking that slips past the pre-check still fails cleanly.
func (s *Service) Book(ctx context.Context, patientID uuid.UUID, req BookRequest) (*Appointment, error) {
	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("invalid doctor id")
	}
	date, err := parseBookingDate(req.AppointmentDate)
	if err != nil {
		return nil, err
	}
	if err := validateSlot(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}
	if !validTypes[req.Type] {
		return nil, fmt.Errorf("invalid appointment type: %s", req.Type)
	}
	if err := validateSymptoms(req.Symptoms); err != nil {
		return nil, err
	}

	taken, err := s.appts.HasConflict(ctx, doctorID, date, req.StartTime, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrSlotTaken
	}

	a := &Appointment{
		PatientID:       patientID,
		DoctorID:        doctorID,
		AppointmentDate: date,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		Type:            req.Type,
		Status:          StatusPending,
		Symptoms:        req.Symptoms,
	}
	if err := s.appts.Create(ctx, a); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		if db.IsForeignKeyViolation(err) {
			return nil, fmt.Errorf("doctor or patient does not exist")
		}
		return nil, err
	}

	created, err := s.Get(ctx, a.ID)
	if err != nil {
		return a, nil
	}
	s.sendAsync("appointment-booked", map[string]string{
		"patient_name": created.PatientName,
		"doctor_name":  created.DoctorName,
		"type":         created.Type,
		"date":         created.AppointmentDate.Format(dateLayout),
		"start_time":   created.StartTime,
	}, created.PatientEmail)
	return created, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.appts.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Appointment, int, error) {
	return s.appts.List(ctx, filter, limit, offset)
}

// Update reschedules or amends an appointment. Only active appointments can
// change; a moved slot goes through the same conflict check as a fresh booking.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*Appointment, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusPending && a.Status != StatusConfirmed {
		return nil, ErrNotActive
	}

	moved := false
	if req.AppointmentDate != nil {
		date, err := parseBookingDate(*req.AppointmentDate)
		if err != nil {
			return nil, err
		}
		a.AppointmentDate = date
		moved = true
	}
	if req.StartTime != nil {
		a.StartTime = *req.StartTime
		moved = true
	}
	if req.EndTime != nil {
		a.EndTime = *req.EndTime
		moved = true
	}
	if moved {
		if err := validateSlot(a.StartTime, a.EndTime); err != nil {
			return nil, err
		}
		taken, err := s.appts.HasConflict(ctx, a.DoctorID, a.AppointmentDate, a.StartTime, a.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrSlotTaken
		}
	}
	if req.Type != nil {
		if !validTypes[*req.Type] {
			return nil, fmt.Errorf("invalid appointment type: %s", *req.Type)
		}
		a.Type = *req.Type
	}
	if req.Symptoms != nil {
		if err := validateSymptoms(*req.Symptoms); err != nil {
			return nil, err
		}
		a.Symptoms = *req.Symptoms
	}
	if req.Notes != nil {
		a.Notes = req.Notes
	}
	if req.Diagnosis != nil {
		a.Diagnosis = req.Diagnosis
	}

	if err := s.appts.Update(ctx, a); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return a, nil
}

// UpdateStatus moves an appointment along its lifecycle. Cancelling requires
// a reason; terminal states cannot change.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, req StatusRequest) (*Appointment, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	allowed, known := statusTransitions[a.Status]
	if !known {
		return nil, fmt.Errorf("unknown current status: %s", a.Status)
	}
	if !allowed[req.Status] {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, a.Status, req.Status)
	}
	var reason *string
	if req.Status == StatusCancelled {
		if req.CancellationReason == nil || *req.CancellationReason == "" {
			return nil, fmt.Errorf("cancellation reason is required")
		}
		reason = req.CancellationReason
	}
	if err := s.appts.UpdateStatus(ctx, id, req.Status, reason); err != nil {
		return nil, err
	}
	a.Status = req.Status
	a.CancellationReason = reason

	if req.Status == StatusCancelled {
		s.sendAsync("appointment-cancelled", map[string]string{
			"patient_name": a.PatientName,
			"doctor_name":  a.DoctorName,
			"date":         a.AppointmentDate.Format(dateLayout),
			"start_time":   a.StartTime,
			"reason":       *reason,
		}, a.PatientEmail)
	} else {
		s.sendAsync("appointment-status", map[string]string{
			"patient_name": a.PatientName,
			"doctor_name":  a.DoctorName,
			"date":         a.AppointmentDate.Format(dateLayout),
			"start_time":   a.StartTime,
			"status":       a.Status,
		}, a.PatientEmail)
	}
	return a, nil
}

// Delete removes an appointment outright. Only active appointments may be
// deleted; completed and cancelled ones stay for the record.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	a, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if a.Status != StatusPending && a.Status != StatusConfirmed {
		return ErrNotActive
	}
	return s.appts.Delete(ctx, id)
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

func parseBookingDate(raw string) (time.Time, error) {
	date, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid appointment date, want YYYY-MM-DD")
	}
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if !date.After(today) {
		return time.Time{}, fmt.Errorf("appointment date must be in the future")
	}
	return date, nil
}

const maxSymptomsLen = 500

func validateSymptoms(s string) error {
	if s == "" {
		return fmt.Errorf("symptoms are required")
	}
	if len(s) > maxSymptomsLen {
		return fmt.Errorf("symptoms cannot exceed %d characters", maxSymptomsLen)
	}
	return nil
}

func validateSlot(start, end string) error {
	if !validClock(start) || !validClock(end) {
		return fmt.Errorf("times must be in 24h HH:MM form")
	}
	if start >= end {
		return fmt.Errorf("start time must be before end time")
	}
	return nil
}

// validClock reports whether s is a zero-padded 24h clock string.
func validClock(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s[:2] <= "23" && s[3:] <= "59"
}
