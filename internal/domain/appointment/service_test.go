package appointment

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

type mockRepo struct {
	appts map[uuid.UUID]*Appointment
	// raceOnCreate makes Create fail with a unique violation, simulating a
	// concurrent booking that won the slot between pre-check and insert.
	raceOnCreate bool
}

func newMockRepo() *mockRepo {
	return &mockRepo{appts: make(map[uuid.UUID]*Appointment)}
}

func (m *mockRepo) Create(ctx context.Context, a *Appointment) error {
	if m.raceOnCreate {
		return &pgconn.PgError{Code: "23505", ConstraintName: "appointments_active_slot_key"}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	m.appts[a.ID] = a
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return a, nil
}

func (m *mockRepo) Update(ctx context.Context, a *Appointment) error {
	if _, ok := m.appts[a.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.appts[a.ID] = a
	return nil
}

func (m *mockRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string, reason *string) error {
	a, ok := m.appts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	a.Status = status
	a.CancellationReason = reason
	return nil
}

func (m *mockRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(m.appts, id)
	return nil
}

func (m *mockRepo) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Appointment, int, error) {
	var items []*Appointment
	for _, a := range m.appts {
		if filter.PatientID != nil && a.PatientID != *filter.PatientID {
			continue
		}
		if filter.DoctorID != nil && a.DoctorID != *filter.DoctorID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		items = append(items, a)
	}
	return items, len(items), nil
}

func (m *mockRepo) HasConflict(ctx context.Context, doctorID uuid.UUID, date time.Time, startTime string, excludeID uuid.UUID) (bool, error) {
	for _, a := range m.appts {
		if a.ID == excludeID {
			continue
		}
		if a.DoctorID == doctorID && a.AppointmentDate.Equal(date) && a.StartTime == startTime &&
			(a.Status == StatusPending || a.Status == StatusConfirmed) {
			return true, nil
		}
	}
	return false, nil
}

func newTestService(repo *mockRepo) *Service {
	return NewService(repo, nil, nil, zerolog.Nop())
}

func futureDate(days int) string {
	return time.Now().UTC().AddDate(0, 0, days).Format(dateLayout)
}

func bookReq(doctorID uuid.UUID) BookRequest {
	return BookRequest{
		DoctorID:        doctorID.String(),
		AppointmentDate: futureDate(2),
		StartTime:       "09:00",
		EndTime:         "09:30",
		Type:            TypeConsultation,
		Symptoms:        "persistent headaches",
	}
}

func TestBook(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	a, err := svc.Book(context.Background(), uuid.New(), bookReq(uuid.New()))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if a.Status != StatusPending {
		t.Errorf("expected Pending, got %s", a.Status)
	}
	if a.ID == uuid.Nil {
		t.Error("appointment ID not assigned")
	}
}

func TestBook_Validation(t *testing.T) {
	svc := newTestService(newMockRepo())
	doctorID := uuid.New()

	cases := []struct {
		name   string
		mutate func(*BookRequest)
	}{
		{"bad doctor id", func(r *BookRequest) { r.DoctorID = "nope" }},
		{"bad date format", func(r *BookRequest) { r.AppointmentDate = "02/03/2026" }},
		{"past date", func(r *BookRequest) { r.AppointmentDate = "2020-01-01" }},
		{"bad start time", func(r *BookRequest) { r.StartTime = "9:00" }},
		{"bad end time", func(r *BookRequest) { r.EndTime = "25:00" }},
		{"start after end", func(r *BookRequest) { r.StartTime = "10:00"; r.EndTime = "09:30" }},
		{"unknown type", func(r *BookRequest) { r.Type = "Surgery" }},
		{"missing symptoms", func(r *BookRequest) { r.Symptoms = "" }},
		{"overlong symptoms", func(r *BookRequest) { r.Symptoms = strings.Repeat("a", 501) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := bookReq(doctorID)
			tc.mutate(&req)
			if _, err := svc.Book(context.Background(), uuid.New(), req); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestBook_TodayIsRejected(t *testing.T) {
	svc := newTestService(newMockRepo())

	req := bookReq(uuid.New())
	req.AppointmentDate = time.Now().UTC().Format(dateLayout)
	if _, err := svc.Book(context.Background(), uuid.New(), req); err == nil {
		t.Error("expected same-day booking to be rejected")
	}
}

func TestUpdate_RecordsDiagnosis(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	a, err := svc.Book(context.Background(), uuid.New(), bookReq(uuid.New()))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	diagnosis := "tension headache, no red flags"
	updated, err := svc.Update(context.Background(), a.ID, UpdateRequest{Diagnosis: &diagnosis})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Diagnosis == nil || *updated.Diagnosis != diagnosis {
		t.Errorf("diagnosis not recorded: %v", updated.Diagnosis)
	}
}

func TestBook_SlotTaken(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	doctorID := uuid.New()

	if _, err := svc.Book(context.Background(), uuid.New(), bookReq(doctorID)); err != nil {
		t.Fatalf("first booking: %v", err)
	}
	if _, err := svc.Book(context.Background(), uuid.New(), bookReq(doctorID)); err != ErrSlotTaken {
		t.Errorf("expected ErrSlotTaken, got %v", err)
	}
}

func TestBook_SlotTakenAfterCancellation(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	doctorID := uuid.New()

	first, err := svc.Book(context.Background(), uuid.New(), bookReq(doctorID))
	if err != nil {
		t.Fatalf("first booking: %v", err)
	}
	reason := "patient request"
	if _, err := svc.UpdateStatus(context.Background(), first.ID, StatusRequest{Status: StatusCancelled, CancellationReason: &reason}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	// The slot frees up once the holding appointment is no longer active.
	if _, err := svc.Book(context.Background(), uuid.New(), bookReq(doctorID)); err != nil {
		t.Errorf("rebooking freed slot: %v", err)
	}
}

func TestBook_UniqueViolationMapsToSlotTaken(t *testing.T) {
	repo := newMockRepo()
	repo.raceOnCreate = true
	svc := newTestService(repo)

	if _, err := svc.Book(context.Background(), uuid.New(), bookReq(uuid.New())); err != ErrSlotTaken {
		t.Errorf("expected ErrSlotTaken, got %v", err)
	}
}

func TestUpdate_Reschedule(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	a, err := svc.Book(context.Background(), uuid.New(), bookReq(uuid.New()))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	start, end := "14:00", "14:30"
	updated, err := svc.Update(context.Background(), a.ID, UpdateRequest{StartTime: &start, EndTime: &end})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.StartTime != "14:00" {
		t.Errorf("start time not updated: %s", updated.StartTime)
	}
}

func TestUpdate_KeepingOwnSlotIsNotAConflict(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	a, err := svc.Book(context.Background(), uuid.New(), bookReq(uuid.New()))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	// Changing only the symptoms re-validates nothing about the slot, but
	// moving the end time alone still excludes the appointment itself.
	end := "10:00"
	if _, err := svc.Update(context.Background(), a.ID, UpdateRequest{EndTime: &end}); err != nil {
		t.Errorf("Update against own slot: %v", err)
	}
}

func TestUpdate_RescheduleIntoTakenSlot(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	doctorID := uuid.New()

	if _, err := svc.Book(context.Background(), uuid.New(), bookReq(doctorID)); err != nil {
		t.Fatalf("first booking: %v", err)
	}
	second := bookReq(doctorID)
	second.StartTime, second.EndTime = "11:00", "11:30"
	b, err := svc.Book(context.Background(), uuid.New(), second)
	if err != nil {
		t.Fatalf("second booking: %v", err)
	}
	start := "09:00"
	if _, err := svc.Update(context.Background(), b.ID, UpdateRequest{StartTime: &start}); err != ErrSlotTaken {
		t.Errorf("expected ErrSlotTaken, got %v", err)
	}
}

func TestUpdate_TerminalAppointmentRejected(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	a, _ := svc.Book(context.Background(), uuid.New(), bookReq(uuid.New()))
	repo.appts[a.ID].Status = StatusCompleted

	notes := "follow up in two weeks"
	if _, err := svc.Update(context.Background(), a.ID, UpdateRequest{Notes: &notes}); err != ErrNotActive {
		t.Errorf("expected ErrNotActive, got %v", err)
	}
}

func TestUpdateStatus_Transitions(t *testing.T) {
	reason := "schedule conflict"
	cases := []struct {
		name    string
		from    string
		req     StatusRequest
		wantErr bool
	}{
		{"pending to confirmed", StatusPending, StatusRequest{Status: StatusConfirmed}, false},
		{"pending to cancelled", StatusPending, StatusRequest{Status: StatusCancelled, CancellationReason: &reason}, false},
		{"pending to completed", StatusPending, StatusRequest{Status: StatusCompleted}, true},
		{"confirmed to completed", StatusConfirmed, StatusRequest{Status: StatusCompleted}, false},
		{"confirmed to no-show", StatusConfirmed, StatusRequest{Status: StatusNoShow}, false},
		{"completed is terminal", StatusCompleted, StatusRequest{Status: StatusCancelled, CancellationReason: &reason}, true},
		{"cancelled is terminal", StatusCancelled, StatusRequest{Status: StatusConfirmed}, true},
		{"cancel without reason", StatusPending, StatusRequest{Status: StatusCancelled}, true},
		{"unknown target", StatusPending, StatusRequest{Status: "Rescheduled"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newMockRepo()
			svc := newTestService(repo)
			a, _ := svc.Book(context.Background(), uuid.New(), bookReq(uuid.New()))
			repo.appts[a.ID].Status = tc.from

			_, err := svc.UpdateStatus(context.Background(), a.ID, tc.req)
			if tc.wantErr && err == nil {
				t.Error("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestDelete(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	a, _ := svc.Book(context.Background(), uuid.New(), bookReq(uuid.New()))
	if err := svc.Delete(context.Background(), a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(context.Background(), a.ID); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestDelete_TerminalAppointmentRejected(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	a, _ := svc.Book(context.Background(), uuid.New(), bookReq(uuid.New()))
	repo.appts[a.ID].Status = StatusNoShow

	if err := svc.Delete(context.Background(), a.ID); err != ErrNotActive {
		t.Errorf("expected ErrNotActive, got %v", err)
	}
}

func TestList_Filters(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	doctorID, patientID := uuid.New(), uuid.New()

	if _, err := svc.Book(context.Background(), patientID, bookReq(doctorID)); err != nil {
		t.Fatalf("Book: %v", err)
	}
	other := bookReq(uuid.New())
	other.StartTime, other.EndTime = "10:00", "10:30"
	if _, err := svc.Book(context.Background(), uuid.New(), other); err != nil {
		t.Fatalf("Book: %v", err)
	}

	items, total, err := svc.List(context.Background(), ListFilter{PatientID: &patientID}, 20, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("expected one appointment for patient, got %d", total)
	}
	if items[0].DoctorID != doctorID {
		t.Errorf("wrong appointment returned")
	}
}
