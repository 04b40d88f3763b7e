package patient

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type mockRepo struct {
	patients map[uuid.UUID]*Patient
	vitals   map[uuid.UUID][]*Vital
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		patients: make(map[uuid.UUID]*Patient),
		vitals:   make(map[uuid.UUID][]*Vital),
	}
}

func (m *mockRepo) Create(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	for _, p := range m.patients {
		if p.UserID == userID {
			return p, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockRepo) Update(ctx context.Context, p *Patient) error {
	if _, ok := m.patients[p.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) List(ctx context.Context, search string, limit, offset int) ([]*Patient, int, error) {
	var items []*Patient
	for _, p := range m.patients {
		items = append(items, p)
	}
	return items, len(items), nil
}

func (m *mockRepo) AddVital(ctx context.Context, v *Vital) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	m.vitals[v.PatientID] = append(m.vitals[v.PatientID], v)
	return nil
}

func (m *mockRepo) ListVitals(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Vital, int, error) {
	items := m.vitals[patientID]
	return items, len(items), nil
}

func seedPatient(repo *mockRepo) *Patient {
	p := &Patient{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		Name:        "Jane Roe",
		Email:       "jane@example.com",
		DateOfBirth: time.Date(1990, 5, 12, 0, 0, 0, 0, time.UTC),
		Gender:      "Female",
	}
	repo.patients[p.ID] = p
	return p
}

func TestCreateForUser(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	userID := uuid.New()

	dob := time.Date(1985, 3, 2, 0, 0, 0, 0, time.UTC)
	if err := svc.CreateForUser(context.Background(), userID, dob, "male", "O+", "12 Main St"); err != nil {
		t.Fatalf("CreateForUser: %v", err)
	}
	p, err := svc.GetByUserID(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetByUserID: %v", err)
	}
	if p.BloodGroup == nil || *p.BloodGroup != "O+" {
		t.Errorf("blood group not stored: %v", p.BloodGroup)
	}
	if p.Address == nil || *p.Address != "12 Main St" {
		t.Errorf("address not stored: %v", p.Address)
	}
	if p.Allergies == nil || p.ChronicConditions == nil || p.Medications == nil {
		t.Error("clinical lists should start empty, not nil")
	}
}

func TestCreateForUser_GenderIsCaseInsensitive(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	dob := time.Date(1985, 3, 2, 0, 0, 0, 0, time.UTC)

	for _, g := range []string{"Female", "female", "FEMALE"} {
		userID := uuid.New()
		if err := svc.CreateForUser(context.Background(), userID, dob, g, "", ""); err != nil {
			t.Fatalf("CreateForUser(%q): %v", g, err)
		}
		p, err := svc.GetByUserID(context.Background(), userID)
		if err != nil {
			t.Fatalf("GetByUserID: %v", err)
		}
		if p.Gender != "Female" {
			t.Errorf("gender %q stored as %q, want Female", g, p.Gender)
		}
	}
}

func TestCreateForUser_Validation(t *testing.T) {
	svc := NewService(newMockRepo(), nil)
	past := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		dob    time.Time
		gender string
	}{
		{"zero date of birth", time.Time{}, "male"},
		{"future date of birth", time.Now().Add(24 * time.Hour), "male"},
		{"unknown gender", past, "unknown"},
		{"blank gender", past, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := svc.CreateForUser(context.Background(), uuid.New(), tc.dob, tc.gender, "", ""); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestGet_NotFound(t *testing.T) {
	svc := NewService(newMockRepo(), nil)
	if _, err := svc.Get(context.Background(), uuid.New()); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	p := seedPatient(repo)

	addr := "99 Elm St"
	contact := "John Roe"
	updated, err := svc.Update(context.Background(), p.ID, UpdateRequest{
		Address:              &addr,
		EmergencyContactName: &contact,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Address == nil || *updated.Address != addr {
		t.Errorf("address not updated: %v", updated.Address)
	}
	if updated.EmergencyContactName == nil || *updated.EmergencyContactName != contact {
		t.Errorf("emergency contact not updated: %v", updated.EmergencyContactName)
	}
}

func TestUpdate_ClinicalRecords(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	p := seedPatient(repo)

	allergies := []Allergy{{Name: "Penicillin", Severity: SeveritySevere, Reaction: "Anaphylaxis"}}
	conditions := []ChronicCondition{{Condition: "Hypertension", Status: ConditionControlled}}
	meds := []Medication{{Name: "Lisinopril", Dosage: "10mg", Frequency: "daily"}}
	provider := "Acme Health"
	validUntil := "2027-06-30"

	updated, err := svc.Update(context.Background(), p.ID, UpdateRequest{
		Allergies:           &allergies,
		ChronicConditions:   &conditions,
		Medications:         &meds,
		InsuranceProvider:   &provider,
		InsuranceValidUntil: &validUntil,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(updated.Allergies) != 1 || updated.Allergies[0].Severity != SeveritySevere {
		t.Errorf("allergies not stored: %+v", updated.Allergies)
	}
	if len(updated.ChronicConditions) != 1 || updated.ChronicConditions[0].Status != ConditionControlled {
		t.Errorf("conditions not stored: %+v", updated.ChronicConditions)
	}
	if len(updated.Medications) != 1 {
		t.Errorf("medications not stored: %+v", updated.Medications)
	}
	if updated.InsuranceProvider == nil || *updated.InsuranceProvider != provider {
		t.Errorf("insurance provider not stored: %v", updated.InsuranceProvider)
	}
	if updated.InsuranceValidUntil == nil || updated.InsuranceValidUntil.Year() != 2027 {
		t.Errorf("insurance valid-until not stored: %v", updated.InsuranceValidUntil)
	}
}

func TestUpdate_ClinicalValidation(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	p := seedPatient(repo)

	badAllergy := []Allergy{{Name: "Dust", Severity: "Catastrophic"}}
	if _, err := svc.Update(context.Background(), p.ID, UpdateRequest{Allergies: &badAllergy}); err == nil {
		t.Error("expected error for unknown severity")
	}
	badCondition := []ChronicCondition{{Condition: "Asthma", Status: "Dormant"}}
	if _, err := svc.Update(context.Background(), p.ID, UpdateRequest{ChronicConditions: &badCondition}); err == nil {
		t.Error("expected error for unknown condition status")
	}
	unnamed := []Medication{{Dosage: "5mg"}}
	if _, err := svc.Update(context.Background(), p.ID, UpdateRequest{Medications: &unnamed}); err == nil {
		t.Error("expected error for unnamed medication")
	}
	badDate := "soon"
	if _, err := svc.Update(context.Background(), p.ID, UpdateRequest{InsuranceValidUntil: &badDate}); err == nil {
		t.Error("expected error for malformed valid-until date")
	}
}

func TestAddVital(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	p := seedPatient(repo)

	bp := "120/80"
	hr := 72
	v, err := svc.AddVital(context.Background(), p.ID, VitalRequest{BloodPressure: &bp, HeartRate: &hr})
	if err != nil {
		t.Fatalf("AddVital: %v", err)
	}
	if v.RecordedAt.IsZero() {
		t.Error("recorded_at not set")
	}
	items, total, err := svc.ListVitals(context.Background(), p.ID, 20, 0)
	if err != nil {
		t.Fatalf("ListVitals: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("expected one vital, got total=%d len=%d", total, len(items))
	}
}

func TestAddVital_Validation(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	p := seedPatient(repo)

	badHR := 500
	if _, err := svc.AddVital(context.Background(), p.ID, VitalRequest{HeartRate: &badHR}); err == nil {
		t.Error("expected error for out-of-range heart rate")
	}
	badTemp := 50.0
	if _, err := svc.AddVital(context.Background(), p.ID, VitalRequest{Temperature: &badTemp}); err == nil {
		t.Error("expected error for out-of-range temperature")
	}
}

func TestAddVital_UnknownPatient(t *testing.T) {
	svc := NewService(newMockRepo(), nil)
	if _, err := svc.AddVital(context.Background(), uuid.New(), VitalRequest{}); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
