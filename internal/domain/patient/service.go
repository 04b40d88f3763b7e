package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carehub/carehub/internal/platform/db"
)

// ErrNotFound is returned when no patient matches the given identifier.
var ErrNotFound = errors.New("patient not found")

// canonicalGenders maps any case spelling to the stored form.
var canonicalGenders = map[string]string{
	"male":   "Male",
	"female": "Female",
	"other":  "Other",
}

var validSeverities = map[string]bool{
	SeverityMild:     true,
	SeverityModerate: true,
	SeveritySevere:   true,
}

var validConditionStatuses = map[string]bool{
	ConditionActive:     true,
	ConditionControlled: true,
	ConditionResolved:   true,
}

// Service implements patient profile and vital-sign operations.
type Service struct {
	patients Repository
	pool     *pgxpool.Pool
}

func NewService(patients Repository, pool *pgxpool.Pool) *Service {
	return &Service{patients: patients, pool: pool}
}

// CreateForUser creates the patient profile row for a newly registered user.
// It joins the ambient transaction when one is carried in the context.
func (s *Service) CreateForUser(ctx context.Context, userID uuid.UUID, dateOfBirth time.Time, gender, bloodGroup, address string) error {
	if dateOfBirth.IsZero() {
		return fmt.Errorf("date of birth is required")
	}
	if dateOfBirth.After(time.Now()) {
		return fmt.Errorf("date of birth must be in the past")
	}
	canonical, ok := canonicalGenders[strings.ToLower(gender)]
	if !ok {
		return fmt.Errorf("invalid gender: %s", gender)
	}
	p := &Patient{
		UserID:            userID,
		DateOfBirth:       dateOfBirth,
		Gender:            canonical,
		Allergies:         []Allergy{},
		ChronicConditions: []ChronicCondition{},
		Medications:       []Medication{},
	}
	if bloodGroup != "" {
		p.BloodGroup = &bloodGroup
	}
	if address != "" {
		p.Address = &address
	}
	return s.patients.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *Service) GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	p, err := s.patients.GetByUserID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*Patient, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.BloodGroup != nil {
		p.BloodGroup = req.BloodGroup
	}
	if req.Address != nil {
		p.Address = req.Address
	}
	if req.EmergencyContactName != nil {
		p.EmergencyContactName = req.EmergencyContactName
	}
	if req.EmergencyContactPhone != nil {
		p.EmergencyContactPhone = req.EmergencyContactPhone
	}
	if req.Allergies != nil {
		for _, a := range *req.Allergies {
			if a.Name == "" {
				return nil, fmt.Errorf("allergy name is required")
			}
			if a.Severity != "" && !validSeverities[a.Severity] {
				return nil, fmt.Errorf("invalid allergy severity: %s", a.Severity)
			}
		}
		p.Allergies = *req.Allergies
	}
	if req.ChronicConditions != nil {
		for _, c := range *req.ChronicConditions {
			if c.Condition == "" {
				return nil, fmt.Errorf("condition name is required")
			}
			if c.Status != "" && !validConditionStatuses[c.Status] {
				return nil, fmt.Errorf("invalid condition status: %s", c.Status)
			}
		}
		p.ChronicConditions = *req.ChronicConditions
	}
	if req.Medications != nil {
		for _, m := range *req.Medications {
			if m.Name == "" {
				return nil, fmt.Errorf("medication name is required")
			}
		}
		p.Medications = *req.Medications
	}
	if req.InsuranceProvider != nil {
		p.InsuranceProvider = req.InsuranceProvider
	}
	if req.InsurancePolicyNumber != nil {
		p.InsurancePolicyNumber = req.InsurancePolicyNumber
	}
	if req.InsuranceGroupNumber != nil {
		p.InsuranceGroupNumber = req.InsuranceGroupNumber
	}
	if req.InsuranceValidUntil != nil {
		if *req.InsuranceValidUntil == "" {
			p.InsuranceValidUntil = nil
		} else {
			d, err := time.Parse("2006-01-02", *req.InsuranceValidUntil)
			if err != nil {
				return nil, fmt.Errorf("invalid insurance valid-until date, use YYYY-MM-DD")
			}
			p.InsuranceValidUntil = &d
		}
	}
	if err := s.patients.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, search string, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, search, limit, offset)
}

func (s *Service) AddVital(ctx context.Context, patientID uuid.UUID, req VitalRequest) (*Vital, error) {
	if _, err := s.Get(ctx, patientID); err != nil {
		return nil, err
	}
	if req.HeartRate != nil && (*req.HeartRate <= 0 || *req.HeartRate > 300) {
		return nil, fmt.Errorf("heart rate out of range: %d", *req.HeartRate)
	}
	if req.Temperature != nil && (*req.Temperature < 30 || *req.Temperature > 45) {
		return nil, fmt.Errorf("temperature out of range: %.1f", *req.Temperature)
	}
	v := &Vital{
		PatientID:     patientID,
		RecordedAt:    time.Now().UTC(),
		BloodPressure: req.BloodPressure,
		HeartRate:     req.HeartRate,
		Temperature:   req.Temperature,
		WeightKg:      req.WeightKg,
		HeightCm:      req.HeightCm,
		Notes:         req.Notes,
	}
	if err := s.patients.AddVital(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service) ListVitals(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Vital, int, error) {
	if _, err := s.Get(ctx, patientID); err != nil {
		return nil, 0, err
	}
	return s.patients.ListVitals(ctx, patientID, limit, offset)
}
