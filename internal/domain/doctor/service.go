package doctor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carehub/carehub/internal/platform/db"
)

// ErrNotFound is returned when no doctor matches.
var ErrNotFound = errors.New("doctor not found")

type Service struct {
	doctors Repository
	pool    *pgxpool.Pool
}

func NewService(doctors Repository, pool *pgxpool.Pool) *Service {
	return &Service{doctors: doctors, pool: pool}
}

// CreateForUser creates the doctor profile row during account registration.
// It runs inside the registration transaction when one is active.
func (s *Service) CreateForUser(ctx context.Context, userID uuid.UUID, specialization, qualifications string, experienceYears int, consultationFee float64) error {
	if strings.TrimSpace(specialization) == "" {
		return fmt.Errorf("specialization is required")
	}
	if experienceYears < 0 {
		return fmt.Errorf("experience_years cannot be negative")
	}
	if consultationFee < 0 {
		return fmt.Errorf("consultation_fee cannot be negative")
	}
	d := &Doctor{
		UserID:          userID,
		Specialization:  strings.TrimSpace(specialization),
		ExperienceYears: experienceYears,
		ConsultationFee: consultationFee,
	}
	if q := strings.TrimSpace(qualifications); q != "" {
		d.Qualifications = &q
	}
	return s.doctors.Create(ctx, d)
}

// Get returns a doctor together with derived appointment stats.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Detail, error) {
	d, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	stats, err := s.doctors.Stats(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Detail{Doctor: d, Stats: *stats}, nil
}

// GetByUserID returns the doctor profile owned by the given account.
func (s *Service) GetByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error) {
	d, err := s.doctors.GetByUserID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

// Update applies the mutable profile fields.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *UpdateRequest) (*Doctor, error) {
	d, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if req.Specialization != nil {
		sp := strings.TrimSpace(*req.Specialization)
		if sp == "" {
			return nil, fmt.Errorf("specialization cannot be empty")
		}
		d.Specialization = sp
	}
	if req.Qualifications != nil {
		d.Qualifications = req.Qualifications
	}
	if req.ExperienceYears != nil {
		if *req.ExperienceYears < 0 {
			return nil, fmt.Errorf("experience_years cannot be negative")
		}
		d.ExperienceYears = *req.ExperienceYears
	}
	if req.ConsultationFee != nil {
		if *req.ConsultationFee < 0 {
			return nil, fmt.Errorf("consultation_fee cannot be negative")
		}
		d.ConsultationFee = *req.ConsultationFee
	}
	if req.Bio != nil {
		d.Bio = req.Bio
	}

	if err := s.doctors.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Search lists active doctors matching the given filters.
func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.Search(ctx, params, limit, offset)
}

// Availability returns the doctor's weekly schedule.
func (s *Service) Availability(ctx context.Context, doctorID uuid.UUID) ([]*Availability, error) {
	if _, err := s.doctors.GetByID(ctx, doctorID); err != nil {
		if db.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.doctors.ListAvailability(ctx, doctorID)
}

// SetAvailability replaces the doctor's weekly schedule atomically.
func (s *Service) SetAvailability(ctx context.Context, doctorID uuid.UUID, req *AvailabilityRequest) ([]*Availability, error) {
	if _, err := s.doctors.GetByID(ctx, doctorID); err != nil {
		if db.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	entries := make([]*Availability, 0, len(req.Entries))
	seen := make(map[[2]string]bool, len(req.Entries))
	for i, e := range req.Entries {
		if e.DayOfWeek < 0 || e.DayOfWeek > 6 {
			return nil, fmt.Errorf("entry %d: day_of_week must be 0 through 6", i)
		}
		if !validClock(e.StartTime) || !validClock(e.EndTime) {
			return nil, fmt.Errorf("entry %d: times must be HH:MM", i)
		}
		if e.StartTime >= e.EndTime {
			return nil, fmt.Errorf("entry %d: start_time must be before end_time", i)
		}
		// The table enforces this too; catching it here keeps the whole
		// replacement from failing halfway through.
		key := [2]string{fmt.Sprintf("%d", e.DayOfWeek), e.StartTime}
		if seen[key] {
			return nil, fmt.Errorf("entry %d: duplicate window for day %d at %s", i, e.DayOfWeek, e.StartTime)
		}
		seen[key] = true
		entries = append(entries, &Availability{
			DoctorID:    doctorID,
			DayOfWeek:   e.DayOfWeek,
			StartTime:   e.StartTime,
			EndTime:     e.EndTime,
			IsAvailable: e.IsAvailable,
		})
	}

	err := db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		return s.doctors.ReplaceAvailability(ctx, doctorID, entries)
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// validClock reports whether s is a 24-hour HH:MM timestamp. Zero-padded
// strings compare correctly with <, which the slot logic relies on.
func validClock(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	hh := s[:2]
	mm := s[3:]
	for _, c := range hh + mm {
		if c < '0' || c > '9' {
			return false
		}
	}
	return hh <= "23" && mm <= "59"
}
