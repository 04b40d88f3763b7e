package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/carehub/carehub/internal/platform/auth"
	"github.com/carehub/carehub/internal/platform/db"
	"github.com/carehub/carehub/internal/platform/notification"
)

// Service-level errors the handler translates to HTTP status codes.
var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account is deactivated")
	ErrUserNotFound       = errors.New("user not found")
)

// DoctorRegistrar creates the doctor profile row during registration.
type DoctorRegistrar interface {
	CreateForUser(ctx context.Context, userID uuid.UUID, specialization, qualifications string, experienceYears int, consultationFee float64) error
}

// PatientRegistrar creates the patient profile row during registration.
type PatientRegistrar interface {
	CreateForUser(ctx context.Context, userID uuid.UUID, dateOfBirth time.Time, gender, bloodGroup, address string) error
}

// Notifier is the slice of the notification manager the service uses.
type Notifier interface {
	SendFromTemplate(ctx context.Context, templateID string, data map[string]string, recipient string) (*notification.Notification, error)
}

type Service struct {
	users    Repository
	pool     *pgxpool.Pool
	doctors  DoctorRegistrar
	patients PatientRegistrar
	tokens   *auth.TokenIssuer
	notifier Notifier
	logger   zerolog.Logger
}

func NewService(users Repository, pool *pgxpool.Pool, doctors DoctorRegistrar, patients PatientRegistrar, tokens *auth.TokenIssuer, notifier Notifier, logger zerolog.Logger) *Service {
	return &Service{
		users:    users,
		pool:     pool,
		doctors:  doctors,
		patients: patients,
		tokens:   tokens,
		notifier: notifier,
		logger:   logger,
	}
}

// TokenTTL returns the lifetime of issued tokens, used for cookie expiry.
func (s *Service) TokenTTL() time.Duration {
	return s.tokens.TTL()
}

// Register creates a user account together with its role profile. The user
// row and the profile row are written in one transaction so a failed profile
// insert never leaves an orphaned account behind.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	if err := validateRegistration(req); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &User{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Role:         req.Role,
		IsActive:     true,
	}
	if p := strings.TrimSpace(req.Phone); p != "" {
		user.Phone = &p
	}

	err = db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		if err := s.users.Create(ctx, user); err != nil {
			if db.IsUniqueViolation(err) {
				return ErrEmailTaken
			}
			return err
		}

		switch user.Role {
		case auth.RoleDoctor:
			return s.doctors.CreateForUser(ctx, user.ID, req.Specialization, req.Qualifications, *req.ExperienceYears, *req.ConsultationFee)
		case auth.RolePatient:
			dob, err := time.Parse("2006-01-02", req.DateOfBirth)
			if err != nil {
				return fmt.Errorf("invalid date_of_birth: must be YYYY-MM-DD")
			}
			return s.patients.CreateForUser(ctx, user.ID, dob, req.Gender, req.BloodGroup, req.Address)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user.ID.String(), user.Role, user.Email)
	if err != nil {
		return nil, fmt.Errorf("issuing token: %w", err)
	}

	s.sendAsync("welcome", map[string]string{
		"name": user.Name,
		"role": user.Role,
	}, user.Email)

	return &AuthResponse{Token: token, User: user}, nil
}

// Login authenticates by email and password. Unknown email and wrong
// password return the same error so the response does not leak which
// accounts exist.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	now := time.Now().UTC()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		// A failed timestamp must not block the login itself.
		s.logger.Warn().Err(err).Str("user_id", user.ID.String()).Msg("recording last login failed")
	} else {
		user.LastLogin = &now
	}

	token, err := s.tokens.Issue(user.ID.String(), user.Role, user.Email)
	if err != nil {
		return nil, fmt.Errorf("issuing token: %w", err)
	}
	return &AuthResponse{Token: token, User: user}, nil
}

// Get returns a user by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// UpdateProfile changes the mutable account fields.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, req *UpdateProfileRequest) (*User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("name cannot be empty")
		}
		user.Name = name
	}
	if req.Phone != nil {
		user.Phone = req.Phone
	}
	if req.Address != nil {
		user.Address = req.Address
	}
	if req.ProfilePicture != nil {
		user.ProfilePicture = req.ProfilePicture
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword verifies the current password, stores a new hash and
// returns a fresh token so the client does not keep using credentials
// issued against the old password.
func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, req *ChangePasswordRequest) (*AuthResponse, error) {
	if len(req.NewPassword) < 8 {
		return nil, fmt.Errorf("new password must be at least 8 characters")
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.CheckPassword(user.PasswordHash, req.CurrentPassword); err != nil {
		return nil, ErrInvalidCredentials
	}
	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, id, hash); err != nil {
		return nil, err
	}
	token, err := s.tokens.Issue(user.ID.String(), user.Role, user.Email)
	if err != nil {
		return nil, fmt.Errorf("issuing token: %w", err)
	}
	return &AuthResponse{Token: token, User: user}, nil
}

// SetActive enables or disables an account.
func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.users.SetActive(ctx, id, active)
}

// List returns users, optionally filtered by role.
func (s *Service) List(ctx context.Context, role string, limit, offset int) ([]*User, int, error) {
	if role != "" && !auth.ValidRole(role) {
		return nil, 0, fmt.Errorf("invalid role filter: %s", role)
	}
	return s.users.List(ctx, role, limit, offset)
}

// sendAsync fires a notification without blocking the request. Delivery
// failures are logged, never surfaced to the caller.
func (s *Service) sendAsync(templateID string, data map[string]string, recipient string) {
	if s.notifier == nil {
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

func validateRegistration(req *RegisterRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("name is required")
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("a valid email is required")
	}
	if len(req.Password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	switch req.Role {
	case auth.RolePatient:
		if req.DateOfBirth == "" {
			return fmt.Errorf("date_of_birth is required for patients")
		}
		if req.Gender == "" {
			return fmt.Errorf("gender is required for patients")
		}
	case auth.RoleDoctor:
		if strings.TrimSpace(req.Specialization) == "" {
			return fmt.Errorf("specialization is required for doctors")
		}
		if req.ExperienceYears == nil {
			return fmt.Errorf("experience_years is required for doctors")
		}
		if *req.ExperienceYears < 0 {
			return fmt.Errorf("experience_years cannot be negative")
		}
		if req.ConsultationFee == nil {
			return fmt.Errorf("consultation_fee is required for doctors")
		}
		if *req.ConsultationFee <= 0 {
			return fmt.Errorf("consultation_fee must be positive")
		}
	default:
		return fmt.Errorf("role must be patient or doctor")
	}
	return nil
}
