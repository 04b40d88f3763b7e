package identity

import (
	"time"

	"github.com/google/uuid"
)

// User maps to the users table. One row per account regardless of role;
// doctor and patient profile data live in their own tables keyed by user_id.
type User struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	Name            string     `db:"name" json:"name"`
	Email           string     `db:"email" json:"email"`
	PasswordHash    string     `db:"password_hash" json:"-"`
	Phone           *string    `db:"phone" json:"phone,omitempty"`
	Role            string     `db:"role" json:"role"`
	ProfilePicture  *string    `db:"profile_picture" json:"profile_picture,omitempty"`
	Address         *string    `db:"address" json:"address,omitempty"`
	IsActive        bool       `db:"is_active" json:"is_active"`
	IsEmailVerified bool       `db:"is_email_verified" json:"is_email_verified"`
	LastLogin       *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// RegisterRequest is the JSON body for POST /auth/register. Profile fields
// are read depending on the requested role.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`

	// Doctor profile
	Specialization  string   `json:"specialization"`
	Qualifications  string   `json:"qualifications"`
	ExperienceYears *int     `json:"experience_years"`
	ConsultationFee *float64 `json:"consultation_fee"`

	// Patient profile
	DateOfBirth string `json:"date_of_birth"`
	Gender      string `json:"gender"`
	BloodGroup  string `json:"blood_group"`
	Address     string `json:"address"`
}

// LoginRequest is the JSON body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries a signed token plus the authenticated user.
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// UpdateProfileRequest is the JSON body for PUT /auth/profile.
type UpdateProfileRequest struct {
	Name           *string `json:"name"`
	Phone          *string `json:"phone"`
	Address        *string `json:"address"`
	ProfilePicture *string `json:"profile_picture"`
}

// ChangePasswordRequest is the JSON body for PUT /auth/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}
