package identity

import (
	"time"

	"github.com/google/uuid"
)

// User roles.
const (
	RoleAdmin           = "ADMIN"
	RoleEmergencyCenter = "EMERGENCY_CENTER"
	RoleHospital        = "HOSPITAL"
	RoleRescueTeam      = "RESCUE_TEAM"
	RolePatient         = "PATIENT"
)

// User statuses. Users are never hard-deleted; deactivation flips status.
const (
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
)

// User maps to the users table.
type User struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	Name           string     `db:"name" json:"name"`
	Email          string     `db:"email" json:"email"`
	PasswordHash   string     `db:"password_hash" json:"-"`
	Role           string     `db:"role" json:"role"`
	Status         string     `db:"status" json:"status"`
	OrganizationID *uuid.UUID `db:"organization_id" json:"organization_id,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// IsActive reports whether the user may authenticate.
func (u *User) IsActive() bool { return u.Status == StatusActive }

// ValidRole reports whether role is one of the five known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleEmergencyCenter, RoleHospital, RoleRescueTeam, RolePatient:
		return true
	}
	return false
}

// TokenPair is the login/refresh response payload.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
