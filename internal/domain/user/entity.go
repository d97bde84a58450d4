package user

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	PasswordHashed string    `json:"-"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Role is a named authorization unit. ParentRoleID links it into a forest:
// holding a role implicitly grants every ancestor's name.
type Role struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	ParentRoleID *uuid.UUID `json:"parent_role_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// UserRole is the assignment join between users and roles.
type UserRole struct {
	UserID    uuid.UUID `json:"user_id"`
	RoleID    uuid.UUID `json:"role_id"`
	CreatedAt time.Time `json:"created_at"`
}

// PasswordResetToken is a single-use, time-boxed credential for the reset
// flow. Consumption flips Used rather than deleting the row, so redemptions
// leave an audit trail. Active is a soft-enable flag the expiry sweep clears.
type PasswordResetToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Token     string
	ExpiresAt time.Time
	Used      bool
	Active    bool
	CreatedAt time.Time
}

func (t *PasswordResetToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
