package user

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the persistence operations the auth core consumes for
// user records.
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, userID uuid.UUID) (*User, error)
	GetAll(ctx context.Context) ([]*User, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
}

// RoleRepository exposes the role forest for hierarchy resolution.
type RoleRepository interface {
	// ListDirectRoles returns the roles directly assigned to a user, in
	// assignment order.
	ListDirectRoles(ctx context.Context, userID uuid.UUID) ([]*Role, error)
	GetByID(ctx context.Context, roleID uuid.UUID) (*Role, error)
}

// ResetTokenRepository persists single-use password reset tokens.
type ResetTokenRepository interface {
	Create(ctx context.Context, token *PasswordResetToken) error
	GetByToken(ctx context.Context, token string) (*PasswordResetToken, error)

	// Consume atomically marks the token used and installs the new password
	// hash. The mark must be a compare-and-set on used=false; a losing racer
	// gets ErrResetTokenConsumed and the password is written at most once.
	Consume(ctx context.Context, tokenID uuid.UUID, userID uuid.UUID, passwordHash string) error

	// DeactivateExpired clears the active flag on tokens past their expiry
	// and reports how many rows were touched.
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}
