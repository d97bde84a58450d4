package user

import "errors"

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")

	ErrRoleNotFound = errors.New("role not found")

	ErrResetTokenNotFound = errors.New("reset token not found")
	ErrResetTokenConsumed = errors.New("reset token already consumed")
)
