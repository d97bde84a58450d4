package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	domainUser "service-template/internal/domain/user"
	"service-template/internal/logger"
	appErrors "service-template/pkg/errors"
	"service-template/pkg/utils"

	"go.uber.org/zap"
)

const resetTokenBytes = 32

// newResetToken returns a URL-safe opaque string. Unlike the signed
// access/refresh tokens it carries no structure; it is only a lookup key.
func newResetToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// RequestReset issues a password reset token for the given email. A
// non-existent email is reported as success so the endpoint cannot be used
// to enumerate accounts. Earlier outstanding tokens for the same user stay
// valid; only redemption and expiry invalidate them.
func (s *Service) RequestReset(ctx context.Context, req *ForgotPasswordRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domainUser.ErrUserNotFound) {
			logger.Info("Password reset requested for non-existent email",
				zap.String("email", req.Email),
				zap.String("event", "password_reset_requested_unknown_email"),
			)
			return nil
		}
		return fmt.Errorf("failed to retrieve user: %w", err)
	}

	raw, err := newResetToken()
	if err != nil {
		return err
	}

	resetToken := &domainUser.PasswordResetToken{
		UserID:    user.ID,
		Token:     raw,
		ExpiresAt: s.now().Add(s.config.Reset.Window()),
		Used:      false,
		Active:    true,
		CreatedAt: s.now(),
	}

	if err := s.resets.Create(ctx, resetToken); err != nil {
		return fmt.Errorf("failed to create reset token: %w", err)
	}

	logger.Info("Password reset token generated",
		zap.String("user_id", user.ID.String()),
		zap.String("token_id", resetToken.ID.String()),
		zap.Time("expires_at", resetToken.ExpiresAt),
		zap.String("event", "password_reset_token_generated"),
	)

	// TODO: deliver the reset link over SMTP using config.SMTP.
	logger.Debug("Password reset token details",
		zap.String("email", user.Email),
		zap.String("reset_token", raw),
		zap.String("event", "password_reset_token_details"),
	)

	return nil
}

// RedeemReset consumes a reset token and installs a new password. The
// check-then-mark is a single compare-and-set at the storage layer, so two
// concurrent redemptions of the same token cannot both succeed.
func (s *Service) RedeemReset(ctx context.Context, req *ResetPasswordRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}

	if err := utils.ValidatePassword(req.NewPassword); err != nil {
		return appErrors.NewAppError("MALFORMED_INPUT", err.Error(), nil)
	}

	resetToken, err := s.resets.GetByToken(ctx, req.Token)
	if err != nil {
		if errors.Is(err, domainUser.ErrResetTokenNotFound) {
			logger.Warn("Password reset attempt with unknown token",
				zap.String("event", "password_reset_failed_unknown_token"),
			)
			return appErrors.ErrInvalidResetToken
		}
		return fmt.Errorf("failed to look up reset token: %w", err)
	}

	if !resetToken.Active {
		return appErrors.ErrInvalidResetToken
	}
	if resetToken.IsExpired(s.now()) {
		return appErrors.ErrExpiredResetToken
	}
	if resetToken.Used {
		return appErrors.ErrResetTokenUsed
	}

	hashedPassword, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.resets.Consume(ctx, resetToken.ID, resetToken.UserID, hashedPassword); err != nil {
		if errors.Is(err, domainUser.ErrResetTokenConsumed) {
			// Lost the race to a concurrent redemption.
			return appErrors.ErrResetTokenUsed
		}
		return fmt.Errorf("failed to consume reset token: %w", err)
	}

	logger.Info("Password reset successfully",
		zap.String("user_id", resetToken.UserID.String()),
		zap.String("token_id", resetToken.ID.String()),
		zap.String("event", "password_reset_success"),
	)

	return nil
}
