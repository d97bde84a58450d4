package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"service-template/internal/config"
	domainUser "service-template/internal/domain/user"
	"service-template/internal/logger"
	"service-template/internal/token"
	appErrors "service-template/pkg/errors"
	"service-template/pkg/utils"

	"go.uber.org/zap"
)

// Service orchestrates login, token verification, refresh and the password
// reset flow. It holds no session state of its own: tokens are self-expiring
// bearer credentials, revocation happens by deactivating the user account.
type Service struct {
	users  domainUser.Repository
	roles  domainUser.RoleRepository
	resets domainUser.ResetTokenRepository
	codec  *token.Codec
	config *config.Config
	now    func() time.Time
}

func NewService(
	users domainUser.Repository,
	roles domainUser.RoleRepository,
	resets domainUser.ResetTokenRepository,
	codec *token.Codec,
	cfg *config.Config,
) *Service {
	return &Service{
		users:  users,
		roles:  roles,
		resets: resets,
		codec:  codec,
		config: cfg,
		now:    time.Now,
	}
}

func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*AuthResult, error) {
	if !s.config.Server.EnableRegistration {
		return nil, appErrors.ErrRegistrationDisabled
	}

	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}

	if err := utils.ValidatePassword(req.Password); err != nil {
		return nil, appErrors.NewAppError("MALFORMED_INPUT", err.Error(), nil)
	}

	existing, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, domainUser.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		logger.Warn("Registration attempt with existing email",
			zap.String("email", req.Email),
			zap.String("event", "registration_failed_duplicate_email"),
		)
		return nil, appErrors.ErrUserAlreadyExists
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domainUser.User{
		Email:          req.Email,
		PasswordHashed: hashedPassword,
		IsActive:       true,
		CreatedAt:      s.now(),
		UpdatedAt:      s.now(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domainUser.ErrUserAlreadyExists) {
			return nil, appErrors.ErrUserAlreadyExists
		}
		return nil, err
	}

	pair, err := s.codec.IssuePair(user.ID, s.config.JWT.AccessTTL(), s.config.JWT.RefreshTTL())
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	roles, err := s.ResolveRoles(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	logger.Info("User registered successfully",
		zap.String("user_id", user.ID.String()),
		zap.String("email", user.Email),
		zap.String("event", "user_registered"),
	)

	return &AuthResult{
		User:   toUserResponse(user, roles),
		Tokens: pair,
	}, nil
}

func (s *Service) Login(ctx context.Context, req *LoginRequest) (*AuthResult, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domainUser.ErrUserNotFound) {
			logger.Warn("Login attempt with non-existent email",
				zap.String("email", req.Email),
				zap.String("event", "login_failed_user_not_found"),
			)
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.IsActive {
		logger.Warn("Login attempt for inactive user",
			zap.String("user_id", user.ID.String()),
			zap.String("event", "login_failed_inactive_user"),
		)
		return nil, appErrors.ErrUserInactive
	}

	if !utils.CheckPassword(user.PasswordHashed, req.Password) {
		logger.Warn("Login attempt with invalid password",
			zap.String("user_id", user.ID.String()),
			zap.String("event", "login_failed_invalid_password"),
		)
		return nil, appErrors.ErrInvalidCredentials
	}

	pair, err := s.codec.IssuePair(user.ID, s.config.JWT.AccessTTL(), s.config.JWT.RefreshTTL())
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	roles, err := s.ResolveRoles(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	logger.Info("User logged in successfully",
		zap.String("user_id", user.ID.String()),
		zap.String("event", "login_success"),
	)

	return &AuthResult{
		User:   toUserResponse(user, roles),
		Tokens: pair,
	}, nil
}

// Authenticate verifies an access token and returns the live user record.
// The user is re-fetched on every call, not cached: deactivating an account
// takes effect on the next request even though the token itself is still
// cryptographically valid.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*domainUser.User, error) {
	claims, err := s.codec.Decode(accessToken)
	if err != nil {
		logger.Debug("Access token rejected",
			zap.String("event", "authenticate_failed_decode"),
			zap.Error(err),
		)
		return nil, appErrors.ErrUnauthenticated
	}

	if claims.TokenType != token.TypeAccess {
		logger.Warn("Non-access token presented for authentication",
			zap.String("token_type", string(claims.TokenType)),
			zap.String("event", "authenticate_failed_wrong_type"),
		)
		return nil, appErrors.ErrUnauthenticated
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, appErrors.ErrUnauthenticated
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domainUser.ErrUserNotFound) {
			return nil, appErrors.ErrUnauthenticated
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, appErrors.ErrUnauthenticated
	}

	return user, nil
}

// Refresh exchanges a valid refresh token for a new access token. Refresh
// tokens are not rotated or invalidated on use; they stay valid until their
// own expiry.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	claims, err := s.codec.Decode(refreshToken)
	if err != nil {
		logger.Debug("Refresh token rejected",
			zap.String("event", "refresh_failed_decode"),
			zap.Error(err),
		)
		return "", time.Time{}, appErrors.ErrUnauthenticated
	}

	if claims.TokenType != token.TypeRefresh {
		logger.Warn("Non-refresh token presented for refresh",
			zap.String("token_type", string(claims.TokenType)),
			zap.String("event", "refresh_failed_wrong_type"),
		)
		return "", time.Time{}, appErrors.ErrUnauthenticated
	}

	userID, err := claims.UserID()
	if err != nil {
		return "", time.Time{}, appErrors.ErrUnauthenticated
	}

	accessToken, expiresAt, err := s.codec.Issue(userID, token.TypeAccess, s.config.JWT.AccessTTL())
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate access token: %w", err)
	}

	logger.Debug("Access token refreshed",
		zap.String("user_id", userID.String()),
		zap.String("event", "refresh_success"),
	)

	return accessToken, expiresAt, nil
}

func (s *Service) GetAllUsers(ctx context.Context) ([]*UserResponse, error) {
	users, err := s.users.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]*UserResponse, 0, len(users))
	for _, u := range users {
		roles, err := s.ResolveRoles(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		responses = append(responses, toUserResponse(u, roles))
	}

	return responses, nil
}
