package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"service-template/internal/domain/user"
	"service-template/internal/infrastructure/database/postgres/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ResetTokenRepository implements user.ResetTokenRepository on gorm.
type ResetTokenRepository struct {
	db *DB
}

func NewResetTokenRepository(db *DB) user.ResetTokenRepository {
	return &ResetTokenRepository{db: db}
}

func (r *ResetTokenRepository) Create(ctx context.Context, token *user.PasswordResetToken) error {
	token.ID = uuid.New()
	token.CreatedAt = time.Now()

	dbModel := toResetTokenModel(token)
	if err := r.db.DB.WithContext(ctx).Create(dbModel).Error; err != nil {
		return fmt.Errorf("failed to create reset token: %w", err)
	}

	token.ID = dbModel.ID
	token.CreatedAt = dbModel.CreatedAt

	return nil
}

func (r *ResetTokenRepository) GetByToken(ctx context.Context, token string) (*user.PasswordResetToken, error) {
	var dbModel models.PasswordResetTokenModel
	err := r.db.DB.WithContext(ctx).Where("token = ?", token).First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, user.ErrResetTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reset token: %w", err)
	}

	return toResetTokenEntity(&dbModel), nil
}

// Consume marks the token used and installs the new password hash in one
// transaction. The used flag is flipped with a conditional update that only
// matches rows still unused, which is the single-row compare-and-set that
// closes the double-redemption race; the password write rides in the same
// transaction so neither change lands without the other.
func (r *ResetTokenRepository) Consume(ctx context.Context, tokenID uuid.UUID, userID uuid.UUID, passwordHash string) error {
	return r.db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.PasswordResetTokenModel{}).
			Where("id = ? AND used = false", tokenID).
			Update("used", true)
		if result.Error != nil {
			return fmt.Errorf("failed to mark reset token used: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return user.ErrResetTokenConsumed
		}

		result = tx.Model(&models.UserModel{}).
			Where("id = ?", userID).
			Updates(map[string]interface{}{
				"password_hashed": passwordHash,
				"updated_at":      time.Now(),
			})
		if result.Error != nil {
			return fmt.Errorf("failed to update password: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return user.ErrUserNotFound
		}

		return nil
	})
}

func (r *ResetTokenRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.DB.WithContext(ctx).
		Model(&models.PasswordResetTokenModel{}).
		Where("active = true AND expires_at < ?", now).
		Update("active", false)

	if result.Error != nil {
		return 0, fmt.Errorf("failed to deactivate expired reset tokens: %w", result.Error)
	}

	return result.RowsAffected, nil
}

func toResetTokenModel(t *user.PasswordResetToken) *models.PasswordResetTokenModel {
	return &models.PasswordResetTokenModel{
		ID:        t.ID,
		UserID:    t.UserID,
		Token:     t.Token,
		ExpiresAt: t.ExpiresAt,
		Used:      t.Used,
		Active:    t.Active,
		CreatedAt: t.CreatedAt,
	}
}

func toResetTokenEntity(m *models.PasswordResetTokenModel) *user.PasswordResetToken {
	return &user.PasswordResetToken{
		ID:        m.ID,
		UserID:    m.UserID,
		Token:     m.Token,
		ExpiresAt: m.ExpiresAt,
		Used:      m.Used,
		Active:    m.Active,
		CreatedAt: m.CreatedAt,
	}
}
