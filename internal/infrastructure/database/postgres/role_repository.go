package postgres

import (
	"context"
	"errors"
	"fmt"

	"service-template/internal/domain/user"
	"service-template/internal/infrastructure/database/postgres/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RoleRepository implements user.RoleRepository on gorm.
type RoleRepository struct {
	db *DB
}

func NewRoleRepository(db *DB) user.RoleRepository {
	return &RoleRepository{db: db}
}

func (r *RoleRepository) ListDirectRoles(ctx context.Context, userID uuid.UUID) ([]*user.Role, error) {
	var dbModels []models.RoleModel
	err := r.db.DB.WithContext(ctx).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Order("user_roles.created_at").
		Find(&dbModels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list user roles: %w", err)
	}

	roles := make([]*user.Role, len(dbModels))
	for i := range dbModels {
		roles[i] = toRoleEntity(&dbModels[i])
	}

	return roles, nil
}

func (r *RoleRepository) GetByID(ctx context.Context, roleID uuid.UUID) (*user.Role, error) {
	var dbModel models.RoleModel
	err := r.db.DB.WithContext(ctx).First(&dbModel, "id = ?", roleID).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, user.ErrRoleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	return toRoleEntity(&dbModel), nil
}

func toRoleEntity(m *models.RoleModel) *user.Role {
	return &user.Role{
		ID:           m.ID,
		Name:         m.Name,
		ParentRoleID: m.ParentRoleID,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
