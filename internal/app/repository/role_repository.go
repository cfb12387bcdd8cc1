package repository

import (
	"context"
	"errors"

	"github.com/hairpin-store/hairpin-backend/internal/app/model"
	"github.com/hairpin-store/hairpin-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RoleRepository interface {
	WithTx(tx *gorm.DB) RoleRepository
	Create(ctx context.Context, role *model.Role) error
	FindAll(ctx context.Context) ([]model.Role, error)
	FindByName(ctx context.Context, name string) (*model.Role, error)
	FindByUserID(ctx context.Context, userID uint) ([]model.Role, error)
	FindUsersWithRole(ctx context.Context, roleID uint) ([]model.User, error)
	HasAnyRole(ctx context.Context, userID uint, names ...string) (bool, error)
	CountUsersWithRole(ctx context.Context, roleID uint) (int64, error)
	LockRole(ctx context.Context, roleID uint) error
	AddUserRole(ctx context.Context, userID, roleID uint) (bool, error)
	RemoveUserRole(ctx context.Context, userID, roleID uint) (bool, error)
}

type roleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) WithTx(tx *gorm.DB) RoleRepository {
	return &roleRepository{db: tx}
}

func (r *roleRepository) Create(ctx context.Context, role *model.Role) error {
	logger.Debug("Creating role in database", map[string]interface{}{
		"name": role.Name,
	})

	role.NormalizedName = model.NormalizeRoleName(role.Name)
	if err := r.db.WithContext(ctx).Create(role).Error; err != nil {
		logger.Error("Failed to create role in database", err, map[string]interface{}{
			"name": role.Name,
		})
		return err
	}
	return nil
}

func (r *roleRepository) FindAll(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&roles).Error; err != nil {
		logger.Error("Failed to list roles", err)
		return nil, err
	}
	return roles, nil
}

// FindByName matches case-insensitively.
func (r *roleRepository) FindByName(ctx context.Context, name string) (*model.Role, error) {
	var role model.Role
	err := r.db.WithContext(ctx).
		Where("normalized_name = ?", model.NormalizeRoleName(name)).
		First(&role).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find role by name", err, map[string]interface{}{
				"name": name,
			})
		}
		return nil, err
	}
	return &role, nil
}

func (r *roleRepository) FindByUserID(ctx context.Context, userID uint) ([]model.Role, error) {
	var roles []model.Role
	err := r.db.WithContext(ctx).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Order("roles.name ASC").
		Find(&roles).Error
	if err != nil {
		logger.Error("Failed to list roles for user", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return roles, nil
}

func (r *roleRepository) FindUsersWithRole(ctx context.Context, roleID uint) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Joins("JOIN user_roles ON user_roles.user_id = users.id").
		Where("user_roles.role_id = ?", roleID).
		Order("users.id ASC").
		Find(&users).Error
	if err != nil {
		logger.Error("Failed to list users with role", err, map[string]interface{}{
			"role_id": roleID,
		})
		return nil, err
	}
	return users, nil
}

func (r *roleRepository) HasAnyRole(ctx context.Context, userID uint, names ...string) (bool, error) {
	if len(names) == 0 {
		return false, nil
	}
	normalized := make([]string, len(names))
	for i, n := range names {
		normalized[i] = model.NormalizeRoleName(n)
	}

	var count int64
	err := r.db.WithContext(ctx).Model(&model.UserRole{}).
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("user_roles.user_id = ? AND roles.normalized_name IN ?", userID, normalized).
		Count(&count).Error
	if err != nil {
		logger.Error("Failed to check user roles", err, map[string]interface{}{
			"user_id": userID,
		})
		return false, err
	}
	return count > 0, nil
}

func (r *roleRepository) CountUsersWithRole(ctx context.Context, roleID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.UserRole{}).Where("role_id = ?", roleID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// LockRole takes a row lock on the role so membership checks and removals
// for that role serialize. Dialects without FOR UPDATE ignore the clause.
func (r *roleRepository) LockRole(ctx context.Context, roleID uint) error {
	var role model.Role
	query := r.db.WithContext(ctx)
	if query.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return query.First(&role, roleID).Error
}

// AddUserRole reports false when the membership already existed.
func (r *roleRepository) AddUserRole(ctx context.Context, userID, roleID uint) (bool, error) {
	logger.Debug("Adding role membership", map[string]interface{}{
		"user_id": userID,
		"role_id": roleID,
	})

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.UserRole{UserID: userID, RoleID: roleID})
	if result.Error != nil {
		logger.Error("Failed to add role membership", result.Error, map[string]interface{}{
			"user_id": userID,
			"role_id": roleID,
		})
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// RemoveUserRole reports false when there was no membership to remove.
func (r *roleRepository) RemoveUserRole(ctx context.Context, userID, roleID uint) (bool, error) {
	logger.Debug("Removing role membership", map[string]interface{}{
		"user_id": userID,
		"role_id": roleID,
	})

	result := r.db.WithContext(ctx).
		Where("user_id = ? AND role_id = ?", userID, roleID).
		Delete(&model.UserRole{})
	if result.Error != nil {
		logger.Error("Failed to remove role membership", result.Error, map[string]interface{}{
			"user_id": userID,
			"role_id": roleID,
		})
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
