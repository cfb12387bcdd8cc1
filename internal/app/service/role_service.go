package service

import (
	"context"
	"errors"
	"strings"

	"github.com/hairpin-store/hairpin-backend/internal/app/model"
	"github.com/hairpin-store/hairpin-backend/internal/app/repository"
	apperrors "github.com/hairpin-store/hairpin-backend/internal/errors"
	"github.com/hairpin-store/hairpin-backend/pkg/logger"
	"github.com/hairpin-store/hairpin-backend/pkg/pagination"
	"gorm.io/gorm"
)

// UserSummary is a user with flattened role names.
type UserSummary struct {
	ID    uint     `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

type UserPage struct {
	Items      []UserSummary `json:"items"`
	TotalCount int64         `json:"total_count"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
}

type RoleService interface {
	AssignRole(ctx context.Context, userID uint, roleName string) error
	RemoveRole(ctx context.Context, userID uint, roleName string) error
	ListRoles(ctx context.Context) ([]model.Role, error)
	CreateRole(ctx context.Context, name string) (*model.Role, error)
	ListUserRoles(ctx context.Context, userID uint) ([]string, error)
	ListUsers(ctx context.Context, page, pageSize int) (*UserPage, error)
	UsersWithRole(ctx context.Context, roleName string) ([]UserSummary, error)
	HasRole(ctx context.Context, userID uint, roleName string) (bool, error)
	IsPrivileged(ctx context.Context, userID uint) (bool, error)
}

type roleService struct {
	db       *gorm.DB
	userRepo repository.UserRepository
	roleRepo repository.RoleRepository
}

func NewRoleService(db *gorm.DB, userRepo repository.UserRepository, roleRepo repository.RoleRepository) RoleService {
	return &roleService{
		db:       db,
		userRepo: userRepo,
		roleRepo: roleRepo,
	}
}

func (s *roleService) findRole(ctx context.Context, repo repository.RoleRepository, name string) (*model.Role, error) {
	role, err := repo.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}
	return role, nil
}

func (s *roleService) AssignRole(ctx context.Context, userID uint, roleName string) error {
	logger.Info("Assigning role", map[string]interface{}{
		"user_id": userID,
		"role":    roleName,
	})

	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	role, err := s.findRole(ctx, s.roleRepo, roleName)
	if err != nil {
		return err
	}

	added, err := s.roleRepo.AddUserRole(ctx, userID, role.ID)
	if err != nil {
		return err
	}
	if !added {
		return ErrRoleAlreadyAssigned
	}

	logger.Info("Role assigned", map[string]interface{}{
		"user_id": userID,
		"role":    role.Name,
	})
	return nil
}

// RemoveRole revokes a membership. The Administrator role can never be left
// without a holder; the holder count and the delete share one transaction.
func (s *roleService) RemoveRole(ctx context.Context, userID uint, roleName string) error {
	logger.Info("Removing role", map[string]interface{}{
		"user_id": userID,
		"role":    roleName,
	})

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		roles := s.roleRepo.WithTx(tx)

		role, err := s.findRole(ctx, roles, roleName)
		if err != nil {
			return err
		}

		isAdminRole := role.NormalizedName == model.NormalizeRoleName(model.RoleAdministrator)
		if isAdminRole {
			if err := roles.LockRole(ctx, role.ID); err != nil {
				return err
			}
		}

		held, err := roles.HasAnyRole(ctx, userID, role.Name)
		if err != nil {
			return err
		}
		if !held {
			return ErrRoleNotAssigned
		}

		if isAdminRole {
			holders, err := roles.CountUsersWithRole(ctx, role.ID)
			if err != nil {
				return err
			}
			if holders <= 1 {
				return ErrLastAdministrator
			}
		}

		removed, err := roles.RemoveUserRole(ctx, userID, role.ID)
		if err != nil {
			return err
		}
		if !removed {
			return ErrRoleNotAssigned
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrLastAdministrator) {
			logger.Warn("Refused to remove the last administrator", map[string]interface{}{
				"user_id": userID,
			})
		}
		return err
	}

	logger.Info("Role removed", map[string]interface{}{
		"user_id": userID,
		"role":    roleName,
	})
	return nil
}

func (s *roleService) ListRoles(ctx context.Context) ([]model.Role, error) {
	roles, err := s.roleRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	if roles == nil {
		roles = []model.Role{}
	}
	return roles, nil
}

func (s *roleService) CreateRole(ctx context.Context, name string) (*model.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidRoleName
	}

	if _, err := s.roleRepo.FindByName(ctx, name); err == nil {
		return nil, ErrRoleAlreadyExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	role := &model.Role{Name: name}
	if err := s.roleRepo.Create(ctx, role); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, ErrRoleAlreadyExists
		}
		return nil, err
	}

	logger.Info("Role created", map[string]interface{}{
		"role_id": role.ID,
		"name":    role.Name,
	})
	return role, nil
}

func (s *roleService) ListUserRoles(ctx context.Context, userID uint) ([]string, error) {
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	roles, err := s.roleRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	return names, nil
}

func (s *roleService) ListUsers(ctx context.Context, page, pageSize int) (*UserPage, error) {
	params := pagination.Normalize(page, pageSize)
	users, total, err := s.userRepo.FindAll(ctx, params.PageSize, params.Offset())
	if err != nil {
		return nil, err
	}

	items := make([]UserSummary, 0, len(users))
	for i := range users {
		items = append(items, summarizeUser(&users[i]))
	}
	return &UserPage{
		Items:      items,
		TotalCount: total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: pagination.TotalPages(total, params.PageSize),
	}, nil
}

func summarizeUser(u *model.User) UserSummary {
	return UserSummary{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
		Roles: u.RoleNames(),
	}
}

func (s *roleService) UsersWithRole(ctx context.Context, roleName string) ([]UserSummary, error) {
	role, err := s.findRole(ctx, s.roleRepo, roleName)
	if err != nil {
		return nil, err
	}
	users, err := s.roleRepo.FindUsersWithRole(ctx, role.ID)
	if err != nil {
		return nil, err
	}
	items := make([]UserSummary, 0, len(users))
	for i := range users {
		items = append(items, UserSummary{ID: users[i].ID, Email: users[i].Email, Name: users[i].Name})
	}
	return items, nil
}

func (s *roleService) HasRole(ctx context.Context, userID uint, roleName string) (bool, error) {
	return s.roleRepo.HasAnyRole(ctx, userID, roleName)
}

// IsPrivileged reports whether the user may mutate the catalog and manage
// orders.
func (s *roleService) IsPrivileged(ctx context.Context, userID uint) (bool, error) {
	return s.roleRepo.HasAnyRole(ctx, userID, model.PrivilegedRoles...)
}
