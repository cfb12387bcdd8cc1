package repository

import (
	"context"
	"testing"

	"github.com/hairpin-store/hairpin-backend/internal/app/model"
	"github.com/hairpin-store/hairpin-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupUserTest(t *testing.T) (*gorm.DB, UserRepository, RoleRepository) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	return testDB, NewUserRepository(testDB), NewRoleRepository(testDB)
}

func TestUserRepository_CreateWithRole(t *testing.T) {
	_, users, roles := setupUserTest(t)
	ctx := context.Background()

	customer, err := roles.FindByName(ctx, "customer")
	require.NoError(t, err)

	user := &model.User{
		Email:        "jane@example.com",
		PasswordHash: "hash",
		Name:         "Jane",
		Roles:        []model.Role{*customer},
	}
	require.NoError(t, users.Create(ctx, user))

	found, err := users.FindByEmail(ctx, "JANE@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, []string{model.RoleCustomer}, found.RoleNames())
}

func TestUserRepository_FindByID_NotFound(t *testing.T) {
	_, users, _ := setupUserTest(t)

	_, err := users.FindByID(context.Background(), 42)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	_, users, _ := setupUserTest(t)
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, &model.User{Email: "dup@example.com", PasswordHash: "h", Name: "A"}))
	assert.Error(t, users.Create(ctx, &model.User{Email: "dup@example.com", PasswordHash: "h", Name: "B"}))
}

func TestRoleRepository_Memberships(t *testing.T) {
	testDB, users, roles := setupUserTest(t)
	ctx := context.Background()

	admin, err := db.SeedAdministrator(testDB, "admin@example.com")
	require.NoError(t, err)
	user := &model.User{Email: "mgr@example.com", PasswordHash: "h", Name: "Manager"}
	require.NoError(t, users.Create(ctx, user))

	manager, err := roles.FindByName(ctx, " MANAGER ")
	require.NoError(t, err)
	assert.Equal(t, model.RoleManager, manager.Name)

	added, err := roles.AddUserRole(ctx, user.ID, manager.ID)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = roles.AddUserRole(ctx, user.ID, manager.ID)
	require.NoError(t, err)
	assert.False(t, added)

	privileged, err := roles.HasAnyRole(ctx, user.ID, model.PrivilegedRoles...)
	require.NoError(t, err)
	assert.True(t, privileged)

	isAdmin, err := roles.HasAnyRole(ctx, user.ID, model.RoleAdministrator)
	require.NoError(t, err)
	assert.False(t, isAdmin)

	adminRole, err := roles.FindByName(ctx, model.RoleAdministrator)
	require.NoError(t, err)
	count, err := roles.CountUsersWithRole(ctx, adminRole.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	holders, err := roles.FindUsersWithRole(ctx, adminRole.ID)
	require.NoError(t, err)
	require.Len(t, holders, 1)
	assert.Equal(t, admin.ID, holders[0].ID)

	userRoles, err := roles.FindByUserID(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, userRoles, 1)
	assert.Equal(t, model.RoleManager, userRoles[0].Name)

	removed, err := roles.RemoveUserRole(ctx, user.ID, manager.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = roles.RemoveUserRole(ctx, user.ID, manager.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestRoleRepository_CreateIsCaseInsensitiveUnique(t *testing.T) {
	_, _, roles := setupUserTest(t)
	ctx := context.Background()

	require.NoError(t, roles.Create(ctx, &model.Role{Name: "Stylist"}))
	assert.Error(t, roles.Create(ctx, &model.Role{Name: "STYLIST"}))

	all, err := roles.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}
