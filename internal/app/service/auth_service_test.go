package service

import (
	"context"
	"testing"
	"time"

	"github.com/hairpin-store/hairpin-backend/internal/app/model"
	"github.com/hairpin-store/hairpin-backend/internal/app/repository"
	"github.com/hairpin-store/hairpin-backend/internal/db"
	"github.com/hairpin-store/hairpin-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-secret-key"

type recordingBlacklist struct {
	tokens map[string]time.Duration
}

func (b *recordingBlacklist) BlacklistToken(ctx context.Context, token string, expiry time.Duration) error {
	b.tokens[token] = expiry
	return nil
}

func setupAuthServiceTest(t *testing.T) (AuthService, *recordingBlacklist) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	blacklist := &recordingBlacklist{tokens: map[string]time.Duration{}}
	svc := NewAuthService(
		repository.NewUserRepository(testDB),
		repository.NewRoleRepository(testDB),
		blacklist,
		testJWTSecret,
		15*time.Minute,
		7*24*time.Hour,
	)
	return svc, blacklist
}

func TestAuthService_Register(t *testing.T) {
	svc, _ := setupAuthServiceTest(t)
	ctx := context.Background()

	user, tokens, err := svc.Register(ctx, " New.User@Example.com ", "password123", "New User")
	require.NoError(t, err)
	assert.Equal(t, "new.user@example.com", user.Email)
	assert.Equal(t, []string{model.RoleCustomer}, user.RoleNames())
	assert.NotEqual(t, "password123", user.PasswordHash)
	require.NotNil(t, tokens)

	claims, err := util.ValidateToken(tokens.AccessToken, testJWTSecret)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, util.TokenTypeAccess, claims.TokenType)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"duplicate email", "NEW.USER@example.com", "password123", ErrEmailAlreadyExists},
		{"weak password", "other@example.com", "short", util.ErrWeakPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Register(ctx, tt.email, tt.password, "Someone")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	svc, _ := setupAuthServiceTest(t)
	ctx := context.Background()

	registered, _, err := svc.Register(ctx, "login@example.com", "password123", "Login User")
	require.NoError(t, err)

	user, tokens, err := svc.Login(ctx, "LOGIN@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.NotEmpty(t, tokens.RefreshToken)

	_, _, err = svc.Login(ctx, "login@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, KindUnauthorized, KindOf(err))

	_, _, err = svc.Login(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_Refresh(t *testing.T) {
	svc, _ := setupAuthServiceTest(t)
	ctx := context.Background()

	user, tokens, err := svc.Register(ctx, "refresh@example.com", "password123", "Refresher")
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	claims, err := util.ValidateToken(refreshed.AccessToken, testJWTSecret)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	_, err = svc.Refresh(ctx, tokens.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidCredentials, "access tokens cannot refresh")

	_, err = svc.Refresh(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_Logout(t *testing.T) {
	svc, blacklist := setupAuthServiceTest(t)
	ctx := context.Background()

	require.NoError(t, svc.Logout(ctx, "live-token", time.Now().Add(10*time.Minute)))
	require.NoError(t, svc.Logout(ctx, "expired-token", time.Now().Add(-time.Minute)))

	assert.Contains(t, blacklist.tokens, "live-token")
	assert.NotContains(t, blacklist.tokens, "expired-token")
}

func TestAuthService_GetUserByID(t *testing.T) {
	svc, _ := setupAuthServiceTest(t)
	ctx := context.Background()

	registered, _, err := svc.Register(ctx, "me@example.com", "password123", "Me")
	require.NoError(t, err)

	user, err := svc.GetUserByID(ctx, registered.ID)
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", user.Email)

	_, err = svc.GetUserByID(ctx, 9999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
