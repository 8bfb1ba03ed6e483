package service

import (
	"testing"
	"time"

	"github.com/ikkim/telecom-settlement-backend/internal/app/model"
	"github.com/ikkim/telecom-settlement-backend/internal/app/repository"
	"github.com/ikkim/telecom-settlement-backend/internal/db"
	"github.com/ikkim/telecom-settlement-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testJWTSecret = "test-jwt-secret"

func setupAuthServiceTest(t *testing.T) (AuthService, *gorm.DB) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	authService := NewAuthService(
		repository.NewUserRepository(testDB),
		testJWTSecret,
		15*time.Minute,
		7*24*time.Hour,
	)
	return authService, testDB
}

func createAuthUser(t *testing.T, testDB *gorm.DB, username, password string, role model.UserRole) *model.User {
	t.Helper()
	hash, err := util.DefaultPasswordHasher().Hash(password)
	require.NoError(t, err)
	user := &model.User{Username: username, PasswordHash: hash, Name: username, Role: role, IsActive: true}
	require.NoError(t, testDB.Create(user).Error)
	return user
}

func TestAuthService_Login(t *testing.T) {
	authService, testDB := setupAuthServiceTest(t)

	createAuthUser(t, testDB, "hq-admin", "password123", model.RoleHeadquarters)
	disabled := createAuthUser(t, testDB, "closed-store", "password123", model.RoleStore)
	require.NoError(t, testDB.Model(disabled).Update("is_active", false).Error)

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{
			name:     "Valid credentials",
			username: "hq-admin",
			password: "password123",
		},
		{
			name:     "Wrong password",
			username: "hq-admin",
			password: "wrongpassword",
			wantErr:  ErrInvalidCredentials,
		},
		{
			name:     "Unknown user",
			username: "nobody",
			password: "password123",
			wantErr:  ErrInvalidCredentials,
		},
		{
			name:     "Disabled account",
			username: "closed-store",
			password: "password123",
			wantErr:  ErrAccountDisabled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, tokens, err := authService.Login(tt.username, tt.password)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, user)
				assert.Nil(t, tokens)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, tokens)
			assert.Equal(t, tt.username, user.Username)

			claims, err := util.ValidateToken(tokens.AccessToken, testJWTSecret)
			require.NoError(t, err)
			assert.Equal(t, user.ID, claims.UserID)
			assert.Equal(t, string(model.RoleHeadquarters), claims.Role)
			assert.Equal(t, util.TokenTypeAccess, claims.TokenType)
		})
	}
}

func TestAuthService_Refresh(t *testing.T) {
	authService, testDB := setupAuthServiceTest(t)

	user := createAuthUser(t, testDB, "branch-17", "password123", model.RoleBranch)
	_, tokens, err := authService.Login("branch-17", "password123")
	require.NoError(t, err)

	t.Run("Refresh token issues a new pair", func(t *testing.T) {
		refreshed, err := authService.Refresh(tokens.RefreshToken)
		require.NoError(t, err)

		claims, err := util.ValidateToken(refreshed.AccessToken, testJWTSecret)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
	})

	t.Run("Access token is not accepted", func(t *testing.T) {
		_, err := authService.Refresh(tokens.AccessToken)
		assert.ErrorIs(t, err, util.ErrInvalidToken)
	})

	t.Run("Garbage token", func(t *testing.T) {
		_, err := authService.Refresh("not-a-token")
		assert.Error(t, err)
	})

	t.Run("Disabled after login", func(t *testing.T) {
		require.NoError(t, testDB.Model(user).Update("is_active", false).Error)
		_, err := authService.Refresh(tokens.RefreshToken)
		assert.ErrorIs(t, err, ErrAccountDisabled)
	})
}

func TestAuthService_GetUserByID(t *testing.T) {
	authService, testDB := setupAuthServiceTest(t)
	user := createAuthUser(t, testDB, "store-1", "password123", model.RoleStore)

	found, err := authService.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "store-1", found.Username)

	_, err = authService.GetUserByID(99999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAuthService_Login_RehashesWithConfiguredCost(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	low, err := util.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)
	hash, err := low.Hash("password123")
	require.NoError(t, err)
	user := &model.User{Username: "legacy", PasswordHash: hash, Name: "legacy", Role: model.RoleStore, IsActive: true}
	require.NoError(t, testDB.Create(user).Error)

	configured, err := util.NewPasswordHasher(bcrypt.MinCost + 1)
	require.NoError(t, err)
	authService := NewAuthService(
		repository.NewUserRepository(testDB),
		testJWTSecret,
		15*time.Minute,
		7*24*time.Hour,
		WithPasswordHasher(configured),
	)

	_, _, err = authService.Login("legacy", "password123")
	require.NoError(t, err)

	var stored model.User
	require.NoError(t, testDB.First(&stored, user.ID).Error)
	assert.NotEqual(t, hash, stored.PasswordHash)
	cost, err := bcrypt.Cost([]byte(stored.PasswordHash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost+1, cost)

	// 다시 해시된 비밀번호로도 로그인된다
	_, _, err = authService.Login("legacy", "password123")
	assert.NoError(t, err)
}
