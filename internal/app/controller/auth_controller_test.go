package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/telecom-settlement-backend/internal/app/model"
	"github.com/ikkim/telecom-settlement-backend/internal/app/repository"
	"github.com/ikkim/telecom-settlement-backend/internal/app/service"
	"github.com/ikkim/telecom-settlement-backend/internal/db"
	apperrors "github.com/ikkim/telecom-settlement-backend/internal/errors"
	"github.com/ikkim/telecom-settlement-backend/internal/middleware"
	"github.com/ikkim/telecom-settlement-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeRevoker 로그아웃된 토큰을 메모리에 기록
type fakeRevoker struct {
	revoked map[string]time.Duration
}

func (f *fakeRevoker) revoke(_ context.Context, token string, ttl time.Duration) error {
	f.revoked[token] = ttl
	return nil
}

func (f *fakeRevoker) check(_ context.Context, token string) (bool, error) {
	_, ok := f.revoked[token]
	return ok, nil
}

func setupAuthControllerTest(t *testing.T) (*gin.Engine, *gorm.DB, *fakeRevoker) {
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	hash, err := util.DefaultPasswordHasher().Hash("password123")
	require.NoError(t, err)
	require.NoError(t, testDB.Create(&model.User{
		Username:     "hq",
		PasswordHash: hash,
		Name:         "본사",
		Role:         model.RoleHeadquarters,
		IsActive:     true,
	}).Error)

	authService := service.NewAuthService(repository.NewUserRepository(testDB), "test-secret", 15*time.Minute, 24*time.Hour)
	revoker := &fakeRevoker{revoked: map[string]time.Duration{}}
	ctrl := NewAuthController(authService, revoker.revoke, 15*time.Minute)
	authMiddleware := middleware.NewAuthMiddleware("test-secret", revoker.check)

	router := gin.New()
	router.POST("/login", ctrl.Login)
	router.POST("/refresh", ctrl.RefreshToken)
	router.GET("/me", authMiddleware.Authenticate(), ctrl.GetMe)
	router.POST("/logout", authMiddleware.Authenticate(), ctrl.Logout)

	return router, testDB, revoker
}

func postJSON(router *gin.Engine, path string, body interface{}, token string) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBuffer(data))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, router *gin.Engine) util.TokenPair {
	t.Helper()
	w := postJSON(router, "/login", LoginRequest{Username: "hq", Password: "password123"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response struct {
		Tokens util.TokenPair `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.NotEmpty(t, response.Tokens.AccessToken)
	return response.Tokens
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	code, _ := response["error"].(string)
	return code
}

func TestAuthController_Login(t *testing.T) {
	router, _, _ := setupAuthControllerTest(t)

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
		wantCode   string
	}{
		{"Valid credentials", LoginRequest{Username: "hq", Password: "password123"}, http.StatusOK, ""},
		{"Wrong password", LoginRequest{Username: "hq", Password: "nope"}, http.StatusUnauthorized, apperrors.AuthInvalidCredentials},
		{"Unknown user", LoginRequest{Username: "ghost", Password: "password123"}, http.StatusUnauthorized, apperrors.AuthInvalidCredentials},
		{"Missing password", map[string]string{"username": "hq"}, http.StatusBadRequest, apperrors.ValidationInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(router, "/login", tt.body, "")
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errorCode(t, w))
			}
		})
	}
}

func TestAuthController_Login_DisabledAccount(t *testing.T) {
	router, testDB, _ := setupAuthControllerTest(t)
	require.NoError(t, testDB.Model(&model.User{}).Where("username = ?", "hq").Update("is_active", false).Error)

	w := postJSON(router, "/login", LoginRequest{Username: "hq", Password: "password123"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, apperrors.AuthAccountDisabled, errorCode(t, w))
}

func TestAuthController_RefreshToken(t *testing.T) {
	router, _, _ := setupAuthControllerTest(t)
	tokens := login(t, router)

	w := postJSON(router, "/refresh", RefreshTokenRequest{RefreshToken: tokens.RefreshToken}, "")
	assert.Equal(t, http.StatusOK, w.Code)

	// 액세스 토큰으로는 갱신 불가
	w = postJSON(router, "/refresh", RefreshTokenRequest{RefreshToken: tokens.AccessToken}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, apperrors.AuthTokenInvalid, errorCode(t, w))

	w = postJSON(router, "/refresh", map[string]string{}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthController_GetMe(t *testing.T) {
	router, _, _ := setupAuthControllerTest(t)
	tokens := login(t, router)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var response map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "hq", response["user"]["username"])
	assert.Equal(t, "headquarters", response["user"]["role"])

	t.Run("Missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Refresh token as bearer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+tokens.RefreshToken)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAuthController_Logout(t *testing.T) {
	router, _, revoker := setupAuthControllerTest(t)
	tokens := login(t, router)

	w := postJSON(router, "/logout", nil, tokens.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 15*time.Minute, revoker.revoked[tokens.AccessToken])

	// 차단된 토큰은 더 이상 통과하지 않는다
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, apperrors.AuthTokenInvalid, errorCode(t, w))
}
