package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/telecom-settlement-backend/internal/app/model"
	"github.com/ikkim/telecom-settlement-backend/internal/app/service"
	apperrors "github.com/ikkim/telecom-settlement-backend/internal/errors"
	"github.com/ikkim/telecom-settlement-backend/internal/middleware"
	"github.com/ikkim/telecom-settlement-backend/pkg/util"
)

// TokenRevoker 로그아웃 토큰을 ttl 동안 차단 (Redis 미사용 시 nil)
type TokenRevoker func(ctx context.Context, token string, ttl time.Duration) error

type AuthController struct {
	authService service.AuthService
	revoke      TokenRevoker
	accessTTL   time.Duration
}

func NewAuthController(authService service.AuthService, revoke TokenRevoker, accessTTL time.Duration) *AuthController {
	return &AuthController{
		authService: authService,
		revoke:      revoke,
		accessTTL:   accessTTL,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func userResponse(user *model.User) gin.H {
	return gin.H{
		"id":        user.ID,
		"username":  user.Username,
		"name":      user.Name,
		"role":      user.Role,
		"branch_id": user.BranchID,
		"store_id":  user.StoreID,
	}
}

// Login handles user login
// POST /api/v1/auth/login
func (ctrl *AuthController) Login(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid login request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "입력 정보가 올바르지 않습니다")
		return
	}

	user, tokens, err := ctrl.authService.Login(req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthInvalidCredentials, "아이디 또는 비밀번호가 올바르지 않습니다")
		case errors.Is(err, service.ErrAccountDisabled):
			apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthAccountDisabled, "비활성화된 계정입니다")
		default:
			log.Error("Login failed", err, map[string]interface{}{
				"username": req.Username,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "login")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    userResponse(user),
		"tokens":  tokens,
	})
}

// RefreshToken issues a new token pair
// POST /api/v1/auth/refresh
func (ctrl *AuthController) RefreshToken(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "리프레시 토큰이 필요합니다")
		return
	}

	tokens, err := ctrl.authService.Refresh(req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrExpiredToken):
			apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenExpired, "로그인이 만료되었습니다")
		case errors.Is(err, util.ErrInvalidToken), errors.Is(err, service.ErrUserNotFound):
			apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenInvalid, "유효하지 않은 토큰입니다")
		case errors.Is(err, service.ErrAccountDisabled):
			apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthAccountDisabled, "비활성화된 계정입니다")
		default:
			log.Error("Token refresh failed", err)
			apperrors.InternalError(c, "")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

// GetMe returns current user information
// GET /api/v1/auth/me
func (ctrl *AuthController) GetMe(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	user, err := ctrl.authService.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			apperrors.NotFound(c, apperrors.ResourceNotFound, "사용자를 찾을 수 없습니다")
			return
		}
		log.Error("Failed to fetch user", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": userResponse(user)})
}

// Logout 액세스 토큰을 남은 수명 동안 차단한다
// POST /api/v1/auth/logout
func (ctrl *AuthController) Logout(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	if ctrl.revoke != nil {
		if token := c.GetString(middleware.TokenKey); token != "" {
			if err := ctrl.revoke(c.Request.Context(), token, ctrl.accessTTL); err != nil {
				log.Error("Failed to revoke token", err)
				apperrors.InternalError(c, "")
				return
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}
