package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/ikkim/telecom-settlement-backend/internal/app/model"
	"github.com/ikkim/telecom-settlement-backend/internal/app/service"
	apperrors "github.com/ikkim/telecom-settlement-backend/internal/errors"
	"github.com/ikkim/telecom-settlement-backend/internal/scope"
	"github.com/ikkim/telecom-settlement-backend/pkg/util"
)

// Context keys for user information
const (
	UserIDKey    = "user_id"
	UserRoleKey  = "user_role"
	TokenKey     = "access_token"
	PrincipalKey = "principal"
)

// BlacklistChecker 로그아웃된 토큰 확인 (Redis 사용 시)
type BlacklistChecker func(ctx context.Context, token string) (bool, error)

type AuthMiddleware struct {
	jwtSecret   string
	blacklisted BlacklistChecker
}

// NewAuthMiddleware blacklisted는 nil일 수 있다
func NewAuthMiddleware(jwtSecret string, blacklisted BlacklistChecker) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret:   jwtSecret,
		blacklisted: blacklisted,
	}
}

// Authenticate validates JWT token (required)
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		var token string
		authHeader := c.GetHeader("Authorization")
		switch {
		case authHeader != "":
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				log.Warn("Invalid authorization header format", map[string]interface{}{
					"path": c.Request.URL.Path,
				})
				apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenInvalid, "인증 형식이 올바르지 않습니다")
				c.Abort()
				return
			}
			token = parts[1]
		case websocket.IsWebSocketUpgrade(c.Request):
			// 브라우저 WebSocket은 헤더를 보낼 수 없어 쿼리로 받는다 (로그에 남기지 않음)
			token = c.Query("token")
		}
		if token == "" {
			log.Warn("Missing authorization header", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			apperrors.Unauthorized(c, "로그인이 필요합니다")
			c.Abort()
			return
		}

		claims, err := util.ValidateToken(token, m.jwtSecret)
		if err == nil && claims.TokenType != util.TokenTypeAccess {
			err = util.ErrInvalidToken
		}
		if err != nil {
			log.Warn("Token validation failed", map[string]interface{}{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})
			if errors.Is(err, util.ErrExpiredToken) {
				apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenExpired, "로그인이 만료되었습니다")
			} else {
				apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenInvalid, "유효하지 않은 인증 토큰입니다")
			}
			c.Abort()
			return
		}

		if m.blacklisted != nil {
			revoked, err := m.blacklisted(c.Request.Context(), token)
			if err != nil {
				// 로그아웃 여부를 확인할 수 없으면 통과시키지 않는다
				log.Error("Failed to check token blacklist", err)
				apperrors.RespondWithError(c, http.StatusServiceUnavailable, apperrors.InternalUnavailable, "인증 상태를 확인할 수 없습니다. 잠시 후 다시 시도해주세요")
				c.Abort()
				return
			}
			if revoked {
				apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenInvalid, "로그아웃된 토큰입니다")
				c.Abort()
				return
			}
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UserRoleKey, model.UserRole(claims.Role))
		c.Set(TokenKey, token)

		log.Debug("User authenticated successfully", map[string]interface{}{
			"user_id": claims.UserID,
			"role":    claims.Role,
		})

		c.Next()
	}
}

// LoadPrincipal 토큰의 권한이 아니라 DB에 저장된 현재 권한/소속으로 Principal을 만든다.
// 조회 범위는 이 값으로만 계산한다.
func LoadPrincipal(scopes service.ScopeService) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		userID, ok := GetUserID(c)
		if !ok {
			apperrors.Unauthorized(c, "로그인이 필요합니다")
			c.Abort()
			return
		}

		_, principal, err := scopes.Principal(userID)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrUserNotFound):
				apperrors.Unauthorized(c, "사용자를 찾을 수 없습니다")
			case errors.Is(err, service.ErrAccountDisabled):
				apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthAccountDisabled, "비활성화된 계정입니다")
			default:
				log.Error("Failed to load principal", err, map[string]interface{}{
					"user_id": userID,
				})
				apperrors.InternalError(c, "사용자 정보를 불러오지 못했습니다")
			}
			c.Abort()
			return
		}

		c.Set(PrincipalKey, principal)
		// 이후 RequireRole도 저장된 권한을 본다
		c.Set(UserRoleKey, model.UserRole(principal.Role))
		c.Next()
	}
}

// RequireRole checks if user has required role
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		role, exists := GetUserRole(c)
		if !exists {
			log.Warn("Role information not found in context", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			apperrors.RespondWithError(c, http.StatusForbidden, apperrors.AuthzRoleNotFound, "권한 정보를 찾을 수 없습니다")
			c.Abort()
			return
		}

		for _, r := range roles {
			if role == model.UserRole(r) {
				c.Next()
				return
			}
		}

		userID, _ := GetUserID(c)
		log.Warn("Insufficient permissions", map[string]interface{}{
			"user_id":        userID,
			"user_role":      role,
			"required_roles": roles,
			"path":           c.Request.URL.Path,
		})
		apperrors.Forbidden(c, "접근 권한이 없습니다")
		c.Abort()
	}
}

// GetUserID extracts user ID from context
func GetUserID(c *gin.Context) (uint, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := userID.(uint)
	return id, ok
}

// GetUserRole extracts user role from context
func GetUserRole(c *gin.Context) (model.UserRole, bool) {
	role, exists := c.Get(UserRoleKey)
	if !exists {
		return "", false
	}
	r, ok := role.(model.UserRole)
	return r, ok
}

// GetPrincipal LoadPrincipal이 저장한 값
func GetPrincipal(c *gin.Context) (scope.Principal, bool) {
	v, exists := c.Get(PrincipalKey)
	if !exists {
		return scope.Principal{}, false
	}
	p, ok := v.(scope.Principal)
	return p, ok
}
