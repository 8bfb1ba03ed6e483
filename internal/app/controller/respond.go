package controller

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/telecom-settlement-backend/internal/app/service"
	apperrors "github.com/ikkim/telecom-settlement-backend/internal/errors"
	"github.com/ikkim/telecom-settlement-backend/internal/middleware"
	"github.com/ikkim/telecom-settlement-backend/internal/scope"
	"github.com/ikkim/telecom-settlement-backend/internal/settlement"
)

const dateLayout = "2006-01-02"

// respondServiceError 서비스 에러를 HTTP 응답으로 변환한다.
// 매핑되지 않은 에러는 ParseError로 넘긴다.
func respondServiceError(c *gin.Context, err error, context string) {
	log := middleware.GetLoggerFromContext(c)

	var inputErr *settlement.InputError
	switch {
	case errors.Is(err, service.ErrInvalidSheet):
		apperrors.BadRequest(c, apperrors.ImportInvalidSheet, "엑셀 양식이 올바르지 않습니다")
	case errors.As(err, &inputErr):
		apperrors.RespondWithValidationError(c, map[string]string{inputErr.Field: inputErr.Reason})
	case errors.Is(err, service.ErrInvalidInput):
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "입력값이 올바르지 않습니다")
	case errors.Is(err, service.ErrHeadquartersOnly):
		apperrors.RespondWithError(c, http.StatusForbidden, apperrors.AuthzHeadquartersOnly, "본사 계정만 사용할 수 있습니다")
	case errors.Is(err, service.ErrAccessDenied):
		apperrors.AccessDenied(c, "")
	case errors.Is(err, service.ErrPolicyUnavailable):
		apperrors.UnprocessableEntity(c, apperrors.PolicyUnavailable, "적용 가능한 대리점 정책이 없습니다")
	case errors.Is(err, service.ErrConcurrencyConflict):
		apperrors.Conflict(c, apperrors.ResourceConflict, "다른 요청과 충돌했습니다. 새로고침 후 다시 시도해주세요")
	case errors.Is(err, service.ErrStoreNotFound):
		apperrors.NotFound(c, apperrors.StoreNotFound, "매장을 찾을 수 없습니다")
	case errors.Is(err, service.ErrBranchNotFound):
		apperrors.NotFound(c, apperrors.BranchNotFound, "지사를 찾을 수 없습니다")
	case errors.Is(err, service.ErrCustomerNotFound):
		apperrors.NotFound(c, apperrors.ResourceNotFound, "고객을 찾을 수 없습니다")
	case errors.Is(err, service.ErrPolicyNotFound):
		apperrors.NotFound(c, apperrors.PolicyNotFound, "대리점 정책을 찾을 수 없습니다")
	case errors.Is(err, service.ErrSaleNotFound):
		apperrors.NotFound(c, apperrors.SaleNotFound, "개통 내역을 찾을 수 없습니다")
	case errors.Is(err, service.ErrGoalNotFound):
		apperrors.NotFound(c, apperrors.GoalNotFound, "목표를 찾을 수 없습니다")
	case errors.Is(err, service.ErrJobNotFound):
		apperrors.NotFound(c, apperrors.JobNotFound, "재계산 작업을 찾을 수 없습니다")
	case errors.Is(err, service.ErrStorageNotConfigured):
		apperrors.RespondWithError(c, http.StatusServiceUnavailable, apperrors.InternalConfigError, "파일 저장소가 설정되지 않았습니다")
	default:
		log.Error("Unhandled service error", err, map[string]interface{}{
			"context": context,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, context)
	}
}

// principalFrom LoadPrincipal 미들웨어가 없는 라우트면 401
func principalFrom(c *gin.Context) (scope.Principal, bool) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return scope.Principal{}, false
	}
	return p, true
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		middleware.GetLoggerFromContext(c).Warn("Invalid id parameter", map[string]interface{}{
			"param": name,
			"value": raw,
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "잘못된 ID입니다")
		return 0, false
	}
	return uint(id), true
}

func optionalUintQuery(c *gin.Context, key string) (*uint, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return nil, err
	}
	id := uint(v)
	return &id, nil
}

func optionalDateQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func intQuery(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v < 0 {
		return def
	}
	return v
}
