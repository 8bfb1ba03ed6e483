package errors

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo 에러 정보 구조
type ErrorInfo struct {
	Code    string // 에러 코드 (codes.go 참조)
	Message string // 사용자 친화적 메시지
}

// ParseError 저장소 계층 에러를 사용자 친화적인 코드/메시지로 변환
// 보안상 민감한 정보(쿼리, 제약조건 이름)는 노출하지 않음
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{Code: InternalServerError, Message: "서버 오류가 발생했습니다"}
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{Code: ResourceNotFound, Message: getNotFoundMessage(context)}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || IsUniqueViolation(err) {
		return parseDuplicateKeyError(err.Error())
	}

	errLower := strings.ToLower(err.Error())

	// Foreign key constraint violation (23503)
	if strings.Contains(errLower, "foreign key constraint") {
		if strings.Contains(errLower, "still referenced") {
			return ErrorInfo{Code: ResourceConflict, Message: "연결된 데이터가 있어 삭제할 수 없습니다"}
		}
		if strings.Contains(errLower, "branch_id") {
			return ErrorInfo{Code: BranchNotFound, Message: "존재하지 않는 지사입니다"}
		}
		if strings.Contains(errLower, "store_id") {
			return ErrorInfo{Code: StoreNotFound, Message: "존재하지 않는 매장입니다"}
		}
		return ErrorInfo{Code: ResourceNotFound, Message: "참조하는 데이터를 찾을 수 없습니다"}
	}

	// Not null constraint violation (23502)
	if strings.Contains(errLower, "violates not-null constraint") || strings.Contains(errLower, "not null constraint failed") {
		return ErrorInfo{Code: ValidationRequired, Message: "필수 항목이 누락되었습니다"}
	}

	if strings.Contains(errLower, "connection refused") ||
		strings.Contains(errLower, "no such host") ||
		strings.Contains(errLower, "timeout") {
		return ErrorInfo{
			Code:    InternalExternalAPI,
			Message: "외부 서비스 연결에 실패했습니다. 잠시 후 다시 시도해주세요",
		}
	}

	return ErrorInfo{Code: InternalServerError, Message: getDefaultErrorMessage(context)}
}

// IsUniqueViolation reports whether err is a unique-constraint failure from
// postgres (23505) or sqlite, for drivers that do not translate errors.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	errLower := strings.ToLower(err.Error())
	return strings.Contains(errLower, "duplicate key") ||
		strings.Contains(errLower, "unique constraint") ||
		strings.Contains(errLower, "sqlstate 23505")
}

func parseDuplicateKeyError(errStr string) ErrorInfo {
	errLower := strings.ToLower(errStr)

	switch {
	case strings.Contains(errLower, "dealer_code") && strings.Contains(errLower, "fixed_expense"):
		return ErrorInfo{Code: ResourceConflict, Message: "해당 월의 고정비가 이미 등록되어 있습니다"}
	case strings.Contains(errLower, "dealer_code"):
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "이미 등록된 대리점 코드입니다"}
	case strings.Contains(errLower, "username"):
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "이미 사용 중인 아이디입니다"}
	case strings.Contains(errLower, "code"):
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "이미 사용 중인 코드입니다"}
	}
	return ErrorInfo{Code: ResourceAlreadyExists, Message: "이미 존재하는 데이터입니다"}
}

func getNotFoundMessage(context string) string {
	contextLower := strings.ToLower(context)

	switch {
	case strings.Contains(contextLower, "store") || strings.Contains(contextLower, "매장"):
		return "매장을 찾을 수 없습니다"
	case strings.Contains(contextLower, "branch") || strings.Contains(contextLower, "지사"):
		return "지사를 찾을 수 없습니다"
	case strings.Contains(contextLower, "sale") || strings.Contains(contextLower, "개통"):
		return "개통 내역을 찾을 수 없습니다"
	case strings.Contains(contextLower, "dealer") || strings.Contains(contextLower, "대리점"):
		return "대리점 정책을 찾을 수 없습니다"
	case strings.Contains(contextLower, "goal") || strings.Contains(contextLower, "목표"):
		return "목표를 찾을 수 없습니다"
	case strings.Contains(contextLower, "user") || strings.Contains(contextLower, "사용자"):
		return "사용자를 찾을 수 없습니다"
	}
	return "요청한 데이터를 찾을 수 없습니다"
}

func getDefaultErrorMessage(context string) string {
	contextLower := strings.ToLower(context)

	switch {
	case strings.Contains(contextLower, "create") || strings.Contains(contextLower, "등록"):
		return "등록 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요"
	case strings.Contains(contextLower, "update") || strings.Contains(contextLower, "수정"):
		return "수정 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요"
	case strings.Contains(contextLower, "delete") || strings.Contains(contextLower, "삭제"):
		return "삭제 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요"
	case strings.Contains(contextLower, "recalc") || strings.Contains(contextLower, "재계산"):
		return "정산 재계산 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요"
	}
	return "서버 오류가 발생했습니다. 잠시 후 다시 시도해주세요"
}

// ParseAndRespond 에러를 파싱하여 응답 반환 (헬퍼 함수)
func ParseAndRespond(c interface{ JSON(int, interface{}) }, statusCode int, err error, context string) {
	errorInfo := ParseError(err, context)
	c.JSON(statusCode, ErrorResponse{
		Error:   errorInfo.Code,
		Message: errorInfo.Message,
	})
}
