package errors

// 에러 코드 상수 정의
// 형식: CATEGORY_SPECIFIC_DETAIL
// 프론트엔드에서 이 코드를 기반으로 메시지를 매핑함

const (
	// ==================== 인증 (AUTH_) ====================
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"        // 로그인 필요
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS" // 잘못된 아이디/비밀번호
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"       // 토큰 만료
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"       // 잘못된 토큰
	AuthAccountDisabled    = "AUTH_ACCOUNT_DISABLED"    // 비활성 계정

	// ==================== 인가/권한 (AUTHZ_) ====================
	AuthzForbidden        = "AUTHZ_FORBIDDEN"         // 접근 권한 없음
	AuthzAccessDenied     = "AUTHZ_ACCESS_DENIED"     // 조회 범위 밖의 매장
	AuthzRoleNotFound     = "AUTHZ_ROLE_NOT_FOUND"    // 권한 정보 없음
	AuthzHeadquartersOnly = "AUTHZ_HEADQUARTERS_ONLY" // 본사만 가능

	// ==================== 검증 (VALIDATION_) ====================
	ValidationInvalidInput  = "VALIDATION_INVALID_INPUT"  // 잘못된 입력
	ValidationInvalidID     = "VALIDATION_INVALID_ID"     // 잘못된 ID
	ValidationInvalidFormat = "VALIDATION_INVALID_FORMAT" // 잘못된 형식
	ValidationInvalidRange  = "VALIDATION_INVALID_RANGE"  // 범위 초과
	ValidationRequired      = "VALIDATION_REQUIRED"       // 필수 항목

	// ==================== 리소스 (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"      // 리소스 없음
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS" // 이미 존재
	ResourceConflict      = "RESOURCE_CONFLICT"       // 동시 수정 충돌

	// ==================== 조직 (ORG_) ====================
	StoreNotFound          = "STORE_NOT_FOUND"          // 매장 없음
	BranchNotFound         = "BRANCH_NOT_FOUND"         // 지사 없음
	StoreDeletionForbidden = "STORE_DELETION_FORBIDDEN" // 허용되지 않은 삭제 방식

	// ==================== 정산 (SETTLEMENT_) ====================
	PolicyUnavailable  = "POLICY_UNAVAILABLE"   // 적용 가능한 대리점 정책 없음
	PolicyNotFound     = "POLICY_NOT_FOUND"     // 대리점 정책 없음
	SaleNotFound       = "SALE_NOT_FOUND"       // 개통 내역 없음
	GoalNotFound       = "GOAL_NOT_FOUND"       // 목표 없음
	JobNotFound        = "RECALC_JOB_NOT_FOUND" // 재계산 작업 없음
	ImportInvalidSheet = "IMPORT_INVALID_SHEET" // 엑셀 양식 오류

	// ==================== 내부 오류 (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"   // 서버 오류
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR" // DB 오류
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"   // 외부 API 오류
	InternalConfigError   = "INTERNAL_CONFIG_ERROR"   // 설정 오류
	InternalUnavailable   = "INTERNAL_UNAVAILABLE"    // 의존 서비스 일시 장애
)
