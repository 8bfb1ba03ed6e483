package service

import (
	"errors"
	"fmt"

	apperrors "github.com/ikkim/telecom-settlement-backend/internal/errors"
	"github.com/ikkim/telecom-settlement-backend/internal/scope"
	"github.com/ikkim/telecom-settlement-backend/internal/settlement"
)

// 컨트롤러는 errors.Is로 아래 에러를 HTTP 상태에 매핑한다
var (
	ErrInvalidInput        = settlement.ErrInvalidInput
	ErrAccessDenied        = scope.ErrAccessDenied
	ErrPolicyUnavailable   = errors.New("no active dealer policy")
	ErrConcurrencyConflict = errors.New("concurrent modification conflict")

	ErrHeadquartersOnly = fmt.Errorf("%w: headquarters only", scope.ErrAccessDenied)

	ErrStoreNotFound    = errors.New("store not found")
	ErrBranchNotFound   = errors.New("branch not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrPolicyNotFound   = errors.New("dealer policy not found")
	ErrSaleNotFound     = errors.New("sale not found")
	ErrGoalNotFound     = errors.New("goal not found")
	ErrJobNotFound      = errors.New("recalculation job not found")
)

func invalidInput(field, reason string) error {
	return &settlement.InputError{Field: field, Reason: reason}
}

func requireHeadquarters(p scope.Principal) error {
	if p.Role != scope.RoleHeadquarters {
		return ErrHeadquartersOnly
	}
	return nil
}

// isDuplicate unique 제약 위반 (TranslateError 미지원 드라이버 포함)
func isDuplicate(err error) bool {
	return apperrors.IsUniqueViolation(err)
}
