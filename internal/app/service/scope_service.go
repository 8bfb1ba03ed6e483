package service

import (
	"errors"

	"github.com/ikkim/telecom-settlement-backend/internal/app/model"
	"github.com/ikkim/telecom-settlement-backend/internal/app/repository"
	"github.com/ikkim/telecom-settlement-backend/internal/metrics"
	"github.com/ikkim/telecom-settlement-backend/internal/scope"
	"github.com/ikkim/telecom-settlement-backend/pkg/logger"
	"gorm.io/gorm"
)

var ErrAccountDisabled = errors.New("account disabled")

// ScopeService 요청마다 조직도를 새로 읽어 조회 범위를 계산한다. 캐시하지 않는다.
type ScopeService interface {
	Principal(userID uint) (*model.User, scope.Principal, error)
	Resolve(p scope.Principal) (scope.StoreSet, scope.Hierarchy, error)
	// ResolveNonEmpty는 범위가 비어 있으면 ErrAccessDenied를 반환한다
	ResolveNonEmpty(p scope.Principal) (scope.StoreSet, error)
	Authorize(p scope.Principal, storeID uint) error
}

type scopeService struct {
	userRepo  repository.UserRepository
	storeRepo repository.StoreRepository
}

func NewScopeService(userRepo repository.UserRepository, storeRepo repository.StoreRepository) ScopeService {
	return &scopeService{userRepo: userRepo, storeRepo: storeRepo}
}

// Principal 토큰이 아닌 DB에 저장된 권한/소속을 사용한다
func (s *scopeService) Principal(userID uint) (*model.User, scope.Principal, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, scope.Principal{}, ErrUserNotFound
		}
		return nil, scope.Principal{}, err
	}
	if !user.IsActive {
		return nil, scope.Principal{}, ErrAccountDisabled
	}
	return user, user.Principal(), nil
}

func (s *scopeService) Resolve(p scope.Principal) (scope.StoreSet, scope.Hierarchy, error) {
	h, err := s.storeRepo.Hierarchy()
	if err != nil {
		return nil, scope.Hierarchy{}, err
	}
	return scope.Resolve(p, h), h, nil
}

func (s *scopeService) ResolveNonEmpty(p scope.Principal) (scope.StoreSet, error) {
	set, _, err := s.Resolve(p)
	if err != nil {
		return nil, err
	}
	if set.IsEmpty() {
		s.deny(p, 0)
		return nil, ErrAccessDenied
	}
	return set, nil
}

func (s *scopeService) Authorize(p scope.Principal, storeID uint) error {
	set, _, err := s.Resolve(p)
	if err != nil {
		return err
	}
	if err := set.Authorize(storeID); err != nil {
		s.deny(p, storeID)
		return err
	}
	return nil
}

func (s *scopeService) deny(p scope.Principal, storeID uint) {
	metrics.ScopeDenials.WithLabelValues(string(p.Role)).Inc()
	logger.Warn("Access scope denied", map[string]interface{}{
		"user_id":  p.UserID,
		"role":     p.Role,
		"store_id": storeID,
	})
}
