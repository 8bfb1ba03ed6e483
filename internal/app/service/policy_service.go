package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ikkim/telecom-settlement-backend/internal/app/model"
	"github.com/ikkim/telecom-settlement-backend/internal/app/repository"
	"github.com/ikkim/telecom-settlement-backend/internal/metrics"
	"github.com/ikkim/telecom-settlement-backend/internal/scope"
	"github.com/ikkim/telecom-settlement-backend/internal/settlement"
	"github.com/ikkim/telecom-settlement-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrInvalidTransition = fmt.Errorf("%w: dealer policy status transition not allowed", settlement.ErrInvalidInput)

// PolicyParams 대리점 정책 파라미터 (전체 교체)
type PolicyParams struct {
	DealerName                string             `json:"dealer_name"`
	DefaultSimFee             decimal.Decimal    `json:"default_sim_fee"`
	DefaultMNPDiscount        decimal.Decimal    `json:"default_mnp_discount"`
	TaxRate                   decimal.Decimal    `json:"tax_rate"`
	DefaultPaybackRate        decimal.Decimal    `json:"default_payback_rate"`
	AutoCalculateTax          bool               `json:"auto_calculate_tax"`
	IncludeSimFeeInSettlement bool               `json:"include_sim_fee_in_settlement"`
	Rules                     settlement.RuleSet `json:"custom_calculation_rules"`
}

func (p PolicyParams) policy(dealerCode string) settlement.Policy {
	return settlement.Policy{
		DealerCode:                dealerCode,
		DefaultSimFee:             p.DefaultSimFee,
		DefaultMNPDiscount:        p.DefaultMNPDiscount,
		TaxRate:                   p.TaxRate,
		DefaultPaybackRate:        p.DefaultPaybackRate,
		AutoCalculateTax:          p.AutoCalculateTax,
		IncludeSimFeeInSettlement: p.IncludeSimFeeInSettlement,
		Rules:                     p.Rules,
	}
}

type PolicyService interface {
	// GetActivePolicy는 status=active인 정책만 반환하며 없으면 ErrPolicyUnavailable
	GetActivePolicy(dealerCode string) (*model.DealerProfile, settlement.Policy, error)
	// GetPolicyForRecalculation은 상태와 무관하게 정책을 반환한다 (과거 내역 재산출용)
	GetPolicyForRecalculation(dealerCode string) (*model.DealerProfile, settlement.Policy, error)
	GetProfile(dealerCode string) (*model.DealerProfile, error)
	ListProfiles(status model.DealerStatus) ([]model.DealerProfile, error)
	CreateProfile(ctx context.Context, p scope.Principal, dealerCode string, params PolicyParams) (*model.DealerProfile, error)
	UpdateParameters(ctx context.Context, p scope.Principal, dealerCode string, params PolicyParams) (*model.DealerProfile, error)
	Activate(ctx context.Context, p scope.Principal, dealerCode string) (*model.DealerProfile, error)
	Deactivate(ctx context.Context, p scope.Principal, dealerCode string) (*model.DealerProfile, error)
	Suspend(ctx context.Context, p scope.Principal, dealerCode string) (*model.DealerProfile, error)
}

type policyService struct {
	db     *gorm.DB
	repo   repository.DealerProfileRepository
	locker DealerLocker
	now    func() time.Time
}

func NewPolicyService(db *gorm.DB, locker DealerLocker) PolicyService {
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &policyService{
		db:     db,
		repo:   repository.NewDealerProfileRepository(db),
		locker: locker,
		now:    time.Now,
	}
}

func (s *policyService) GetActivePolicy(dealerCode string) (*model.DealerProfile, settlement.Policy, error) {
	profile, err := s.repo.FindActiveByCode(dealerCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("No active dealer policy", map[string]interface{}{
				"dealer_code": dealerCode,
			})
			return nil, settlement.Policy{}, ErrPolicyUnavailable
		}
		return nil, settlement.Policy{}, err
	}
	return toPolicy(profile)
}

func (s *policyService) GetPolicyForRecalculation(dealerCode string) (*model.DealerProfile, settlement.Policy, error) {
	profile, err := s.GetProfile(dealerCode)
	if err != nil {
		return nil, settlement.Policy{}, err
	}
	return toPolicy(profile)
}

func toPolicy(profile *model.DealerProfile) (*model.DealerProfile, settlement.Policy, error) {
	policy, err := profile.Policy()
	if err != nil {
		logger.Error("Stored dealer rules are malformed", err, map[string]interface{}{
			"dealer_code": profile.DealerCode,
		})
		return nil, settlement.Policy{}, err
	}
	return profile, policy, nil
}

func (s *policyService) GetProfile(dealerCode string) (*model.DealerProfile, error) {
	profile, err := s.repo.FindByCode(dealerCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPolicyNotFound
		}
		return nil, err
	}
	return profile, nil
}

func (s *policyService) ListProfiles(status model.DealerStatus) ([]model.DealerProfile, error) {
	return s.repo.FindAll(status)
}

func validateParams(dealerCode string, params PolicyParams) error {
	if strings.TrimSpace(params.DealerName) == "" {
		return invalidInput("dealer_name", "required")
	}
	return settlement.ValidatePolicy(params.policy(dealerCode))
}

func applyParams(profile *model.DealerProfile, params PolicyParams) error {
	profile.DealerName = strings.TrimSpace(params.DealerName)
	profile.DefaultSimFee = params.DefaultSimFee
	profile.DefaultMNPDiscount = params.DefaultMNPDiscount
	profile.TaxRate = params.TaxRate
	profile.DefaultPaybackRate = params.DefaultPaybackRate
	profile.AutoCalculateTax = params.AutoCalculateTax
	profile.IncludeSimFeeInSettlement = params.IncludeSimFeeInSettlement
	return profile.SetRules(params.Rules)
}

func (s *policyService) CreateProfile(ctx context.Context, p scope.Principal, dealerCode string, params PolicyParams) (*model.DealerProfile, error) {
	if err := requireHeadquarters(p); err != nil {
		return nil, err
	}
	dealerCode = strings.TrimSpace(dealerCode)
	if dealerCode == "" {
		return nil, invalidInput("dealer_code", "required")
	}
	if err := validateParams(dealerCode, params); err != nil {
		return nil, err
	}

	now := s.now()
	profile := &model.DealerProfile{
		DealerCode:  dealerCode,
		Status:      model.DealerStatusActive,
		Revision:    1,
		ActivatedAt: &now,
	}
	if err := applyParams(profile, params); err != nil {
		return nil, err
	}

	if err := s.repo.Create(profile); err != nil {
		if isDuplicate(err) {
			return nil, ErrConcurrencyConflict
		}
		return nil, err
	}

	logger.Info("Dealer profile created", map[string]interface{}{
		"dealer_code": dealerCode,
		"created_by":  p.UserID,
	})
	return profile, nil
}

// mutate 대리점 단위 락 + 행 잠금 안에서 fn을 실행하고 저장한다
func (s *policyService) mutate(ctx context.Context, dealerCode string, fn func(profile *model.DealerProfile) (bool, error)) (*model.DealerProfile, error) {
	unlock, err := s.locker.Lock(ctx, dealerCode)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var result *model.DealerProfile
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewDealerProfileRepository(tx)
		profile, err := repo.FindByCodeForUpdate(dealerCode)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPolicyNotFound
			}
			return err
		}

		changed, err := fn(profile)
		if err != nil {
			return err
		}
		if changed {
			if err := repo.Save(profile); err != nil {
				return err
			}
		}
		result = profile
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *policyService) UpdateParameters(ctx context.Context, p scope.Principal, dealerCode string, params PolicyParams) (*model.DealerProfile, error) {
	if err := requireHeadquarters(p); err != nil {
		return nil, err
	}
	if err := validateParams(dealerCode, params); err != nil {
		return nil, err
	}

	profile, err := s.mutate(ctx, dealerCode, func(profile *model.DealerProfile) (bool, error) {
		if err := applyParams(profile, params); err != nil {
			return false, err
		}
		profile.Revision++
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Dealer policy parameters updated", map[string]interface{}{
		"dealer_code": dealerCode,
		"revision":    profile.Revision,
		"updated_by":  p.UserID,
	})
	return profile, nil
}

// 허용되는 상태 전이. 같은 상태로의 전이는 변경 없이 성공한다.
var allowedTransitions = map[model.DealerStatus][]model.DealerStatus{
	model.DealerStatusActive:    {model.DealerStatusInactive, model.DealerStatusSuspended},
	model.DealerStatusSuspended: {model.DealerStatusActive, model.DealerStatusInactive},
	model.DealerStatusInactive:  {model.DealerStatusActive},
}

func canTransition(from, to model.DealerStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s *policyService) transition(ctx context.Context, p scope.Principal, dealerCode string, to model.DealerStatus) (*model.DealerProfile, error) {
	if err := requireHeadquarters(p); err != nil {
		return nil, err
	}

	var from model.DealerStatus
	profile, err := s.mutate(ctx, dealerCode, func(profile *model.DealerProfile) (bool, error) {
		from = profile.Status
		if from == to {
			return false, nil
		}
		if !canTransition(from, to) {
			return false, ErrInvalidTransition
		}

		now := s.now()
		profile.Status = to
		if to == model.DealerStatusActive {
			profile.ActivatedAt = &now
			profile.DeactivatedAt = nil
		} else {
			profile.DeactivatedAt = &now
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	if from != to {
		metrics.PolicyTransitions.WithLabelValues(string(to)).Inc()
		logger.Info("Dealer policy status changed", map[string]interface{}{
			"dealer_code": dealerCode,
			"from":        from,
			"to":          to,
			"changed_by":  p.UserID,
		})
	}
	return profile, nil
}

func (s *policyService) Activate(ctx context.Context, p scope.Principal, dealerCode string) (*model.DealerProfile, error) {
	return s.transition(ctx, p, dealerCode, model.DealerStatusActive)
}

func (s *policyService) Deactivate(ctx context.Context, p scope.Principal, dealerCode string) (*model.DealerProfile, error) {
	return s.transition(ctx, p, dealerCode, model.DealerStatusInactive)
}

func (s *policyService) Suspend(ctx context.Context, p scope.Principal, dealerCode string) (*model.DealerProfile, error) {
	return s.transition(ctx, p, dealerCode, model.DealerStatusSuspended)
}
