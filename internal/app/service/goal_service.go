package service

import (
	"errors"
	"time"

	"github.com/ikkim/telecom-settlement-backend/internal/app/model"
	"github.com/ikkim/telecom-settlement-backend/internal/app/repository"
	"github.com/ikkim/telecom-settlement-backend/internal/scope"
	"github.com/ikkim/telecom-settlement-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type GoalInput struct {
	TargetType       model.GoalTargetType
	TargetID         *uint
	PeriodType       model.PeriodType
	PeriodStart      time.Time
	PeriodEnd        time.Time // 비어 있으면 PeriodType으로 계산
	SalesTarget      decimal.Decimal
	ActivationTarget int64
	MarginTarget     decimal.Decimal
	Notes            string
}

type AchievementQuery struct {
	TargetType  model.GoalTargetType
	TargetID    *uint
	PeriodType  model.PeriodType
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// Achievement 목표 대비 실적. Pct는 매출 목표가 0이면 nil.
type Achievement struct {
	TargetType       model.GoalTargetType `json:"target_type"`
	TargetID         *uint                `json:"target_id,omitempty"`
	PeriodType       model.PeriodType     `json:"period_type"`
	PeriodStart      time.Time            `json:"period_start"`
	PeriodEnd        time.Time            `json:"period_end"`
	GoalID           *uint                `json:"goal_id,omitempty"`
	HasTarget        bool                 `json:"has_target"`
	SalesActual      decimal.Decimal      `json:"sales_actual"`
	SalesTarget      decimal.Decimal      `json:"sales_target"`
	ActivationActual int64                `json:"activation_actual"`
	ActivationTarget int64                `json:"activation_target"`
	MarginActual     decimal.Decimal      `json:"margin_actual"`
	MarginTarget     decimal.Decimal      `json:"margin_target"`
	Pct              *int64               `json:"pct"`
}

type GoalService interface {
	CreateGoal(p scope.Principal, in GoalInput) (*model.Goal, error)
	ListGoals(p scope.Principal, periodType model.PeriodType, activeOnly bool) ([]model.Goal, error)
	DeactivateGoal(p scope.Principal, id uint) error
	Achievement(p scope.Principal, q AchievementQuery) (*Achievement, error)
}

type goalService struct {
	goalRepo repository.GoalRepository
	saleRepo repository.SaleRepository
	scopes   ScopeService
}

func NewGoalService(goalRepo repository.GoalRepository, saleRepo repository.SaleRepository, scopes ScopeService) GoalService {
	return &goalService{goalRepo: goalRepo, saleRepo: saleRepo, scopes: scopes}
}

// PeriodEnd 기간 유형에 따른 마지막 날 (포함)
func PeriodEnd(periodType model.PeriodType, start time.Time) time.Time {
	start = NormalizeDate(start)
	switch periodType {
	case model.PeriodQuarterly:
		return start.AddDate(0, 3, -1)
	case model.PeriodYearly:
		return start.AddDate(1, 0, -1)
	default:
		return start.AddDate(0, 1, -1)
	}
}

func normalizePeriod(periodType model.PeriodType, start, end time.Time) (time.Time, time.Time, error) {
	if !periodType.Valid() {
		return start, end, invalidInput("period_type", "must be monthly, quarterly or yearly")
	}
	if start.IsZero() {
		return start, end, invalidInput("period_start", "required")
	}
	start = NormalizeDate(start)
	if end.IsZero() {
		end = PeriodEnd(periodType, start)
	}
	end = NormalizeDate(end)
	if end.Before(start) {
		return start, end, invalidInput("period_end", "must not be before period_start")
	}
	return start, end, nil
}

// targetStores 대상의 매장 집합 ∩ 조회 범위. 대상이 범위 밖이면 ErrAccessDenied.
func (s *goalService) targetStores(p scope.Principal, targetType model.GoalTargetType, targetID *uint) ([]uint, error) {
	set, h, err := s.scopes.Resolve(p)
	if err != nil {
		return nil, err
	}

	switch targetType {
	case model.GoalTargetSystem:
		if targetID != nil {
			return nil, invalidInput("target_id", "must be empty for system goals")
		}
		if err := requireHeadquarters(p); err != nil {
			return nil, err
		}
		return set.IDs(), nil

	case model.GoalTargetBranch:
		if targetID == nil {
			return nil, invalidInput("target_id", "required")
		}
		known := false
		for _, b := range h.BranchIDs {
			if b == *targetID {
				known = true
				break
			}
		}
		if !known {
			return nil, ErrBranchNotFound
		}
		// 지사 목표는 본사 또는 해당 지사 계정만
		if p.Role != scope.RoleHeadquarters &&
			!(p.Role == scope.RoleBranch && p.BranchID != nil && *p.BranchID == *targetID) {
			return nil, ErrAccessDenied
		}
		ids := []uint{}
		for _, st := range h.Stores {
			if st.BranchID == *targetID && set.Contains(st.ID) {
				ids = append(ids, st.ID)
			}
		}
		return ids, nil

	case model.GoalTargetStore:
		if targetID == nil {
			return nil, invalidInput("target_id", "required")
		}
		if err := set.Authorize(*targetID); err != nil {
			return nil, err
		}
		return []uint{*targetID}, nil
	}
	return nil, invalidInput("target_type", "must be system, branch or store")
}

func (s *goalService) CreateGoal(p scope.Principal, in GoalInput) (*model.Goal, error) {
	if p.Role == scope.RoleStore {
		return nil, ErrAccessDenied
	}
	start, end, err := normalizePeriod(in.PeriodType, in.PeriodStart, in.PeriodEnd)
	if err != nil {
		return nil, err
	}
	if in.SalesTarget.IsNegative() {
		return nil, invalidInput("sales_target", "must not be negative")
	}
	if in.MarginTarget.IsNegative() {
		return nil, invalidInput("margin_target", "must not be negative")
	}
	if in.ActivationTarget < 0 {
		return nil, invalidInput("activation_target", "must not be negative")
	}
	if _, err := s.targetStores(p, in.TargetType, in.TargetID); err != nil {
		return nil, err
	}

	goal := &model.Goal{
		TargetType:       in.TargetType,
		TargetID:         in.TargetID,
		PeriodType:       in.PeriodType,
		PeriodStart:      start,
		PeriodEnd:        end,
		SalesTarget:      in.SalesTarget,
		ActivationTarget: in.ActivationTarget,
		MarginTarget:     in.MarginTarget,
		IsActive:         true,
		Notes:            in.Notes,
		CreatedBy:        p.UserID,
	}
	if err := s.goalRepo.Create(goal); err != nil {
		return nil, err
	}

	logger.Info("Goal created", map[string]interface{}{
		"goal_id":     goal.ID,
		"target_type": goal.TargetType,
		"created_by":  p.UserID,
	})
	return goal, nil
}

func (s *goalService) ListGoals(p scope.Principal, periodType model.PeriodType, activeOnly bool) ([]model.Goal, error) {
	set, h, err := s.scopes.Resolve(p)
	if err != nil {
		return nil, err
	}
	if set.IsEmpty() {
		return nil, ErrAccessDenied
	}

	filter := repository.GoalFilter{
		StoreIDs:   set.IDs(),
		PeriodType: periodType,
		ActiveOnly: activeOnly,
	}
	switch p.Role {
	case scope.RoleHeadquarters:
		filter.IncludeSystem = true
		filter.BranchIDs = h.BranchIDs
	case scope.RoleBranch:
		filter.BranchIDs = []uint{*p.BranchID}
	}
	return s.goalRepo.FindAll(filter)
}

func (s *goalService) DeactivateGoal(p scope.Principal, id uint) error {
	goal, err := s.goalRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrGoalNotFound
		}
		return err
	}
	if p.Role == scope.RoleStore {
		return ErrAccessDenied
	}
	if _, err := s.targetStores(p, goal.TargetType, goal.TargetID); err != nil {
		return err
	}
	return s.goalRepo.Deactivate(id)
}

func (s *goalService) Achievement(p scope.Principal, q AchievementQuery) (*Achievement, error) {
	start, end, err := normalizePeriod(q.PeriodType, q.PeriodStart, q.PeriodEnd)
	if err != nil {
		return nil, err
	}
	storeIDs, err := s.targetStores(p, q.TargetType, q.TargetID)
	if err != nil {
		return nil, err
	}

	totals, err := s.saleRepo.Totals(repository.SaleFilter{
		StoreIDs: storeIDs,
		From:     &start,
		To:       &end,
	})
	if err != nil {
		return nil, err
	}

	a := &Achievement{
		TargetType:       q.TargetType,
		TargetID:         q.TargetID,
		PeriodType:       q.PeriodType,
		PeriodStart:      start,
		PeriodEnd:        end,
		SalesActual:      totals.SettlementAmount,
		ActivationActual: totals.Count,
		MarginActual:     totals.MarginAfterTax,
		SalesTarget:      decimal.Zero,
		MarginTarget:     decimal.Zero,
	}

	goal, err := s.goalRepo.FindGoverning(repository.GoalKey{
		TargetType:  q.TargetType,
		TargetID:    q.TargetID,
		PeriodType:  q.PeriodType,
		PeriodStart: start,
		PeriodEnd:   end,
	})
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if goal != nil {
		a.GoalID = &goal.ID
		a.SalesTarget = goal.SalesTarget
		a.ActivationTarget = goal.ActivationTarget
		a.MarginTarget = goal.MarginTarget
	}

	// 매출 목표 0은 "목표 없음"으로 취급한다
	if a.SalesTarget.IsPositive() {
		a.HasTarget = true
		pct := a.SalesActual.Mul(decimal.NewFromInt(100)).Div(a.SalesTarget).Round(0).IntPart()
		a.Pct = &pct
	}
	return a, nil
}
