package service

import (
	"strings"
	"time"

	"github.com/ikkim/telecom-settlement-backend/internal/app/model"
	"github.com/ikkim/telecom-settlement-backend/internal/app/repository"
	"github.com/ikkim/telecom-settlement-backend/internal/scope"
	"github.com/ikkim/telecom-settlement-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

type FixedExpenseInput struct {
	YearMonth   string
	DealerCode  string
	ExpenseType string
	Amount      decimal.Decimal
	Description string
}

type FixedExpenseService interface {
	// RecordFixedExpense는 단일 INSERT로 기록하며 같은 키가 있으면 ErrConcurrencyConflict
	RecordFixedExpense(p scope.Principal, in FixedExpenseInput) (*model.FixedExpense, error)
	ListFixedExpenses(p scope.Principal, yearMonth string) ([]model.FixedExpense, error)
}

type fixedExpenseService struct {
	repo      repository.FixedExpenseRepository
	storeRepo repository.StoreRepository
	policies  PolicyService
	scopes    ScopeService
}

func NewFixedExpenseService(
	repo repository.FixedExpenseRepository,
	storeRepo repository.StoreRepository,
	policies PolicyService,
	scopes ScopeService,
) FixedExpenseService {
	return &fixedExpenseService{repo: repo, storeRepo: storeRepo, policies: policies, scopes: scopes}
}

func validYearMonth(s string) bool {
	_, err := time.Parse("2006-01", s)
	return err == nil
}

func (s *fixedExpenseService) RecordFixedExpense(p scope.Principal, in FixedExpenseInput) (*model.FixedExpense, error) {
	if err := requireHeadquarters(p); err != nil {
		return nil, err
	}
	if !validYearMonth(in.YearMonth) {
		return nil, invalidInput("year_month", "must be YYYY-MM")
	}
	if strings.TrimSpace(in.ExpenseType) == "" {
		return nil, invalidInput("expense_type", "required")
	}
	if in.Amount.IsNegative() {
		return nil, invalidInput("amount", "must not be negative")
	}
	if _, err := s.policies.GetProfile(in.DealerCode); err != nil {
		return nil, err
	}

	expense := &model.FixedExpense{
		YearMonth:   in.YearMonth,
		DealerCode:  in.DealerCode,
		ExpenseType: strings.TrimSpace(in.ExpenseType),
		Amount:      in.Amount,
		Description: in.Description,
		CreatedBy:   p.UserID,
	}
	if err := s.repo.Create(expense); err != nil {
		if isDuplicate(err) {
			return nil, ErrConcurrencyConflict
		}
		return nil, err
	}

	logger.Info("Fixed expense recorded", map[string]interface{}{
		"year_month":   expense.YearMonth,
		"dealer_code":  expense.DealerCode,
		"expense_type": expense.ExpenseType,
	})
	return expense, nil
}

// ListFixedExpenses 본사 외에는 조회 범위 매장의 대리점 고정비만 보인다
func (s *fixedExpenseService) ListFixedExpenses(p scope.Principal, yearMonth string) ([]model.FixedExpense, error) {
	if yearMonth != "" && !validYearMonth(yearMonth) {
		return nil, invalidInput("year_month", "must be YYYY-MM")
	}
	if p.Role == scope.RoleHeadquarters {
		return s.repo.FindAll(yearMonth, nil)
	}

	set, err := s.scopes.ResolveNonEmpty(p)
	if err != nil {
		return nil, err
	}
	stores, err := s.storeRepo.FindAll(repository.StoreFilter{StoreIDs: set.IDs(), IncludeInactive: true})
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	codes := []string{}
	for _, st := range stores {
		if !seen[st.DealerCode] {
			seen[st.DealerCode] = true
			codes = append(codes, st.DealerCode)
		}
	}
	return s.repo.FindAll(yearMonth, codes)
}
