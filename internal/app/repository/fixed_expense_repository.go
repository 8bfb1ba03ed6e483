package repository

import (
	"github.com/ikkim/telecom-settlement-backend/internal/app/model"
	"github.com/ikkim/telecom-settlement-backend/pkg/logger"
	"gorm.io/gorm"
)

type FixedExpenseRepository interface {
	Create(expense *model.FixedExpense) error
	FindAll(yearMonth string, dealerCodes []string) ([]model.FixedExpense, error)
}

type fixedExpenseRepository struct {
	db *gorm.DB
}

func NewFixedExpenseRepository(db *gorm.DB) FixedExpenseRepository {
	return &fixedExpenseRepository{db: db}
}

// Create 단일 INSERT. (year_month, dealer_code, expense_type) 중복은 unique 인덱스가 거부한다.
func (r *fixedExpenseRepository) Create(expense *model.FixedExpense) error {
	if err := r.db.Create(expense).Error; err != nil {
		logger.Warn("Failed to insert fixed expense", map[string]interface{}{
			"year_month":   expense.YearMonth,
			"dealer_code":  expense.DealerCode,
			"expense_type": expense.ExpenseType,
			"error":        err.Error(),
		})
		return err
	}
	return nil
}

// FindAll dealerCodes가 nil이면 전체 대리점
func (r *fixedExpenseRepository) FindAll(yearMonth string, dealerCodes []string) ([]model.FixedExpense, error) {
	query := r.db.Model(&model.FixedExpense{})
	if yearMonth != "" {
		query = query.Where("year_month = ?", yearMonth)
	}
	if dealerCodes != nil {
		if len(dealerCodes) == 0 {
			return []model.FixedExpense{}, nil
		}
		query = query.Where("dealer_code IN ?", dealerCodes)
	}

	var expenses []model.FixedExpense
	if err := query.Order("year_month DESC, dealer_code ASC, expense_type ASC").Find(&expenses).Error; err != nil {
		logger.Error("Failed to find fixed expenses", err)
		return nil, err
	}
	return expenses, nil
}
