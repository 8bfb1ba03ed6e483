package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// FixedExpense 월별 대리점 고정비 (임대료, 인건비 등)
// (year_month, dealer_code, expense_type) 조합은 한 건만 존재한다
type FixedExpense struct {
	ID          uint            `gorm:"primarykey" json:"id"`
	YearMonth   string          `gorm:"type:varchar(7);not null;uniqueIndex:idx_fixed_expense_key,priority:1" json:"year_month"` // YYYY-MM
	DealerCode  string          `gorm:"type:varchar(30);not null;uniqueIndex:idx_fixed_expense_key,priority:2" json:"dealer_code"`
	ExpenseType string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_fixed_expense_key,priority:3" json:"expense_type"`
	Amount      decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0" json:"amount"`
	Description string          `gorm:"type:text" json:"description"`
	CreatedBy   uint            `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (FixedExpense) TableName() string {
	return "fixed_expenses"
}
