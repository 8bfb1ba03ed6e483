package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/telecom-settlement-backend/internal/app/service"
	apperrors "github.com/ikkim/telecom-settlement-backend/internal/errors"
	"github.com/shopspring/decimal"
)

type FixedExpenseController struct {
	expenseService service.FixedExpenseService
}

func NewFixedExpenseController(expenseService service.FixedExpenseService) *FixedExpenseController {
	return &FixedExpenseController{expenseService: expenseService}
}

type FixedExpenseRequest struct {
	YearMonth   string          `json:"year_month" binding:"required"`
	DealerCode  string          `json:"dealer_code" binding:"required"`
	ExpenseType string          `json:"expense_type" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// GET /api/v1/fixed-expenses?year_month=YYYY-MM
func (ctrl *FixedExpenseController) ListFixedExpenses(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		return
	}

	expenses, err := ctrl.expenseService.ListFixedExpenses(p, c.Query("year_month"))
	if err != nil {
		respondServiceError(c, err, "list fixed expenses")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"fixed_expenses": expenses,
		"count":          len(expenses),
	})
}

// RecordFixedExpense 같은 (월, 대리점, 항목)이 있으면 409
// POST /api/v1/fixed-expenses
func (ctrl *FixedExpenseController) RecordFixedExpense(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		return
	}

	var req FixedExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "고정비 정보가 올바르지 않습니다")
		return
	}

	expense, err := ctrl.expenseService.RecordFixedExpense(p, service.FixedExpenseInput{
		YearMonth:   req.YearMonth,
		DealerCode:  req.DealerCode,
		ExpenseType: req.ExpenseType,
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		respondServiceError(c, err, "record fixed expense")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"fixed_expense": expense})
}
